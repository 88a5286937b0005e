package allocator

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecompute_SingleInvestor(t *testing.T) {
	shares := Recompute(map[int64]decimal.Decimal{1: dec("150")})
	if len(shares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(shares))
	}
	if !shares[1].Equal(dec("100")) {
		t.Fatalf("expected 100%%, got %s", shares[1])
	}
}

func TestRecompute_TwoInvestors(t *testing.T) {
	shares := Recompute(map[int64]decimal.Decimal{
		1: dec("200"),
		2: dec("100"),
	})

	if !shares[1].Equal(dec("66.67")) {
		t.Fatalf("investor 1: expected 66.67, got %s", shares[1])
	}
	if !shares[2].Equal(dec("33.33")) {
		t.Fatalf("investor 2: expected 33.33, got %s", shares[2])
	}
}

func TestRecompute_EmptyOnZeroTotal(t *testing.T) {
	cases := []map[int64]decimal.Decimal{
		{},
		{1: decimal.Zero},
		{1: dec("-50")},
	}
	for _, contributions := range cases {
		if shares := Recompute(contributions); len(shares) != 0 {
			t.Fatalf("expected empty shares for %v, got %v", contributions, shares)
		}
	}
}

func TestRecompute_SumsToHundred(t *testing.T) {
	cases := []map[int64]decimal.Decimal{
		{1: dec("1"), 2: dec("1"), 3: dec("1")},
		{1: dec("0.01"), 2: dec("0.02")},
		{1: dec("33.33"), 2: dec("33.33"), 3: dec("33.34")},
		{1: dec("7"), 2: dec("11"), 3: dec("13"), 4: dec("17"), 5: dec("19")},
		{1: dec("999999.99"), 2: dec("0.01")},
	}

	for i, contributions := range cases {
		shares := Recompute(contributions)
		sum := decimal.Zero
		for _, p := range shares {
			sum = sum.Add(p)
		}
		if !sum.Equal(dec("100")) {
			t.Fatalf("case %d: shares sum to %s, want 100", i, sum)
		}
	}
}

func TestRecompute_Deterministic(t *testing.T) {
	contributions := map[int64]decimal.Decimal{
		1: dec("1"), 2: dec("1"), 3: dec("1"),
	}

	first := Recompute(contributions)
	for i := 0; i < 50; i++ {
		again := Recompute(contributions)
		for id, p := range first {
			if !again[id].Equal(p) {
				t.Fatalf("run %d: investor %d got %s, want %s", i, id, again[id], p)
			}
		}
	}

	// three equal thirds: the odd cent must always land on the lowest ID
	if !first[1].Equal(dec("33.34")) {
		t.Fatalf("expected odd unit on investor 1, got %s", first[1])
	}
}

func TestDistribute_SumsToTotal(t *testing.T) {
	totals := []string{"192", "48", "60", "0.03", "1234.56"}
	weights := map[int64]decimal.Decimal{
		1: dec("66.67"),
		2: dec("33.33"),
		3: dec("0.01"),
	}

	for _, ts := range totals {
		total := dec(ts)
		parts := Distribute(total, weights)
		sum := decimal.Zero
		for _, v := range parts {
			sum = sum.Add(v)
		}
		if !sum.Equal(total) {
			t.Fatalf("total %s: parts sum to %s", total, sum)
		}
	}
}

func TestDistribute_IgnoresNonPositiveWeights(t *testing.T) {
	parts := Distribute(dec("100"), map[int64]decimal.Decimal{
		1: dec("50"),
		2: decimal.Zero,
		3: dec("-10"),
	})

	if len(parts) != 1 {
		t.Fatalf("expected single recipient, got %v", parts)
	}
	if !parts[1].Equal(dec("100")) {
		t.Fatalf("expected full total to investor 1, got %s", parts[1])
	}
}

func TestDistribute_ProportionalLoss(t *testing.T) {
	// 60 of loss across contributions 200/100 erodes 40 and 20
	parts := Distribute(dec("60"), map[int64]decimal.Decimal{
		1: dec("200"),
		2: dec("100"),
	})
	if !parts[1].Equal(dec("40")) || !parts[2].Equal(dec("20")) {
		t.Fatalf("expected 40/20, got %s/%s", parts[1], parts[2])
	}
}

func TestDistribute_ManyInvestorsExact(t *testing.T) {
	for n := 1; n <= 23; n++ {
		weights := make(map[int64]decimal.Decimal, n)
		for i := 1; i <= n; i++ {
			weights[int64(i)] = decimal.NewFromInt(int64(i))
		}
		total := dec("100")
		parts := Distribute(total, weights)

		sum := decimal.Zero
		for _, v := range parts {
			sum = sum.Add(v)
		}
		if !sum.Equal(total) {
			t.Fatalf("n=%d: parts sum to %s, want %s", n, sum, total)
		}
	}
}

func ExampleRecompute() {
	shares := Recompute(map[int64]decimal.Decimal{
		1: decimal.NewFromInt(200),
		2: decimal.NewFromInt(100),
	})
	fmt.Println(shares[1], shares[2])
	// Output: 66.67 33.33
}
