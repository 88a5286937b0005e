package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func splitService(t *testing.T, payout, reinvest, fee string) *SettlementService {
	t.Helper()
	p, err := decimal.NewFromString(payout)
	if err != nil {
		t.Fatal(err)
	}
	r, err := decimal.NewFromString(reinvest)
	if err != nil {
		t.Fatal(err)
	}
	f, err := decimal.NewFromString(fee)
	if err != nil {
		t.Fatal(err)
	}
	return &SettlementService{payoutShare: p, reinvestShare: r, performanceShare: f}
}

func TestSplitProfit_DefaultSchedule(t *testing.T) {
	s := splitService(t, "0.64", "0.16", "0.20")

	totals := s.splitProfit(decimal.NewFromInt(300))
	if !totals.PayoutTotal.Equal(decimal.NewFromInt(192)) {
		t.Fatalf("payout: got %s, want 192", totals.PayoutTotal)
	}
	if !totals.ReinvestTotal.Equal(decimal.NewFromInt(48)) {
		t.Fatalf("reinvest: got %s, want 48", totals.ReinvestTotal)
	}
	if !totals.PerformanceFeeTotal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("performance fee: got %s, want 60", totals.PerformanceFeeTotal)
	}
	if !totals.LossTotal.IsZero() {
		t.Fatalf("loss: got %s, want 0", totals.LossTotal)
	}
}

func TestSplitProfit_TotalsAlwaysReconcile(t *testing.T) {
	s := splitService(t, "0.64", "0.16", "0.20")

	for _, raw := range []string{"0", "0.01", "0.03", "1", "99.99", "1234.57", "1000000"} {
		profit, err := decimal.NewFromString(raw)
		if err != nil {
			t.Fatal(err)
		}
		totals := s.splitProfit(profit)

		sum := totals.PayoutTotal.Add(totals.ReinvestTotal).Add(totals.PerformanceFeeTotal)
		if !sum.Equal(profit) {
			t.Fatalf("profit %s: slices sum to %s", profit, sum)
		}
	}
}

func TestSplitProfit_CustomSchedule(t *testing.T) {
	s := splitService(t, "0.70", "0.10", "0.20")

	profit := decimal.NewFromInt(100)
	totals := s.splitProfit(profit)
	if !totals.PayoutTotal.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("payout: got %s, want 70", totals.PayoutTotal)
	}
	sum := totals.PayoutTotal.Add(totals.ReinvestTotal).Add(totals.PerformanceFeeTotal)
	if !sum.Equal(profit) {
		t.Fatalf("slices sum to %s, want %s", sum, profit)
	}
}
