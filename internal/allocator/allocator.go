package allocator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Money amounts and share percentages are kept at 2 decimal places.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Recompute derives each investor's share percentage from their net
// contribution. Returns an empty map when the contribution total is not
// positive. Percentages are rounded to Scale and remainder-corrected so they
// sum to exactly 100.00; every caller depends on that, it is a hard contract.
func Recompute(contributions map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	return Distribute(hundred, contributions)
}

// Distribute splits total across investors proportionally to their weights
// using the largest-remainder method. The returned amounts are rounded to
// Scale and sum to exactly total (rounded to Scale). Weights that are zero or
// negative receive nothing; if no positive weight exists the map is empty.
func Distribute(total decimal.Decimal, weights map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	weightSum := decimal.Zero
	for _, w := range weights {
		if w.IsPositive() {
			weightSum = weightSum.Add(w)
		}
	}
	if !weightSum.IsPositive() || !total.IsPositive() {
		return map[int64]decimal.Decimal{}
	}

	total = total.Round(Scale)

	type slot struct {
		id        int64
		floor     decimal.Decimal
		remainder decimal.Decimal
	}

	slots := make([]slot, 0, len(weights))
	floorSum := decimal.Zero
	for id, w := range weights {
		if !w.IsPositive() {
			continue
		}
		exact := total.Mul(w).Div(weightSum)
		floor := exact.RoundDown(Scale)
		slots = append(slots, slot{id: id, floor: floor, remainder: exact.Sub(floor)})
		floorSum = floorSum.Add(floor)
	}

	// leftover smallest units after flooring, handed to the largest remainders
	units := total.Sub(floorSum).Shift(Scale).IntPart()

	sort.Slice(slots, func(i, j int) bool {
		if c := slots[i].remainder.Cmp(slots[j].remainder); c != 0 {
			return c > 0
		}
		return slots[i].id < slots[j].id
	})

	unit := decimal.New(1, -Scale)
	out := make(map[int64]decimal.Decimal, len(slots))
	for i, s := range slots {
		v := s.floor
		if int64(i) < units {
			v = v.Add(unit)
		}
		out[s.id] = v
	}
	return out
}
