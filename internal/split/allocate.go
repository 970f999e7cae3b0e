// Package split divides split-eligible bills into per-party payment obligations.
package split

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Allocate divides total into len(shares) cent amounts proportional to the
// share weights. Each party gets the floor of its exact share; leftover cents
// go one at a time to the largest fractional remainders, earlier parties
// first on ties. The result always sums to total rounded to cents.
func Allocate(total decimal.Decimal, shares []int) ([]decimal.Decimal, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("no shares to allocate over")
	}
	weight := int64(0)
	for i, s := range shares {
		if s < 0 {
			return nil, fmt.Errorf("share %d is negative", i)
		}
		weight += int64(s)
	}
	if weight == 0 {
		return nil, fmt.Errorf("shares sum to zero")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("cannot allocate negative total %s", total.StringFixed(2))
	}

	cents := total.Round(2).Shift(2).IntPart()
	parts := make([]int64, len(shares))
	remainders := make([]int64, len(shares))
	allocated := int64(0)
	for i, s := range shares {
		exact := cents * int64(s)
		parts[i] = exact / weight
		remainders[i] = exact % weight
		allocated += parts[i]
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return remainders[order[a]] > remainders[order[b]] })
	for left, k := cents-allocated, 0; left > 0; left, k = left-1, k+1 {
		parts[order[k%len(order)]]++
	}

	out := make([]decimal.Decimal, len(parts))
	for i, p := range parts {
		out[i] = decimal.New(p, -2)
	}
	return out, nil
}
