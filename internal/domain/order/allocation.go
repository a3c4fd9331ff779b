package order

import (
	"github.com/shopspring/decimal"
)

// AllocateProportionally splits total across targets in proportion to their
// weights, at the given decimal scale. The first len(weights)-1 shares are
// each rounded half up; the final target absorbs the remainder so the
// shares always sum to exactly total. Negative weights are treated as zero.
// When every weight is zero the total is split evenly instead.
func AllocateProportionally(total decimal.Decimal, weights []decimal.Decimal, scale int32) []decimal.Decimal {
	n := len(weights)
	if n == 0 {
		return nil
	}

	shares := make([]decimal.Decimal, n)
	if n == 1 {
		shares[0] = total
		return shares
	}

	weightSum := decimal.Zero
	clamped := make([]decimal.Decimal, n)
	for i, w := range weights {
		if w.IsNegative() {
			w = decimal.Zero
		}
		clamped[i] = w
		weightSum = weightSum.Add(w)
	}

	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		var share decimal.Decimal
		if weightSum.IsZero() {
			share = total.Div(decimal.NewFromInt(int64(n))).Round(scale)
		} else {
			share = total.Mul(clamped[i]).Div(weightSum).Round(scale)
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[n-1] = total.Sub(allocated)
	return shares
}

// ProportionalShare computes one canonical proportional slice: total scaled
// by quantity over originalQuantity, rounded half up at the given scale.
// Refund math and edit math both divide through this rule so the same
// inputs always price the same.
func ProportionalShare(total decimal.Decimal, quantity, originalQuantity int, scale int32) decimal.Decimal {
	if originalQuantity <= 0 || quantity <= 0 {
		return decimal.Zero
	}
	if quantity >= originalQuantity {
		return total
	}
	return total.
		Mul(decimal.NewFromInt(int64(quantity))).
		Div(decimal.NewFromInt(int64(originalQuantity))).
		Round(scale)
}
