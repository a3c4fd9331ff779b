package order

import (
	"github.com/shopspring/decimal"
)

// MoneyInfo is the order's money snapshot. Every field is derivable from
// the owned entity graph; the aggregate recomputes it inside the same
// mutation that changes the entities, so readers never see a stale total.
// Callers never set fields directly.
type MoneyInfo struct {
	SubtotalPrice    decimal.Decimal
	TotalDiscount    decimal.Decimal
	TotalTax         decimal.Decimal
	TotalShipping    decimal.Decimal
	TotalPrice       decimal.Decimal
	TotalReceived    decimal.Decimal
	TotalRefunded    decimal.Decimal
	TotalOutstanding decimal.Decimal
}

// NewMoneyInfo returns a zeroed snapshot
func NewMoneyInfo() MoneyInfo {
	return MoneyInfo{
		SubtotalPrice:    decimal.Zero,
		TotalDiscount:    decimal.Zero,
		TotalTax:         decimal.Zero,
		TotalShipping:    decimal.Zero,
		TotalPrice:       decimal.Zero,
		TotalReceived:    decimal.Zero,
		TotalRefunded:    decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
}

// CapturedMoney reports whether any payment was ever received
func (m MoneyInfo) CapturedMoney() bool {
	return m.TotalReceived.IsPositive()
}
