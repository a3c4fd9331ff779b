package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxTargetType describes what kind of target a tax line belongs to
type TaxTargetType string

const (
	TaxTargetLineItem     TaxTargetType = "line_item"
	TaxTargetShippingLine TaxTargetType = "shipping_line"
)

// TaxLine is one physical tax row against a line item or shipping line. A
// target may carry several rows, one per tax rule; its total tax is their
// sum. Position is a per-order ordinal assigned at creation; reductions
// consume rows in descending position so rows added later give back first.
type TaxLine struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	TargetID   uuid.UUID
	TargetType TaxTargetType
	Title      string
	Rate       decimal.Decimal
	Price      decimal.Decimal
	Quantity   int
	Custom     bool
	Position   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTaxLine creates a tax line for a target
func NewTaxLine(orderID, targetID uuid.UUID, targetType TaxTargetType, title string, rate, price decimal.Decimal, quantity int, custom bool, position int) (*TaxLine, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TAX_TITLE", "Tax line title cannot be empty")
	}
	if rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_PRICE", "Tax price cannot be negative")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_TAX_QUANTITY", "Tax quantity must be positive")
	}

	now := time.Now()
	return &TaxLine{
		ID:         uuid.New(),
		OrderID:    orderID,
		TargetID:   targetID,
		TargetType: targetType,
		Title:      title,
		Rate:       rate,
		Price:      price,
		Quantity:   quantity,
		Custom:     custom,
		Position:   position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MergeKey identifies tax rows that describe the same logical charge
type MergeKey struct {
	Title  string
	Rate   string
	Custom bool
}

// Key returns the row's merge identity. Rate is keyed by its canonical
// string form so 0.10 and 0.1 collapse together.
func (t *TaxLine) Key() MergeKey {
	return MergeKey{Title: t.Title, Rate: t.Rate.String(), Custom: t.Custom}
}

// UnitPrice returns price per taxed unit at the given scale
func (t *TaxLine) UnitPrice(scale int32) decimal.Decimal {
	if t.Quantity <= 0 {
		return decimal.Zero
	}
	return t.Price.Div(decimal.NewFromInt(int64(t.Quantity))).Round(scale)
}

// ReduceQuantity takes up to want units off the row, lowering price by the
// per-unit share. Draining the row's last unit zeroes its price so no
// orphan tax remains. Returns units taken and price given back.
func (t *TaxLine) ReduceQuantity(want int, scale int32) (int, decimal.Decimal) {
	if want <= 0 || t.Quantity <= 0 {
		return 0, decimal.Zero
	}
	taken := want
	if taken > t.Quantity {
		taken = t.Quantity
	}

	var priceBack decimal.Decimal
	if taken == t.Quantity {
		priceBack = t.Price
	} else {
		priceBack = t.UnitPrice(scale).Mul(decimal.NewFromInt(int64(taken)))
		if priceBack.GreaterThan(t.Price) {
			priceBack = t.Price
		}
	}
	t.Quantity -= taken
	t.Price = t.Price.Sub(priceBack)
	t.UpdatedAt = time.Now()
	return taken, priceBack
}

// RefundTaxLine tracks the running refunded amount against one original tax
// row, keyed by that row's id. It is what stops the same tax row from being
// refunded twice across multiple refunds of the same order.
type RefundTaxLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	TaxLineID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRefundTaxLine creates a refund tax line against an original tax row
func NewRefundTaxLine(orderID, taxLineID uuid.UUID, amount decimal.Decimal) (*RefundTaxLine, error) {
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_PRICE", "Refunded tax amount cannot be negative")
	}
	now := time.Now()
	return &RefundTaxLine{
		ID:        uuid.New(),
		OrderID:   orderID,
		TaxLineID: taxLineID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddAmount accumulates more refunded tax onto the running total
func (t *RefundTaxLine) AddAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_PRICE", "Refunded tax amount cannot be negative")
	}
	t.Amount = t.Amount.Add(amount)
	t.UpdatedAt = time.Now()
	return nil
}
