package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FulfillmentStatus describes how far a line item got through fulfillment
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusPartial     FulfillmentStatus = "partial"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentStatusRestocked   FulfillmentStatus = "restocked"
)

// LineItem is one purchasable row of an order. Quantity is what was
// ordered; CurrentQuantity shrinks when units are removed by edits or
// refunds; RefundableQuantity shrinks with every refund. The invariant
// RefundableQuantity <= CurrentQuantity <= Quantity holds at all times.
type LineItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	VariantID           uuid.UUID
	ProductID           uuid.UUID
	Title               string
	SKU                 string
	Price               decimal.Decimal
	Quantity            int
	FulfillableQuantity int
	CurrentQuantity     int
	RefundableQuantity  int
	FulfillmentStatus   FulfillmentStatus
	Taxable             bool
	RequiresShipping    bool
	Custom              bool
	Allocations         []*DiscountAllocation
	TaxLines            []*TaxLine
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewLineItem creates a line item backed by a catalog variant
func NewLineItem(orderID, variantID, productID uuid.UUID, title, sku string, price decimal.Decimal, quantity int, taxable, requiresShipping bool) (*LineItem, error) {
	item, err := newLineItem(orderID, title, price, quantity, taxable, requiresShipping, false)
	if err != nil {
		return nil, err
	}
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant id is required for catalog line items")
	}
	item.VariantID = variantID
	item.ProductID = productID
	item.SKU = sku
	return item, nil
}

// NewCustomLineItem creates a line item with no catalog backing
func NewCustomLineItem(orderID uuid.UUID, title string, price decimal.Decimal, quantity int, taxable, requiresShipping bool) (*LineItem, error) {
	return newLineItem(orderID, title, price, quantity, taxable, requiresShipping, true)
}

func newLineItem(orderID uuid.UUID, title string, price decimal.Decimal, quantity int, taxable, requiresShipping, custom bool) (*LineItem, error) {
	errs := shared.NewValidationErrors()
	if title == "" {
		errs.Add("title", "INVALID_TITLE", "Line item title cannot be empty")
	}
	if price.IsNegative() {
		errs.Add("price", "INVALID_PRICE", "Line item price cannot be negative")
	}
	if quantity <= 0 {
		errs.Add("quantity", "INVALID_QUANTITY", "Line item quantity must be positive")
	}
	if err := errs.AsError(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &LineItem{
		ID:                  uuid.New(),
		OrderID:             orderID,
		Title:               title,
		Price:               price,
		Quantity:            quantity,
		FulfillableQuantity: quantity,
		CurrentQuantity:     quantity,
		RefundableQuantity:  quantity,
		FulfillmentStatus:   FulfillmentStatusUnfulfilled,
		Taxable:             taxable,
		RequiresShipping:    requiresShipping,
		Custom:              custom,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Subtotal is list price times ordered quantity, before discounts
func (l *LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CurrentSubtotal is list price times current quantity
func (l *LineItem) CurrentSubtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.CurrentQuantity)))
}

// TotalDiscount sums all discount allocations against the line
func (l *LineItem) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// TotalTax sums all tax rows against the line
func (l *LineItem) TotalTax() decimal.Decimal {
	return TotalTax(l.TaxLines)
}

// DiscountedSubtotal is the subtotal net of discounts, floored at zero
func (l *LineItem) DiscountedSubtotal() decimal.Decimal {
	net := l.Subtotal().Sub(l.TotalDiscount())
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// IsDiscounted reports whether any discount touches the line
func (l *LineItem) IsDiscounted() bool {
	return l.TotalDiscount().IsPositive()
}

// IsRestocked reports whether the whole line was returned to stock
func (l *LineItem) IsRestocked() bool {
	return l.FulfillmentStatus == FulfillmentStatusRestocked
}

// AddAllocation attaches a discount allocation to the line
func (l *LineItem) AddAllocation(a *DiscountAllocation) {
	l.Allocations = append(l.Allocations, a)
	l.UpdatedAt = time.Now()
}

// AddTaxLine attaches a tax row to the line
func (l *LineItem) AddTaxLine(t *TaxLine) {
	l.TaxLines = append(l.TaxLines, t)
	l.UpdatedAt = time.Now()
}

// IncreaseQuantity raises ordered, current, fulfillable and refundable
// quantities by delta. Callers must reject discounted lines before this.
func (l *LineItem) IncreaseQuantity(delta int) error {
	if delta <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity increase must be positive")
	}
	l.Quantity += delta
	l.FulfillableQuantity += delta
	l.CurrentQuantity += delta
	l.RefundableQuantity += delta
	l.UpdatedAt = time.Now()
	return nil
}

// ApplyRefund removes quantity units from the line's refundable and
// current pools after a refund is accepted.
func (l *LineItem) ApplyRefund(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Refund quantity must be positive")
	}
	if quantity > l.RefundableQuantity {
		return shared.NewDomainError("REFUND_EXCEEDS_REFUNDABLE", "Refund quantity exceeds refundable quantity")
	}
	l.RefundableQuantity -= quantity
	l.CurrentQuantity -= quantity
	if l.FulfillableQuantity > 0 {
		if quantity < l.FulfillableQuantity {
			l.FulfillableQuantity -= quantity
		} else {
			l.FulfillableQuantity = 0
		}
	}
	l.UpdatedAt = time.Now()
	return nil
}

// ShippingLine is one shipping charge on an order. It carries the same
// allocation and tax shape as a line item but has no quantity.
type ShippingLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Title       string
	Code        string
	Price       decimal.Decimal
	Allocations []*DiscountAllocation
	TaxLines    []*TaxLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewShippingLine creates a shipping line
func NewShippingLine(orderID uuid.UUID, title, code string, price decimal.Decimal) (*ShippingLine, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Shipping line title cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Shipping price cannot be negative")
	}
	now := time.Now()
	return &ShippingLine{
		ID:        uuid.New(),
		OrderID:   orderID,
		Title:     title,
		Code:      code,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TotalDiscount sums all discount allocations against the shipping line
func (s *ShippingLine) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// TotalTax sums all tax rows against the shipping line
func (s *ShippingLine) TotalTax() decimal.Decimal {
	return TotalTax(s.TaxLines)
}

// AddAllocation attaches a discount allocation to the shipping line
func (s *ShippingLine) AddAllocation(a *DiscountAllocation) {
	s.Allocations = append(s.Allocations, a)
	s.UpdatedAt = time.Now()
}

// AddTaxLine attaches a tax row to the shipping line
func (s *ShippingLine) AddTaxLine(t *TaxLine) {
	s.TaxLines = append(s.TaxLines, t)
	s.UpdatedAt = time.Now()
}
