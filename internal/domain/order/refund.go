package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RestockType describes how a removed or decremented quantity is treated
type RestockType string

const (
	// RestockNone removes quantity without touching inventory
	RestockNone RestockType = "no_restock"
	// RestockCancel cancels units never fulfilled
	RestockCancel RestockType = "cancel"
	// RestockReturn takes back units already fulfilled
	RestockReturn RestockType = "return"
)

// IsValid checks if the restock type is known
func (t RestockType) IsValid() bool {
	return t == RestockNone || t == RestockCancel || t == RestockReturn
}

// OrderAdjustmentKind describes what a refund adjustment compensates
type OrderAdjustmentKind string

const (
	AdjustmentShippingRefund OrderAdjustmentKind = "shipping_refund"
	AdjustmentDiscrepancy    OrderAdjustmentKind = "refund_discrepancy"
)

// RefundLineItem records one line item's participation in a refund
type RefundLineItem struct {
	ID          uuid.UUID
	RefundID    uuid.UUID
	LineItemID  uuid.UUID
	Quantity    int
	RestockType RestockType
	RemoveLine  bool
	LocationID  uuid.UUID
	Subtotal    decimal.Decimal
	TotalTax    decimal.Decimal
	CreatedAt   time.Time
}

// NewRefundLineItem creates a refund line item
func NewRefundLineItem(refundID, lineItemID uuid.UUID, quantity int, restockType RestockType, removeLine bool, locationID uuid.UUID, subtotal, totalTax decimal.Decimal) (*RefundLineItem, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Refund line quantity must be positive")
	}
	if !restockType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESTOCK_TYPE", "Unknown restock type")
	}
	if subtotal.IsNegative() || totalTax.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Refund line amounts cannot be negative")
	}
	return &RefundLineItem{
		ID:          uuid.New(),
		RefundID:    refundID,
		LineItemID:  lineItemID,
		Quantity:    quantity,
		RestockType: restockType,
		RemoveLine:  removeLine,
		LocationID:  locationID,
		Subtotal:    subtotal,
		TotalTax:    totalTax,
		CreatedAt:   time.Now(),
	}, nil
}

// OrderAdjustment records refund money not tied to a line item, such as a
// shipping refund or a rounding discrepancy.
type OrderAdjustment struct {
	ID        uuid.UUID
	RefundID  uuid.UUID
	Kind      OrderAdjustmentKind
	Amount    decimal.Decimal
	TaxAmount decimal.Decimal
	CreatedAt time.Time
}

// NewOrderAdjustment creates an order adjustment
func NewOrderAdjustment(refundID uuid.UUID, kind OrderAdjustmentKind, amount, taxAmount decimal.Decimal) (*OrderAdjustment, error) {
	if amount.IsNegative() || taxAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Adjustment amounts cannot be negative")
	}
	return &OrderAdjustment{
		ID:        uuid.New(),
		RefundID:  refundID,
		Kind:      kind,
		Amount:    amount,
		TaxAmount: taxAmount,
		CreatedAt: time.Now(),
	}, nil
}

// TransactionStatus is the state of a money movement
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionSuccess TransactionStatus = "success"
)

// RefundTransaction links money given back through a gateway to a refund
type RefundTransaction struct {
	ID        uuid.UUID
	RefundID  uuid.UUID
	Gateway   string
	Amount    decimal.Decimal
	Status    TransactionStatus
	CreatedAt time.Time
}

// NewRefundTransaction creates a pending refund transaction
func NewRefundTransaction(refundID uuid.UUID, gateway string, amount decimal.Decimal) (*RefundTransaction, error) {
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Transaction amount cannot be negative")
	}
	return &RefundTransaction{
		ID:        uuid.New(),
		RefundID:  refundID,
		Gateway:   gateway,
		Amount:    amount,
		Status:    TransactionPending,
		CreatedAt: time.Now(),
	}, nil
}

// Refund is one accepted give-back of order money. Its parts are fixed
// after creation; only TotalRefunded moves, as transactions settle.
type Refund struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Note          string
	TotalRefunded decimal.Decimal
	LineItems     []*RefundLineItem
	Adjustments   []*OrderAdjustment
	Transactions  []*RefundTransaction
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRefund creates an empty refund shell for an order
func NewRefund(orderID uuid.UUID, note string) *Refund {
	now := time.Now()
	return &Refund{
		ID:            uuid.New(),
		OrderID:       orderID,
		Note:          note,
		TotalRefunded: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddLineItem attaches a refund line item
func (r *Refund) AddLineItem(item *RefundLineItem) {
	r.LineItems = append(r.LineItems, item)
	r.UpdatedAt = time.Now()
}

// AddAdjustment attaches an order adjustment
func (r *Refund) AddAdjustment(adj *OrderAdjustment) {
	r.Adjustments = append(r.Adjustments, adj)
	r.UpdatedAt = time.Now()
}

// AddTransaction attaches a refund transaction and grows TotalRefunded
func (r *Refund) AddTransaction(tx *RefundTransaction) {
	r.Transactions = append(r.Transactions, tx)
	r.TotalRefunded = r.TotalRefunded.Add(tx.Amount)
	r.UpdatedAt = time.Now()
}

// QuantityForLineItem sums refunded units for one order line item
func (r *Refund) QuantityForLineItem(lineItemID uuid.UUID) int {
	total := 0
	for _, item := range r.LineItems {
		if item.LineItemID == lineItemID {
			total += item.Quantity
		}
	}
	return total
}

// ShippingRefunded sums shipping money this refund gave back
func (r *Refund) ShippingRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, adj := range r.Adjustments {
		if adj.Kind == AdjustmentShippingRefund {
			total = total.Add(adj.Amount)
		}
	}
	return total
}
