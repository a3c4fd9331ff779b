package order

import (
	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated  = "order.created"
	EventRefundCreated = "order.refund_created"
	EventOrderEdited   = "order.edited"
)

// OrderCreatedEvent is emitted once a new order is persisted
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	Currency    string          `json:"currency"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	LineItems   int             `json:"line_items"`
}

// NewOrderCreatedEvent creates an order created event
func NewOrderCreatedEvent(storeID, orderID uuid.UUID, number, currency string, totalPrice decimal.Decimal, lineItems int) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderCreated, "Order", orderID, storeID),
		OrderNumber:     number,
		Currency:        currency,
		TotalPrice:      totalPrice,
		LineItems:       lineItems,
	}
}

// RefundRestockLine summarizes one restocked quantity inside a refund event
type RefundRestockLine struct {
	LineItemID  uuid.UUID   `json:"line_item_id"`
	Quantity    int         `json:"quantity"`
	RestockType RestockType `json:"restock_type"`
	LocationID  uuid.UUID   `json:"location_id"`
}

// RefundCreatedEvent is emitted once a refund is accepted onto an order
type RefundCreatedEvent struct {
	shared.BaseDomainEvent
	RefundID      uuid.UUID           `json:"refund_id"`
	TotalRefunded decimal.Decimal     `json:"total_refunded"`
	RestockLines  []RefundRestockLine `json:"restock_lines"`
	Transactions  int                 `json:"transactions"`
}

// NewRefundCreatedEvent creates a refund created event
func NewRefundCreatedEvent(storeID, orderID uuid.UUID, refund *Refund) *RefundCreatedEvent {
	lines := make([]RefundRestockLine, 0, len(refund.LineItems))
	for _, item := range refund.LineItems {
		lines = append(lines, RefundRestockLine{
			LineItemID:  item.LineItemID,
			Quantity:    item.Quantity,
			RestockType: item.RestockType,
			LocationID:  item.LocationID,
		})
	}
	return &RefundCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventRefundCreated, "Order", orderID, storeID),
		RefundID:        refund.ID,
		TotalRefunded:   refund.TotalRefunded,
		RestockLines:    lines,
		Transactions:    len(refund.Transactions),
	}
}

// OrderEditedEvent is emitted once a committed order edit is replayed into
// the order.
type OrderEditedEvent struct {
	shared.BaseDomainEvent
	OrderEditID      uuid.UUID       `json:"order_edit_id"`
	NewLineItems     []uuid.UUID     `json:"new_line_items"`
	UpdatedLineItems []uuid.UUID     `json:"updated_line_items"`
	Locations        []uuid.UUID     `json:"locations"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// NewOrderEditedEvent creates an order edited event
func NewOrderEditedEvent(storeID, orderID, editID uuid.UUID, newLineItems, updatedLineItems, locations []uuid.UUID, totalPrice decimal.Decimal) *OrderEditedEvent {
	return &OrderEditedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventOrderEdited, "Order", orderID, storeID),
		OrderEditID:      editID,
		NewLineItems:     newLineItems,
		UpdatedLineItems: updatedLineItems,
		Locations:        locations,
		TotalPrice:       totalPrice,
	}
}
