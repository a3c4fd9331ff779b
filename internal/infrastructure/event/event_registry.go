package event

import (
	"github.com/ordercore/backend/internal/domain/order"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(order.EventOrderCreated, &order.OrderCreatedEvent{})
	serializer.Register(order.EventRefundCreated, &order.RefundCreatedEvent{})
	serializer.Register(order.EventOrderEdited, &order.OrderEditedEvent{})
}
