package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ordercore/backend/internal/domain/shared"
)

// OutboxPublisher writes domain events into the outbox table inside the
// caller's transaction, making event persistence atomic with the aggregate
// change.
type OutboxPublisher struct {
	serializer *EventSerializer
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates an outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx serializes events and stages them in the outbox using tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(evt.StoreID(), evt, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver for repositories that only
// see the transaction as an opaque provider.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}
