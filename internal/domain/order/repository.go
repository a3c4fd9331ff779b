package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
)

// Repository persists Order aggregates with their full owned entity graph
type Repository interface {
	Save(ctx context.Context, order *Order) error
	// SaveWithLock persists the aggregate only if its stored version still
	// matches, bumping the version on success. A lost race returns
	// ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, order *Order) error
	// SaveWithLockAndEvents additionally writes the given events to the
	// outbox inside the same transaction.
	SaveWithLockAndEvents(ctx context.Context, order *Order, events []shared.DomainEvent) error
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, storeID uuid.UUID, number string) (*Order, error)
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Order], error)
	GenerateOrderNumber(ctx context.Context, storeID uuid.UUID) (string, error)
	Delete(ctx context.Context, storeID, id uuid.UUID) error
}

// EditRepository persists OrderEdit aggregates with their shadow entities
// and staged change log.
type EditRepository interface {
	Save(ctx context.Context, edit *OrderEdit) error
	SaveWithLock(ctx context.Context, edit *OrderEdit) error
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*OrderEdit, error)
	FindOpenByOrderID(ctx context.Context, storeID, orderID uuid.UUID) (*OrderEdit, error)
	List(ctx context.Context, storeID, orderID uuid.UUID, filter shared.Filter) (*shared.Paginated[*OrderEdit], error)
	Delete(ctx context.Context, storeID, id uuid.UUID) error
}
