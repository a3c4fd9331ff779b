package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLockAndEvents(ctx context.Context, o *order.Order, events []shared.DomainEvent) error {
	args := m.Called(ctx, o, events)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNumber(ctx context.Context, storeID uuid.UUID, number string) (*order.Order, error) {
	args := m.Called(ctx, storeID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	args := m.Called(ctx, storeID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*order.Order]), args.Error(1)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context, storeID uuid.UUID) (string, error) {
	args := m.Called(ctx, storeID)
	return args.String(0), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	args := m.Called(ctx, storeID, id)
	return args.Error(0)
}

// MockEditRepository is a mock implementation of order.EditRepository
type MockEditRepository struct {
	mock.Mock
}

func (m *MockEditRepository) Save(ctx context.Context, edit *order.OrderEdit) error {
	args := m.Called(ctx, edit)
	return args.Error(0)
}

func (m *MockEditRepository) SaveWithLock(ctx context.Context, edit *order.OrderEdit) error {
	args := m.Called(ctx, edit)
	return args.Error(0)
}

func (m *MockEditRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*order.OrderEdit, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.OrderEdit), args.Error(1)
}

func (m *MockEditRepository) FindOpenByOrderID(ctx context.Context, storeID, orderID uuid.UUID) (*order.OrderEdit, error) {
	args := m.Called(ctx, storeID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.OrderEdit), args.Error(1)
}

func (m *MockEditRepository) List(ctx context.Context, storeID, orderID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.OrderEdit], error) {
	args := m.Called(ctx, storeID, orderID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*order.OrderEdit]), args.Error(1)
}

func (m *MockEditRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	args := m.Called(ctx, storeID, id)
	return args.Error(0)
}

// MockCatalogProvider is a mock implementation of order.CatalogProvider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) VariantsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]order.Variant, error) {
	args := m.Called(ctx, storeID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]order.Variant), args.Error(1)
}

// MockLocationProvider is a mock implementation of order.LocationProvider
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) LocationsByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]order.Location, error) {
	args := m.Called(ctx, storeID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]order.Location), args.Error(1)
}

func (m *MockLocationProvider) DefaultLocation(ctx context.Context, storeID uuid.UUID) (order.Location, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(order.Location), args.Error(1)
}

// MockTaxSettingsProvider is a mock implementation of order.TaxSettingsProvider
type MockTaxSettingsProvider struct {
	mock.Mock
}

func (m *MockTaxSettingsProvider) ResolveTaxes(ctx context.Context, storeID uuid.UUID, countryCode string, productIDs []uuid.UUID, includeShipping bool) (order.TaxResolution, error) {
	args := m.Called(ctx, storeID, countryCode, productIDs, includeShipping)
	return args.Get(0).(order.TaxResolution), args.Error(1)
}

// MockFulfillmentProvider is a mock implementation of order.FulfillmentProvider
type MockFulfillmentProvider struct {
	mock.Mock
}

func (m *MockFulfillmentProvider) RestockCountersFor(ctx context.Context, storeID, orderID uuid.UUID) (map[uuid.UUID]order.RestockCounters, error) {
	args := m.Called(ctx, storeID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]order.RestockCounters), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Test helper functions
func newTestStoreID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestLocationID() uuid.UUID {
	return uuid.MustParse("22222222-2222-2222-2222-222222222222")
}

func createTestOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(newTestStoreID(), "#1001", valueobject.USD, false, false)
	require.NoError(t, err)
	o.CountryCode = "US"
	return o
}

func addTestItem(t *testing.T, o *order.Order, title, price string, quantity int) *order.LineItem {
	t.Helper()
	item, err := order.NewLineItem(o.ID, uuid.New(), uuid.New(), title, "SKU-"+title, decimal.RequireFromString(price), quantity, true, true)
	require.NoError(t, err)
	require.NoError(t, o.AddLineItem(item))
	return item
}
