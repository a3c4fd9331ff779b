package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// paidTestOrder builds an order with one taxed line, paid in full:
// 5 x 10.00 plus 10% tax, total 55.00.
func paidTestOrder(t *testing.T) (*order.Order, *order.LineItem) {
	t.Helper()
	o := createTestOrder(t)
	item := addTestItem(t, o, "Widget", "10.00", 5)
	require.NoError(t, o.ApplyLineTax(item.ID, order.TaxTargetLineItem, "VAT", decimal.RequireFromString("0.10"), false))
	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("55.00"), o.Currency)))
	return o, item
}

func defaultTestLocation() order.Location {
	return order.Location{ID: newTestLocationID(), Name: "Main", Default: true}
}

func TestRefundService_Suggest(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLocations := new(MockLocationProvider)
	mockFulfillments := new(MockFulfillmentProvider)
	service := NewRefundService(mockRepo, mockLocations, mockFulfillments)

	ctx := context.Background()
	o, item := paidTestOrder(t)

	mockRepo.On("FindByID", ctx, o.StoreID, o.ID).Return(o, nil)
	mockFulfillments.On("RestockCountersFor", ctx, o.StoreID, o.ID).
		Return(map[uuid.UUID]order.RestockCounters{}, nil)
	mockLocations.On("DefaultLocation", ctx, o.StoreID).Return(defaultTestLocation(), nil)

	result, err := service.Suggest(ctx, o.StoreID, o.ID, CalculateRefundRequest{
		LineItems: []RefundLineInput{
			{LineItemID: item.ID, Quantity: 2},
		},
		Gateway: "manual",
	})

	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Quantity)
	assert.Equal(t, 5, result.Lines[0].MaximumRefundable)
	assert.Equal(t, newTestLocationID(), result.Lines[0].LocationID)
	assert.True(t, result.Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, result.TotalTax.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, result.TransactionAmount.Equal(decimal.RequireFromString("22.00")))
	mockRepo.AssertExpectations(t)
	mockFulfillments.AssertExpectations(t)
}

func TestRefundService_Create(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLocations := new(MockLocationProvider)
	mockFulfillments := new(MockFulfillmentProvider)
	service := NewRefundService(mockRepo, mockLocations, mockFulfillments)

	ctx := context.Background()
	o, item := paidTestOrder(t)

	mockRepo.On("FindByID", ctx, o.StoreID, o.ID).Return(o, nil)
	mockFulfillments.On("RestockCountersFor", ctx, o.StoreID, o.ID).
		Return(map[uuid.UUID]order.RestockCounters{}, nil)
	mockLocations.On("DefaultLocation", ctx, o.StoreID).Return(defaultTestLocation(), nil)
	mockRepo.On("SaveWithLockAndEvents", ctx, o, mock.Anything).Return(nil)

	result, err := service.Create(ctx, o.StoreID, o.ID, CreateRefundRequest{
		CalculateRefundRequest: CalculateRefundRequest{
			LineItems: []RefundLineInput{
				{LineItemID: item.ID, Quantity: 2},
			},
			Gateway: "manual",
		},
		Note: "damaged in transit",
	})

	require.NoError(t, err)
	assert.Equal(t, "damaged in transit", result.Note)
	assert.True(t, result.TotalRefunded.Equal(decimal.RequireFromString("22.00")))
	require.Len(t, result.LineItems, 1)
	assert.Equal(t, 2, result.LineItems[0].Quantity)

	assert.True(t, o.MoneyInfo.TotalRefunded.Equal(decimal.RequireFromString("22.00")))
	assert.Equal(t, 3, item.RefundableQuantity)
	mockRepo.AssertExpectations(t)
}

func TestRefundService_Create_ExceedsRefundable(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLocations := new(MockLocationProvider)
	mockFulfillments := new(MockFulfillmentProvider)
	service := NewRefundService(mockRepo, mockLocations, mockFulfillments)

	ctx := context.Background()
	o, item := paidTestOrder(t)

	mockRepo.On("FindByID", ctx, o.StoreID, o.ID).Return(o, nil)
	mockFulfillments.On("RestockCountersFor", ctx, o.StoreID, o.ID).
		Return(map[uuid.UUID]order.RestockCounters{}, nil)
	mockLocations.On("DefaultLocation", ctx, o.StoreID).Return(defaultTestLocation(), nil)

	result, err := service.Create(ctx, o.StoreID, o.ID, CreateRefundRequest{
		CalculateRefundRequest: CalculateRefundRequest{
			LineItems: []RefundLineInput{
				{LineItemID: item.ID, Quantity: 6},
			},
		},
	})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "REFUND_EXCEEDS_REFUNDABLE", domainErr.Code)
}

func TestRefundService_Create_UnknownLocation(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLocations := new(MockLocationProvider)
	mockFulfillments := new(MockFulfillmentProvider)
	service := NewRefundService(mockRepo, mockLocations, mockFulfillments)

	ctx := context.Background()
	o, item := paidTestOrder(t)
	bogus := uuid.New()

	mockRepo.On("FindByID", ctx, o.StoreID, o.ID).Return(o, nil)
	mockFulfillments.On("RestockCountersFor", ctx, o.StoreID, o.ID).
		Return(map[uuid.UUID]order.RestockCounters{}, nil)
	mockLocations.On("LocationsByIDs", ctx, o.StoreID, []uuid.UUID{bogus}).
		Return(map[uuid.UUID]order.Location{}, nil)
	mockLocations.On("DefaultLocation", ctx, o.StoreID).Return(defaultTestLocation(), nil)

	_, err := service.Suggest(ctx, o.StoreID, o.ID, CalculateRefundRequest{
		LineItems: []RefundLineInput{
			{LineItemID: item.ID, Quantity: 1, LocationID: &bogus},
		},
	})

	var validationErr *shared.ValidationErrors
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "LOCATION_NOT_FOUND", validationErr.Errors[0].Code)
}

func TestRefundService_RefundableLineItems(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := NewRefundService(mockRepo, new(MockLocationProvider), new(MockFulfillmentProvider))

	ctx := context.Background()
	o, item := paidTestOrder(t)

	mockRepo.On("FindByID", ctx, o.StoreID, o.ID).Return(o, nil)

	result, err := service.RefundableLineItems(ctx, o.StoreID, o.ID)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, item.ID, result[0].LineItemID)
	assert.Equal(t, 5, result[0].MaximumRefundable)
	mockRepo.AssertExpectations(t)
}
