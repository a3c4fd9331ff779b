package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/infrastructure/telemetry"
)

// RefundService prices and persists refunds against orders
type RefundService struct {
	orderRepo    order.Repository
	locations    order.LocationProvider
	fulfillments order.FulfillmentProvider
	calculator   *order.RefundCalculator
}

// NewRefundService creates a new RefundService
func NewRefundService(orderRepo order.Repository, locations order.LocationProvider, fulfillments order.FulfillmentProvider) *RefundService {
	return &RefundService{
		orderRepo:    orderRepo,
		locations:    locations,
		fulfillments: fulfillments,
		calculator:   order.NewRefundCalculator(),
	}
}

// Suggest prices a refund request without persisting anything
func (s *RefundService) Suggest(ctx context.Context, storeID, orderID uuid.UUID, req CalculateRefundRequest) (*RefundSuggestionResponse, error) {
	_, suggestion, err := s.calculate(ctx, storeID, orderID, req)
	if err != nil {
		return nil, err
	}
	response := ToRefundSuggestionResponse(suggestion)
	return &response, nil
}

// Create prices the request, materializes the refund and persists it onto
// the order together with its event in one transaction.
func (s *RefundService) Create(ctx context.Context, storeID, orderID uuid.UUID, req CreateRefundRequest) (resp *RefundResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "refund", "create",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	o, suggestion, err := s.calculate(ctx, storeID, orderID, req.CalculateRefundRequest)
	if err != nil {
		return nil, err
	}

	refund, taxRefunds, err := s.calculator.BuildRefund(o, suggestion, req.Note)
	if err != nil {
		return nil, err
	}
	if err := o.AddRefund(refund, taxRefunds); err != nil {
		return nil, err
	}

	events := o.GetDomainEvents()
	if err := s.orderRepo.SaveWithLockAndEvents(ctx, o, events); err != nil {
		return nil, err
	}
	o.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRefundID, refund.ID,
		telemetry.SpanAttrAmount, refund.TotalRefunded.String(),
	)

	response := ToRefundResponse(refund)
	return &response, nil
}

// RefundableLineItems lists what an order can still refund
func (s *RefundService) RefundableLineItems(ctx context.Context, storeID, orderID uuid.UUID) ([]SuggestedRefundLineResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	var out []SuggestedRefundLineResponse
	for _, item := range s.calculator.RefundableLineItems(o) {
		out = append(out, SuggestedRefundLineResponse{
			LineItemID:        item.LineItemID,
			MaximumRefundable: item.MaximumRefundable,
		})
	}
	return out, nil
}

// List returns the order's persisted refunds
func (s *RefundService) List(ctx context.Context, storeID, orderID uuid.UUID) ([]RefundResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]RefundResponse, 0, len(o.Refunds))
	for _, refund := range o.Refunds {
		out = append(out, ToRefundResponse(refund))
	}
	return out, nil
}

// calculate loads the order and runs the calculator with pre-resolved
// fulfillment counters and locations.
func (s *RefundService) calculate(ctx context.Context, storeID, orderID uuid.UUID, req CalculateRefundRequest) (*order.Order, *order.RefundSuggestion, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, nil, err
	}

	counters, err := s.fulfillments.RestockCountersFor(ctx, storeID, orderID)
	if err != nil {
		return nil, nil, err
	}
	index, err := s.locationIndex(ctx, storeID, req, counters)
	if err != nil {
		return nil, nil, err
	}

	domainReq := order.RefundRequest{
		ShippingAmount: req.ShippingAmount,
		FullShipping:   req.FullShipping,
		Gateway:        req.Gateway,
	}
	for _, input := range req.LineItems {
		line := order.RefundRequestLine{
			LineItemID:  input.LineItemID,
			Quantity:    input.Quantity,
			RestockType: order.RestockType(input.RestockType),
			RemoveLine:  input.RemoveLine,
		}
		if input.LocationID != nil {
			line.LocationID = *input.LocationID
		}
		domainReq.LineItems = append(domainReq.LineItems, line)
	}

	suggestion, err := s.calculator.CalculateRefund(o, domainReq, counters, index)
	if err != nil {
		return nil, nil, err
	}
	return o, suggestion, nil
}

// locationIndex resolves the location universe for one request: every
// explicitly requested id, every fulfillment location, and the store
// default.
func (s *RefundService) locationIndex(ctx context.Context, storeID uuid.UUID, req CalculateRefundRequest, counters map[uuid.UUID]order.RestockCounters) (order.LocationIndex, error) {
	var ids []uuid.UUID
	for _, input := range req.LineItems {
		if input.LocationID != nil {
			ids = append(ids, *input.LocationID)
		}
	}
	for _, c := range counters {
		if c.FulfillmentLocationID != uuid.Nil {
			ids = append(ids, c.FulfillmentLocationID)
		}
	}

	index := order.LocationIndex{Valid: make(map[uuid.UUID]bool)}
	if len(ids) > 0 {
		known, err := s.locations.LocationsByIDs(ctx, storeID, ids)
		if err != nil {
			return order.LocationIndex{}, err
		}
		for id := range known {
			index.Valid[id] = true
		}
	}

	fallback, err := s.locations.DefaultLocation(ctx, storeID)
	if err == nil {
		index.DefaultID = fallback.ID
		index.Valid[fallback.ID] = true
	}
	return index, nil
}
