package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// OrderEditService drives the staged change ledger: open an edit, stage
// additions, quantity changes and discounts against it, then commit the
// whole ledger into the order in one transaction.
type OrderEditService struct {
	orderRepo      order.Repository
	editRepo       order.EditRepository
	catalog        order.CatalogProvider
	taxSettings    order.TaxSettingsProvider
	locations      order.LocationProvider
	fulfillments   order.FulfillmentProvider
	calculator     *order.RefundCalculator
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
}

// NewOrderEditService creates a new OrderEditService
func NewOrderEditService(
	orderRepo order.Repository,
	editRepo order.EditRepository,
	catalog order.CatalogProvider,
	taxSettings order.TaxSettingsProvider,
	locations order.LocationProvider,
	fulfillments order.FulfillmentProvider,
	idempotency shared.IdempotencyStore,
) *OrderEditService {
	return &OrderEditService{
		orderRepo:      orderRepo,
		editRepo:       editRepo,
		catalog:        catalog,
		taxSettings:    taxSettings,
		locations:      locations,
		fulfillments:   fulfillments,
		calculator:     order.NewRefundCalculator(),
		idempotency:    idempotency,
		idempotencyCfg: shared.DefaultIdempotencyConfig(),
	}
}

// Begin opens a new edit ledger for an order. An order carries at most one
// open edit at a time.
func (s *OrderEditService) Begin(ctx context.Context, storeID, orderID uuid.UUID) (*OrderEditResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.editRepo.FindOpenByOrderID(ctx, storeID, orderID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("EDIT_ALREADY_OPEN", "Order already has an open edit")
	}

	edit, err := order.BeginOrderEdit(o)
	if err != nil {
		return nil, err
	}
	if err := s.editRepo.Save(ctx, edit); err != nil {
		return nil, err
	}

	response := ToOrderEditResponse(edit)
	return &response, nil
}

// GetByID retrieves an edit ledger by id
func (s *OrderEditService) GetByID(ctx context.Context, storeID, editID uuid.UUID) (*OrderEditResponse, error) {
	edit, err := s.editRepo.FindByID(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	response := ToOrderEditResponse(edit)
	return &response, nil
}

// List retrieves an order's edit ledgers, newest first
func (s *OrderEditService) List(ctx context.Context, storeID, orderID uuid.UUID, filter shared.Filter) ([]OrderEditResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}

	page, err := s.editRepo.List(ctx, storeID, orderID, filter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]OrderEditResponse, 0, len(page.Items))
	for _, edit := range page.Items {
		items = append(items, ToOrderEditResponse(edit))
	}
	return items, page.Total, nil
}

// AddVariant stages adding a catalog variant to the order
func (s *OrderEditService) AddVariant(ctx context.Context, storeID, editID uuid.UUID, req AddVariantRequest) (*OrderEditResponse, error) {
	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}

	variants, err := s.catalog.VariantsByIDs(ctx, storeID, []uuid.UUID{req.VariantID})
	if err != nil {
		return nil, err
	}
	variant, ok := variants[req.VariantID]
	if !ok {
		return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found: "+req.VariantID.String())
	}

	rates, err := s.ratesFor(ctx, edit, o, variant.ProductID, variant.Taxable)
	if err != nil {
		return nil, err
	}
	if _, err := edit.AddVariant(variant, req.Quantity, rates); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// AddCustomItem stages adding a line item with no catalog backing
func (s *OrderEditService) AddCustomItem(ctx context.Context, storeID, editID uuid.UUID, req AddCustomItemRequest) (*OrderEditResponse, error) {
	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	rates, err := s.ratesFor(ctx, edit, o, uuid.Nil, req.Taxable)
	if err != nil {
		return nil, err
	}
	if _, err := edit.AddCustomItem(req.Title, req.Price, req.Quantity, req.Taxable, req.RequiresShipping, rates); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// UpdateAddedItemQuantity rewrites a staged addition's quantity in place
func (s *OrderEditService) UpdateAddedItemQuantity(ctx context.Context, storeID, editID, addedLineItemID uuid.UUID, req UpdateAddedItemRequest) (*OrderEditResponse, error) {
	edit, err := s.editRepo.FindByID(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	if err := edit.UpdateAddedItemQuantity(addedLineItemID, req.Quantity); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// RemoveAddedItem drops a staged addition and everything hanging off it
func (s *OrderEditService) RemoveAddedItem(ctx context.Context, storeID, editID, addedLineItemID uuid.UUID) (*OrderEditResponse, error) {
	edit, err := s.editRepo.FindByID(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	if err := edit.RemoveAddedItem(addedLineItemID); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// SetLineItemQuantity stages a quantity change on an existing order line.
// Setting the quantity back to the fulfillable quantity clears any staged
// change for that line.
func (s *OrderEditService) SetLineItemQuantity(ctx context.Context, storeID, editID uuid.UUID, req SetLineItemQuantityRequest) (*OrderEditResponse, error) {
	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	if err := edit.SetLineItemQuantity(o, req.LineItemID, req.Quantity, req.Restock); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// AddItemDiscount stages a discount against a staged addition or an
// existing order line.
func (s *OrderEditService) AddItemDiscount(ctx context.Context, storeID, editID uuid.UUID, req AddItemDiscountRequest) (*OrderEditResponse, error) {
	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	rates, err := s.ratesForTarget(ctx, edit, o, req.TargetID)
	if err != nil {
		return nil, err
	}
	if err := edit.AddItemDiscount(o, req.TargetID, req.Title, req.Value, order.DiscountValueType(req.ValueType), rates); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// RemoveItemDiscount drops a staged discount, restoring the target's
// price and tax.
func (s *OrderEditService) RemoveItemDiscount(ctx context.Context, storeID, editID, targetID uuid.UUID) (*OrderEditResponse, error) {
	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	rates, err := s.ratesForTarget(ctx, edit, o, targetID)
	if err != nil {
		return nil, err
	}
	if err := edit.RemoveItemDiscount(targetID, rates); err != nil {
		return nil, err
	}
	return s.saveEdit(ctx, edit)
}

// Commit replays the staged ledger into the order: staged additions become
// real line items, increments raise quantities with their tax delta,
// decrements turn into one refund with restock resolved against live
// fulfillment counters, and staged discounts on existing lines are
// applied. The order and the committed ledger are persisted together with
// the edit event; an idempotency key makes retries safe.
func (s *OrderEditService) Commit(ctx context.Context, storeID, editID uuid.UUID, req CommitOrderEditRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_edit", "commit",
		telemetry.WithAttribute(telemetry.SpanAttrEditID, editID))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if req.IdempotencyKey != "" && s.idempotency != nil && s.idempotencyCfg.Enabled {
		processed, err := s.idempotency.IsProcessed(ctx, commitKey(editID, req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if processed {
			edit, err := s.editRepo.FindByID(ctx, storeID, editID)
			if err != nil {
				return nil, err
			}
			o, err := s.orderRepo.FindByID(ctx, storeID, edit.OrderID)
			if err != nil {
				return nil, err
			}
			response := ToOrderResponse(o)
			return &response, nil
		}
	}

	edit, o, err := s.loadEditWithOrder(ctx, storeID, editID)
	if err != nil {
		return nil, err
	}
	if err := edit.EnsureOpen(); err != nil {
		return nil, err
	}
	if err := o.EnsureEditable(); err != nil {
		return nil, err
	}

	items, err := edit.MaterializedLineItems(o)
	if err != nil {
		return nil, err
	}
	var newLineItems []uuid.UUID
	if len(items) > 0 {
		if err := o.AddNewLineItems(items); err != nil {
			return nil, err
		}
		for _, item := range items {
			newLineItems = append(newLineItems, item.ID)
		}
	}

	var updatedLineItems []uuid.UUID
	increments := edit.Increments()
	if len(increments) > 0 {
		deltaTaxes, err := s.incrementTaxRows(o, increments)
		if err != nil {
			return nil, err
		}
		if err := o.IncreaseLineItems(increments); err != nil {
			return nil, err
		}
		if len(deltaTaxes) > 0 {
			if err := o.ApplyNewTaxes(deltaTaxes); err != nil {
				return nil, err
			}
		}
		for lineItemID := range increments {
			updatedLineItems = append(updatedLineItems, lineItemID)
		}
	}

	for _, staged := range edit.ExistingLineDiscounts() {
		if err := o.ApplyCommittedLineDiscount(staged.TargetID, staged.Title, staged.Value, staged.ValueType); err != nil {
			return nil, err
		}
	}

	var restockLocations []uuid.UUID
	decrements := edit.Decrements()
	if len(decrements) > 0 {
		refund, taxRefunds, locationIDs, err := s.decrementRefund(ctx, storeID, o, decrements)
		if err != nil {
			return nil, err
		}
		if err := o.AddRefund(refund, taxRefunds); err != nil {
			return nil, err
		}
		restockLocations = locationIDs
		for _, dec := range decrements {
			updatedLineItems = append(updatedLineItems, dec.LineItemID)
		}
	}

	if err := edit.MarkCommitted(); err != nil {
		return nil, err
	}
	o.AddDomainEvent(order.NewOrderEditedEvent(storeID, o.ID, edit.ID, newLineItems, updatedLineItems, restockLocations, o.MoneyInfo.TotalPrice))

	events := o.GetDomainEvents()
	if err := s.orderRepo.SaveWithLockAndEvents(ctx, o, events); err != nil {
		return nil, err
	}
	o.ClearDomainEvents()
	if err := s.editRepo.SaveWithLock(ctx, edit); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil && s.idempotencyCfg.Enabled {
		if _, err := s.idempotency.MarkProcessed(ctx, commitKey(editID, req.IdempotencyKey), s.idempotencyCfg.TTL); err != nil {
			return nil, err
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID,
		telemetry.SpanAttrStagedCounts, len(edit.StagedChanges),
	)

	response := ToOrderResponse(o)
	return &response, nil
}

// incrementTaxRows builds the delta tax rows an increment adds, priced as
// the line's proportional tax share for the extra units. Rows are built
// against pre-increment quantities.
func (s *OrderEditService) incrementTaxRows(o *order.Order, increments map[uuid.UUID]int) ([]*order.TaxLine, error) {
	var rows []*order.TaxLine
	for lineItemID, delta := range increments {
		item, err := o.LineItemByID(lineItemID)
		if err != nil {
			return nil, err
		}
		for _, tl := range item.TaxLines {
			share := order.ProportionalShare(tl.Price, delta, tl.Quantity, o.Scale())
			if !share.IsPositive() {
				continue
			}
			row, err := order.NewTaxLine(o.ID, lineItemID, order.TaxTargetLineItem, tl.Title, tl.Rate, share, delta, tl.Custom, 0)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// decrementRefund turns the staged decrements into one refund. A decrement
// flagged for restock cancels unfulfilled units when the counters still
// cover the delta and returns them otherwise; restock locations fall back
// through fulfillment location to the store default.
func (s *OrderEditService) decrementRefund(ctx context.Context, storeID uuid.UUID, o *order.Order, decrements []order.DecrementItemPayload) (*order.Refund, map[uuid.UUID]decimal.Decimal, []uuid.UUID, error) {
	counters, err := s.fulfillments.RestockCountersFor(ctx, storeID, o.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	req := order.RefundRequest{Note: "Order edit", Gateway: "manual"}
	for _, dec := range decrements {
		line, err := o.LineItemByID(dec.LineItemID)
		if err != nil {
			return nil, nil, nil, err
		}
		restockType := order.RestockNone
		if dec.Restock {
			restockType = order.RestockReturn
			if counters[dec.LineItemID].Cancelable >= dec.Delta {
				restockType = order.RestockCancel
			}
		}
		req.LineItems = append(req.LineItems, order.RefundRequestLine{
			LineItemID:  dec.LineItemID,
			Quantity:    dec.Delta,
			RestockType: restockType,
			RemoveLine:  dec.Delta >= line.FulfillableQuantity,
		})
	}

	index, err := s.locationIndexFor(ctx, storeID, counters)
	if err != nil {
		return nil, nil, nil, err
	}
	suggestion, err := s.calculator.CalculateRefund(o, req, counters, index)
	if err != nil {
		return nil, nil, nil, err
	}
	refund, taxRefunds, err := s.calculator.BuildRefund(o, suggestion, req.Note)
	if err != nil {
		return nil, nil, nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var locationIDs []uuid.UUID
	for _, line := range refund.LineItems {
		if line.LocationID == uuid.Nil || seen[line.LocationID] {
			continue
		}
		seen[line.LocationID] = true
		locationIDs = append(locationIDs, line.LocationID)
	}
	return refund, taxRefunds, locationIDs, nil
}

// locationIndexFor resolves the location universe for an edit commit:
// fulfillment locations from the counters plus the store default.
func (s *OrderEditService) locationIndexFor(ctx context.Context, storeID uuid.UUID, counters map[uuid.UUID]order.RestockCounters) (order.LocationIndex, error) {
	var ids []uuid.UUID
	for _, c := range counters {
		if c.FulfillmentLocationID != uuid.Nil {
			ids = append(ids, c.FulfillmentLocationID)
		}
	}
	index := order.LocationIndex{Valid: make(map[uuid.UUID]bool)}
	if len(ids) > 0 {
		resolved, err := s.locations.LocationsByIDs(ctx, storeID, ids)
		if err != nil {
			return order.LocationIndex{}, err
		}
		for id := range resolved {
			index.Valid[id] = true
		}
	}
	if fallback, err := s.locations.DefaultLocation(ctx, storeID); err == nil {
		index.Valid[fallback.ID] = true
		index.DefaultID = fallback.ID
	}
	return index, nil
}

// ratesForTarget resolves tax rates for a discount target, which may be a
// staged addition or an existing order line.
func (s *OrderEditService) ratesForTarget(ctx context.Context, edit *order.OrderEdit, o *order.Order, targetID uuid.UUID) ([]order.ProductTaxRate, error) {
	if added, err := edit.AddedLineItemByID(targetID); err == nil {
		return s.ratesFor(ctx, edit, o, added.ProductID, added.Taxable)
	}
	line, err := o.LineItemByID(targetID)
	if err != nil {
		return nil, err
	}
	return s.ratesFor(ctx, edit, o, line.ProductID, line.Taxable)
}

// ratesFor resolves the tax rates an edit operation prices with. Tax
// exempt orders and non-taxable targets price without rates.
func (s *OrderEditService) ratesFor(ctx context.Context, edit *order.OrderEdit, o *order.Order, productID uuid.UUID, taxable bool) ([]order.ProductTaxRate, error) {
	if edit.TaxExempt || !taxable {
		return nil, nil
	}
	var productIDs []uuid.UUID
	if productID != uuid.Nil {
		productIDs = append(productIDs, productID)
	}
	resolution, err := s.taxSettings.ResolveTaxes(ctx, o.StoreID, o.CountryCode, productIDs, false)
	if err != nil {
		return nil, err
	}
	return resolution.Rates[productID], nil
}

func (s *OrderEditService) loadEditWithOrder(ctx context.Context, storeID, editID uuid.UUID) (*order.OrderEdit, *order.Order, error) {
	edit, err := s.editRepo.FindByID(ctx, storeID, editID)
	if err != nil {
		return nil, nil, err
	}
	o, err := s.orderRepo.FindByID(ctx, storeID, edit.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return edit, o, nil
}

func (s *OrderEditService) saveEdit(ctx context.Context, edit *order.OrderEdit) (*OrderEditResponse, error) {
	if err := s.editRepo.SaveWithLock(ctx, edit); err != nil {
		return nil, err
	}
	response := ToOrderEditResponse(edit)
	return &response, nil
}

func commitKey(editID uuid.UUID, key string) string {
	return "order-edit:commit:" + editID.String() + ":" + key
}
