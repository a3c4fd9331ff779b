package order

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/ordercore/backend/internal/infrastructure/telemetry"
)

// OrderService handles order creation, lookup and lifecycle operations
type OrderService struct {
	orderRepo   order.Repository
	catalog     order.CatalogProvider
	taxSettings order.TaxSettingsProvider
	idReserver  order.IDReserver
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo order.Repository, catalog order.CatalogProvider, taxSettings order.TaxSettingsProvider) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		catalog:     catalog,
		taxSettings: taxSettings,
	}
}

// SetIDReserver installs an id reserver so new line items get ordered
// pre-reserved ids instead of random ones
func (s *OrderService) SetIDReserver(reserver order.IDReserver) {
	s.idReserver = reserver
}

// Create creates a new order: variants and tax settings are resolved up
// front, the aggregate is built and priced in memory, then persisted once
// with its creation event.
func (s *OrderService) Create(ctx context.Context, storeID uuid.UUID, req CreateOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create",
		telemetry.WithAttribute("line_item_count", len(req.LineItems)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	var variantIDs []uuid.UUID
	for _, input := range req.LineItems {
		if input.VariantID != nil {
			variantIDs = append(variantIDs, *input.VariantID)
		}
	}
	variants := map[uuid.UUID]order.Variant{}
	if len(variantIDs) > 0 {
		var err error
		variants, err = s.catalog.VariantsByIDs(ctx, storeID, variantIDs)
		if err != nil {
			return nil, err
		}
	}

	number, err := s.orderRepo.GenerateOrderNumber(ctx, storeID)
	if err != nil {
		return nil, err
	}

	taxIncluded := false
	var resolution order.TaxResolution
	if !req.TaxExempt {
		productIDs := make([]uuid.UUID, 0, len(variants))
		for _, v := range variants {
			productIDs = append(productIDs, v.ProductID)
		}
		resolution, err = s.taxSettings.ResolveTaxes(ctx, storeID, req.CountryCode, productIDs, len(req.ShippingLines) > 0)
		if err != nil {
			return nil, err
		}
		taxIncluded = resolution.TaxIncluded
	}

	o, err := order.NewOrder(storeID, number, valueobject.Currency(req.Currency), req.TaxExempt, taxIncluded)
	if err != nil {
		return nil, err
	}
	o.Note = req.Note
	o.CountryCode = req.CountryCode

	errs := shared.NewValidationErrors()
	items := make([]*order.LineItem, 0, len(req.LineItems))
	for i, input := range req.LineItems {
		item, ferr := s.buildLineItem(o, input, variants, i, errs)
		if ferr != nil {
			return nil, ferr
		}
		if item != nil {
			items = append(items, item)
		}
	}
	if err := errs.AsError(); err != nil {
		return nil, err
	}
	if s.idReserver != nil && len(items) > 0 {
		ids, err := s.idReserver.Reserve(ctx, len(items))
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			item.ID = ids[i]
		}
	}
	for _, item := range items {
		if err := o.AddLineItem(item); err != nil {
			return nil, err
		}
	}

	for _, input := range req.ShippingLines {
		line, err := order.NewShippingLine(o.ID, input.Title, input.Code, input.Price)
		if err != nil {
			return nil, err
		}
		if err := o.AddShippingLine(line); err != nil {
			return nil, err
		}
	}

	if req.Discount != nil {
		err := o.ApplyOrderDiscount(
			req.Discount.Title,
			req.Discount.Code,
			req.Discount.Value,
			order.DiscountValueType(req.Discount.ValueType),
			order.DiscountTargetType(req.Discount.TargetType),
		)
		if err != nil {
			return nil, err
		}
	}

	if !req.TaxExempt {
		if err := s.applyResolvedTaxes(o, items, resolution); err != nil {
			return nil, err
		}
	}

	if err := o.Place(); err != nil {
		return nil, err
	}

	events := o.GetDomainEvents()
	if err := s.orderRepo.SaveWithLockAndEvents(ctx, o, events); err != nil {
		return nil, err
	}
	o.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID,
		telemetry.SpanAttrOrderNumber, o.Number,
	)

	response := ToOrderResponse(o)
	return &response, nil
}

func (s *OrderService) buildLineItem(o *order.Order, input CreateOrderLineInput, variants map[uuid.UUID]order.Variant, index int, errs *shared.ValidationErrors) (*order.LineItem, error) {
	field := func(name string) string {
		return "line_items[" + strconv.Itoa(index) + "]." + name
	}

	if input.VariantID != nil {
		variant, ok := variants[*input.VariantID]
		if !ok {
			return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found: "+input.VariantID.String())
		}
		return order.NewLineItem(o.ID, variant.ID, variant.ProductID, variant.Title, variant.SKU, variant.Price, input.Quantity, variant.Taxable, variant.RequiresShipping)
	}

	if input.Title == "" {
		errs.Add(field("title"), "INVALID_TITLE", "Custom line item title is required")
	}
	if input.Price == nil {
		errs.Add(field("price"), "MISSING_PRICE", "Custom line item price is required")
	}
	if input.Quantity <= 0 {
		errs.Add(field("quantity"), "INVALID_QUANTITY", "Line item quantity must be positive")
	}
	if errs.HasErrors() {
		return nil, nil
	}
	return order.NewCustomLineItem(o.ID, input.Title, *input.Price, input.Quantity, input.Taxable, input.RequiresShipping)
}

// applyResolvedTaxes attaches per-product tax rates to the order's lines
func (s *OrderService) applyResolvedTaxes(o *order.Order, items []*order.LineItem, resolution order.TaxResolution) error {
	for _, item := range items {
		if !item.Taxable || item.ProductID == uuid.Nil {
			continue
		}
		for _, rate := range resolution.Rates[item.ProductID] {
			if err := o.ApplyLineTax(item.ID, order.TaxTargetLineItem, rate.Title, rate.Rate, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetByID retrieves an order by id
func (s *OrderService) GetByID(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// GetByNumber retrieves an order by its number
func (s *OrderService) GetByNumber(ctx context.Context, storeID uuid.UUID, number string) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByNumber(ctx, storeID, number)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// List retrieves orders with filtering and pagination
func (s *OrderService) List(ctx context.Context, storeID uuid.UUID, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = *filter.Status
	}

	page, err := s.orderRepo.List(ctx, storeID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	items := make([]OrderListItemResponse, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, ToOrderListItemResponse(o))
	}
	return items, page.Total, nil
}

// RecordPayment registers captured money against an order. A request
// naming a currency other than the order's is refused.
func (s *OrderService) RecordPayment(ctx context.Context, storeID, orderID uuid.UUID, req RecordPaymentRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	currency := o.Currency
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	payment, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Unknown currency code")
	}
	if err := o.RecordPayment(payment); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// Close marks an order closed
func (s *OrderService) Close(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, storeID, orderID, (*order.Order).Close)
}

// Reopen moves a closed order back to open
func (s *OrderService) Reopen(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, storeID, orderID, (*order.Order).Reopen)
}

// Cancel marks an order cancelled
func (s *OrderService) Cancel(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, storeID, orderID, (*order.Order).Cancel)
}

func (s *OrderService) transition(ctx context.Context, storeID, orderID uuid.UUID, op func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if err := op(o); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}
