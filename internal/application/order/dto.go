package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// CreateOrderLineInput is one line item in the create order request. A
// variant id pulls title and price from the catalog; without one the line
// is custom and must carry its own title and price.
type CreateOrderLineInput struct {
	VariantID        *uuid.UUID       `json:"variant_id"`
	Title            string           `json:"title"`
	Price            *decimal.Decimal `json:"price"`
	Quantity         int              `json:"quantity" binding:"required,min=1"`
	Taxable          bool             `json:"taxable"`
	RequiresShipping bool             `json:"requires_shipping"`
}

// CreateShippingLineInput is one shipping charge in the create request
type CreateShippingLineInput struct {
	Title string          `json:"title" binding:"required,min=1,max=200"`
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price" binding:"required"`
}

// OrderDiscountInput describes an order-level discount to apply at creation
type OrderDiscountInput struct {
	Title      string          `json:"title" binding:"required,min=1,max=200"`
	Code       string          `json:"code"`
	Value      decimal.Decimal `json:"value" binding:"required"`
	ValueType  string          `json:"value_type" binding:"required,oneof=fixed_amount percentage"`
	TargetType string          `json:"target_type" binding:"required,oneof=line_item shipping_line"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Currency      string                    `json:"currency" binding:"required,len=3"`
	CountryCode   string                    `json:"country_code" binding:"required,len=2"`
	TaxExempt     bool                      `json:"tax_exempt"`
	LineItems     []CreateOrderLineInput    `json:"line_items" binding:"required,min=1"`
	ShippingLines []CreateShippingLineInput `json:"shipping_lines"`
	Discount      *OrderDiscountInput       `json:"discount"`
	Note          string                    `json:"note"`
}

// RecordPaymentRequest registers captured money against an order. Currency
// is optional and defaults to the order's own.
type RecordPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"omitempty,len=3"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Search   string  `form:"search"`
	Status   *string `form:"status"`
	Page     int     `form:"page" binding:"min=0"`
	PageSize int     `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string  `form:"order_by"`
	OrderDir string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MoneyInfoResponse is the order money snapshot in API responses
type MoneyInfoResponse struct {
	SubtotalPrice    decimal.Decimal `json:"subtotal_price"`
	TotalDiscount    decimal.Decimal `json:"total_discount"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	TotalShipping    decimal.Decimal `json:"total_shipping"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalRefunded    decimal.Decimal `json:"total_refunded"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// TaxLineResponse is one tax row in API responses
type TaxLineResponse struct {
	ID       uuid.UUID       `json:"id"`
	Title    string          `json:"title"`
	Rate     decimal.Decimal `json:"rate"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Custom   bool            `json:"custom"`
}

// DiscountAllocationResponse is one allocation in API responses
type DiscountAllocationResponse struct {
	ApplicationIndex int             `json:"application_index"`
	Amount           decimal.Decimal `json:"amount"`
}

// LineItemResponse is one order line in API responses
type LineItemResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	VariantID           *uuid.UUID                   `json:"variant_id,omitempty"`
	Title               string                       `json:"title"`
	SKU                 string                       `json:"sku,omitempty"`
	Price               decimal.Decimal              `json:"price"`
	Quantity            int                          `json:"quantity"`
	FulfillableQuantity int                          `json:"fulfillable_quantity"`
	CurrentQuantity     int                          `json:"current_quantity"`
	RefundableQuantity  int                          `json:"refundable_quantity"`
	Taxable             bool                         `json:"taxable"`
	Custom              bool                         `json:"custom"`
	TotalDiscount       decimal.Decimal              `json:"total_discount"`
	TotalTax            decimal.Decimal              `json:"total_tax"`
	Allocations         []DiscountAllocationResponse `json:"allocations,omitempty"`
	TaxLines            []TaxLineResponse            `json:"tax_lines,omitempty"`
}

// ShippingLineResponse is one shipping charge in API responses
type ShippingLineResponse struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Code          string            `json:"code,omitempty"`
	Price         decimal.Decimal   `json:"price"`
	TotalDiscount decimal.Decimal   `json:"total_discount"`
	TotalTax      decimal.Decimal   `json:"total_tax"`
	TaxLines      []TaxLineResponse `json:"tax_lines,omitempty"`
}

// DiscountApplicationResponse is one discount source in API responses
type DiscountApplicationResponse struct {
	Position   int             `json:"position"`
	Title      string          `json:"title"`
	Code       string          `json:"code,omitempty"`
	Value      decimal.Decimal `json:"value"`
	ValueType  string          `json:"value_type"`
	TargetType string          `json:"target_type"`
	RuleType   string          `json:"rule_type"`
}

// MergedTaxLineResponse is one logical tax row net of refunds
type MergedTaxLineResponse struct {
	Title    string          `json:"title"`
	Rate     decimal.Decimal `json:"rate"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Custom   bool            `json:"custom"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             uuid.UUID                     `json:"id"`
	StoreID        uuid.UUID                     `json:"store_id"`
	Number         string                        `json:"number"`
	Currency       string                        `json:"currency"`
	Status         string                        `json:"status"`
	TaxExempt      bool                          `json:"tax_exempt"`
	TaxIncluded    bool                          `json:"tax_included"`
	CountryCode    string                        `json:"country_code,omitempty"`
	Note           string                        `json:"note,omitempty"`
	MoneyInfo      MoneyInfoResponse             `json:"money_info"`
	LineItems      []LineItemResponse            `json:"line_items"`
	ShippingLines  []ShippingLineResponse        `json:"shipping_lines,omitempty"`
	Applications   []DiscountApplicationResponse `json:"discount_applications,omitempty"`
	MergedTaxLines []MergedTaxLineResponse       `json:"merged_tax_lines,omitempty"`
	Version        int                           `json:"version"`
	CreatedAt      time.Time                     `json:"created_at"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

// OrderListItemResponse is the compact order shape for list endpoints
type OrderListItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	Number     string          `json:"number"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ==================== Refund DTOs ====================

// RefundLineInput is one line item's slice of a refund request
type RefundLineInput struct {
	LineItemID  uuid.UUID  `json:"line_item_id" binding:"required"`
	Quantity    int        `json:"quantity" binding:"required,min=1"`
	RestockType string     `json:"restock_type" binding:"omitempty,oneof=no_restock cancel return"`
	LocationID  *uuid.UUID `json:"location_id"`
	RemoveLine  bool       `json:"remove_line"`
}

// CalculateRefundRequest asks for a refund suggestion without persisting
type CalculateRefundRequest struct {
	LineItems      []RefundLineInput `json:"line_items"`
	ShippingAmount *decimal.Decimal  `json:"shipping_amount"`
	FullShipping   bool              `json:"full_shipping"`
	Gateway        string            `json:"gateway"`
}

// CreateRefundRequest creates a refund from the same inputs
type CreateRefundRequest struct {
	CalculateRefundRequest
	Note string `json:"note"`
}

// SuggestedRefundLineResponse is one priced refund line in the suggestion
type SuggestedRefundLineResponse struct {
	LineItemID        uuid.UUID       `json:"line_item_id"`
	Quantity          int             `json:"quantity"`
	MaximumRefundable int             `json:"maximum_refundable"`
	RestockType       string          `json:"restock_type"`
	LocationID        uuid.UUID       `json:"location_id"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	TotalTax          decimal.Decimal `json:"total_tax"`
}

// RefundSuggestionResponse is the refund calculator's answer
type RefundSuggestionResponse struct {
	Lines             []SuggestedRefundLineResponse `json:"lines"`
	ShippingAmount    decimal.Decimal               `json:"shipping_amount"`
	ShippingTax       decimal.Decimal               `json:"shipping_tax"`
	ShippingMaximum   decimal.Decimal               `json:"shipping_maximum"`
	Subtotal          decimal.Decimal               `json:"subtotal"`
	TotalTax          decimal.Decimal               `json:"total_tax"`
	Total             decimal.Decimal               `json:"total"`
	TransactionAmount decimal.Decimal               `json:"transaction_amount"`
}

// RefundResponse represents a persisted refund
type RefundResponse struct {
	ID            uuid.UUID            `json:"id"`
	OrderID       uuid.UUID            `json:"order_id"`
	Note          string               `json:"note,omitempty"`
	TotalRefunded decimal.Decimal      `json:"total_refunded"`
	LineItems     []RefundLineResponse `json:"line_items"`
	CreatedAt     time.Time            `json:"created_at"`
}

// RefundLineResponse is one line of a persisted refund
type RefundLineResponse struct {
	LineItemID  uuid.UUID       `json:"line_item_id"`
	Quantity    int             `json:"quantity"`
	RestockType string          `json:"restock_type"`
	LocationID  uuid.UUID       `json:"location_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TotalTax    decimal.Decimal `json:"total_tax"`
}

// ==================== Order Edit DTOs ====================

// AddVariantRequest stages adding a catalog variant to the order
type AddVariantRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// AddCustomItemRequest stages adding a custom line item
type AddCustomItemRequest struct {
	Title            string           `json:"title"`
	Price            *decimal.Decimal `json:"price"`
	Quantity         int              `json:"quantity"`
	Taxable          bool             `json:"taxable"`
	RequiresShipping bool             `json:"requires_shipping"`
}

// UpdateAddedItemRequest rewrites a staged addition's quantity
type UpdateAddedItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// SetLineItemQuantityRequest stages a quantity change on an existing line
type SetLineItemQuantityRequest struct {
	LineItemID uuid.UUID `json:"line_item_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"min=0"`
	Restock    bool      `json:"restock"`
}

// AddItemDiscountRequest stages a discount against a line item
type AddItemDiscountRequest struct {
	TargetID  uuid.UUID       `json:"target_id" binding:"required"`
	Title     string          `json:"title" binding:"required,min=1,max=200"`
	Value     decimal.Decimal `json:"value" binding:"required"`
	ValueType string          `json:"value_type" binding:"required,oneof=fixed_amount percentage"`
}

// CommitOrderEditRequest commits the staged ledger into the order
type CommitOrderEditRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// StagedChangeResponse is one ledger entry in API responses
type StagedChangeResponse struct {
	ID      uuid.UUID                `json:"id"`
	Kind    string                   `json:"kind"`
	Payload order.StagedChangePayload `json:"payload"`
}

// AddedLineItemResponse is one staged addition in API responses
type AddedLineItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	VariantID     *uuid.UUID      `json:"variant_id,omitempty"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Quantity      int             `json:"quantity"`
	Custom        bool            `json:"custom"`
}

// OrderEditResponse represents an order edit ledger in API responses
type OrderEditResponse struct {
	ID                       uuid.UUID               `json:"id"`
	OrderID                  uuid.UUID               `json:"order_id"`
	Status                   string                  `json:"status"`
	Currency                 string                  `json:"currency"`
	SubtotalLineItemQuantity int                     `json:"subtotal_line_item_quantity"`
	SubtotalPrice            decimal.Decimal         `json:"subtotal_price"`
	CartDiscountAmount       decimal.Decimal         `json:"cart_discount_amount"`
	TotalTax                 decimal.Decimal         `json:"total_tax"`
	TotalPrice               decimal.Decimal         `json:"total_price"`
	TotalOutstanding         decimal.Decimal         `json:"total_outstanding"`
	StagedChanges            []StagedChangeResponse  `json:"staged_changes"`
	AddedLineItems           []AddedLineItemResponse `json:"added_line_items"`
	CommittedAt              *time.Time              `json:"committed_at,omitempty"`
	Version                  int                     `json:"version"`
	CreatedAt                time.Time               `json:"created_at"`
}

// ==================== Mappers ====================

// ToOrderResponse maps an order aggregate to its API shape
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		StoreID:     o.StoreID,
		Number:      o.Number,
		Currency:    string(o.Currency),
		Status:      string(o.Status),
		TaxExempt:   o.TaxExempt,
		TaxIncluded: o.TaxIncluded,
		CountryCode: o.CountryCode,
		Note:        o.Note,
		MoneyInfo: MoneyInfoResponse{
			SubtotalPrice:    o.MoneyInfo.SubtotalPrice,
			TotalDiscount:    o.MoneyInfo.TotalDiscount,
			TotalTax:         o.MoneyInfo.TotalTax,
			TotalShipping:    o.MoneyInfo.TotalShipping,
			TotalPrice:       o.MoneyInfo.TotalPrice,
			TotalReceived:    o.MoneyInfo.TotalReceived,
			TotalRefunded:    o.MoneyInfo.TotalRefunded,
			TotalOutstanding: o.MoneyInfo.TotalOutstanding,
		},
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	for _, item := range o.LineItems {
		resp.LineItems = append(resp.LineItems, toLineItemResponse(item))
	}
	for _, line := range o.ShippingLines {
		resp.ShippingLines = append(resp.ShippingLines, toShippingLineResponse(line))
	}
	for _, app := range o.Applications {
		resp.Applications = append(resp.Applications, DiscountApplicationResponse{
			Position:   app.Position,
			Title:      app.Title,
			Code:       app.Code,
			Value:      app.Value,
			ValueType:  string(app.ValueType),
			TargetType: string(app.TargetType),
			RuleType:   string(app.RuleType),
		})
	}
	for _, merged := range o.MergedTaxLines() {
		resp.MergedTaxLines = append(resp.MergedTaxLines, MergedTaxLineResponse{
			Title:    merged.Title,
			Rate:     merged.Rate,
			Price:    merged.Price,
			Quantity: merged.Quantity,
			Custom:   merged.Custom,
		})
	}
	return resp
}

func toLineItemResponse(item *order.LineItem) LineItemResponse {
	resp := LineItemResponse{
		ID:                  item.ID,
		Title:               item.Title,
		SKU:                 item.SKU,
		Price:               item.Price,
		Quantity:            item.Quantity,
		FulfillableQuantity: item.FulfillableQuantity,
		CurrentQuantity:     item.CurrentQuantity,
		RefundableQuantity:  item.RefundableQuantity,
		Taxable:             item.Taxable,
		Custom:              item.Custom,
		TotalDiscount:       item.TotalDiscount(),
		TotalTax:            item.TotalTax(),
	}
	if item.VariantID != uuid.Nil {
		variantID := item.VariantID
		resp.VariantID = &variantID
	}
	for _, alloc := range item.Allocations {
		resp.Allocations = append(resp.Allocations, DiscountAllocationResponse{
			ApplicationIndex: alloc.ApplicationIndex,
			Amount:           alloc.Amount,
		})
	}
	for _, tax := range item.TaxLines {
		resp.TaxLines = append(resp.TaxLines, toTaxLineResponse(tax))
	}
	return resp
}

func toShippingLineResponse(line *order.ShippingLine) ShippingLineResponse {
	resp := ShippingLineResponse{
		ID:            line.ID,
		Title:         line.Title,
		Code:          line.Code,
		Price:         line.Price,
		TotalDiscount: line.TotalDiscount(),
		TotalTax:      line.TotalTax(),
	}
	for _, tax := range line.TaxLines {
		resp.TaxLines = append(resp.TaxLines, toTaxLineResponse(tax))
	}
	return resp
}

func toTaxLineResponse(tax *order.TaxLine) TaxLineResponse {
	return TaxLineResponse{
		ID:       tax.ID,
		Title:    tax.Title,
		Rate:     tax.Rate,
		Price:    tax.Price,
		Quantity: tax.Quantity,
		Custom:   tax.Custom,
	}
}

// ToOrderListItemResponse maps an order to its compact list shape
func ToOrderListItemResponse(o *order.Order) OrderListItemResponse {
	return OrderListItemResponse{
		ID:         o.ID,
		Number:     o.Number,
		Currency:   string(o.Currency),
		Status:     string(o.Status),
		TotalPrice: o.MoneyInfo.TotalPrice,
		ItemCount:  len(o.LineItems),
		CreatedAt:  o.CreatedAt,
	}
}

// ToRefundSuggestionResponse maps a calculator suggestion to its API shape
func ToRefundSuggestionResponse(s *order.RefundSuggestion) RefundSuggestionResponse {
	resp := RefundSuggestionResponse{
		ShippingAmount:  s.Shipping.Amount,
		ShippingTax:     s.Shipping.Tax,
		ShippingMaximum: s.Shipping.MaximumRefundable,
		Subtotal:        s.Subtotal,
		TotalTax:        s.TotalTax,
		Total:           s.Total,
	}
	for _, line := range s.Lines {
		resp.Lines = append(resp.Lines, SuggestedRefundLineResponse{
			LineItemID:        line.LineItemID,
			Quantity:          line.Quantity,
			MaximumRefundable: line.MaximumRefundable,
			RestockType:       string(line.RestockType),
			LocationID:        line.LocationID,
			Subtotal:          line.Subtotal,
			TotalTax:          line.TotalTax,
		})
	}
	for _, tx := range s.Transactions {
		resp.TransactionAmount = resp.TransactionAmount.Add(tx.Amount)
	}
	return resp
}

// ToRefundResponse maps a persisted refund to its API shape
func ToRefundResponse(r *order.Refund) RefundResponse {
	resp := RefundResponse{
		ID:            r.ID,
		OrderID:       r.OrderID,
		Note:          r.Note,
		TotalRefunded: r.TotalRefunded,
		CreatedAt:     r.CreatedAt,
	}
	for _, item := range r.LineItems {
		resp.LineItems = append(resp.LineItems, RefundLineResponse{
			LineItemID:  item.LineItemID,
			Quantity:    item.Quantity,
			RestockType: string(item.RestockType),
			LocationID:  item.LocationID,
			Subtotal:    item.Subtotal,
			TotalTax:    item.TotalTax,
		})
	}
	return resp
}

// ToOrderEditResponse maps an edit ledger to its API shape
func ToOrderEditResponse(e *order.OrderEdit) OrderEditResponse {
	resp := OrderEditResponse{
		ID:                       e.ID,
		OrderID:                  e.OrderID,
		Status:                   string(e.Status),
		Currency:                 string(e.Currency),
		SubtotalLineItemQuantity: e.SubtotalLineItemQuantity,
		SubtotalPrice:            e.SubtotalPrice,
		CartDiscountAmount:       e.CartDiscountAmount,
		TotalTax:                 e.TotalTax,
		TotalPrice:               e.TotalPrice,
		TotalOutstanding:         e.TotalOutstanding,
		CommittedAt:              e.CommittedAt,
		Version:                  e.Version,
		CreatedAt:                e.CreatedAt,
	}
	for _, change := range e.StagedChanges {
		resp.StagedChanges = append(resp.StagedChanges, StagedChangeResponse{
			ID:      change.ID,
			Kind:    string(change.Kind()),
			Payload: change.Payload,
		})
	}
	for _, added := range e.AddedLineItems {
		item := AddedLineItemResponse{
			ID:            added.ID,
			Title:         added.Title,
			Price:         added.Price,
			OriginalPrice: added.OriginalPrice,
			Quantity:      added.Quantity,
			Custom:        added.Custom,
		}
		if added.VariantID != uuid.Nil {
			variantID := added.VariantID
			item.VariantID = &variantID
		}
		resp.AddedLineItems = append(resp.AddedLineItems, item)
	}
	return resp
}
