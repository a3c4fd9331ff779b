package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RefundRequestLine is one line item's slice of a refund request
type RefundRequestLine struct {
	LineItemID  uuid.UUID
	Quantity    int
	RestockType RestockType
	LocationID  uuid.UUID
	RemoveLine  bool
}

// RefundRequest describes what the caller wants refunded
type RefundRequest struct {
	LineItems      []RefundRequestLine
	ShippingAmount *decimal.Decimal
	FullShipping   bool
	Note           string
	Gateway        string
}

// RestockCounters carries per-line-item fulfillment state: how many units
// can still be cancelled before fulfillment, how many can come back after,
// and where fulfilled stock lives.
type RestockCounters struct {
	Cancelable            int
	Returnable            int
	FulfillmentLocationID uuid.UUID
}

// LocationIndex is the pre-resolved location universe for one request
type LocationIndex struct {
	Valid     map[uuid.UUID]bool
	DefaultID uuid.UUID
}

// Resolve picks the one location a refund line restocks into: the explicit
// request value, else the line's fulfillment location, else the store
// default. An unknown explicit id or an empty resolution fails.
func (idx LocationIndex) Resolve(requested, fulfillment uuid.UUID) (uuid.UUID, error) {
	if requested != uuid.Nil {
		if !idx.Valid[requested] {
			return uuid.Nil, shared.NewDomainError("LOCATION_NOT_FOUND", "Requested restock location does not exist")
		}
		return requested, nil
	}
	if fulfillment != uuid.Nil && idx.Valid[fulfillment] {
		return fulfillment, nil
	}
	if idx.DefaultID != uuid.Nil {
		return idx.DefaultID, nil
	}
	return uuid.Nil, shared.NewDomainError("LOCATION_REQUIRED", "Refund line does not resolve to a location")
}

// RestockSplit is one resolved (restock type, quantity) slice of a request
// line after checking it against fulfillment counters.
type RestockSplit struct {
	RestockType RestockType
	Quantity    int
}

// ResolveRestock splits a requested quantity against what the fulfillment
// counters allow. An unset restock type defaults to no restock. For cancel
// and return requests, units beyond what is cancelable or returnable spill
// into a second no-restock slice, so the split quantities always sum to
// the request.
func ResolveRestock(requested RestockType, quantity int, counters RestockCounters) []RestockSplit {
	if quantity <= 0 {
		return nil
	}
	if requested == "" || requested == RestockNone {
		return []RestockSplit{{RestockType: RestockNone, Quantity: quantity}}
	}

	available := 0
	switch requested {
	case RestockCancel:
		available = counters.Cancelable
	case RestockReturn:
		available = counters.Returnable
	}

	restockable := quantity
	if restockable > available {
		restockable = available
	}

	var splits []RestockSplit
	if restockable > 0 {
		splits = append(splits, RestockSplit{RestockType: requested, Quantity: restockable})
	}
	if remainder := quantity - restockable; remainder > 0 {
		splits = append(splits, RestockSplit{RestockType: RestockNone, Quantity: remainder})
	}
	return splits
}

// RefundableLineItem is one line the order can still refund against
type RefundableLineItem struct {
	LineItemID        uuid.UUID
	Title             string
	MaximumRefundable int
}

// SuggestedRefundLine is the calculator's priced answer for one request
// line slice.
type SuggestedRefundLine struct {
	LineItemID        uuid.UUID
	Quantity          int
	MaximumRefundable int
	RestockType       RestockType
	RemoveLine        bool
	LocationID        uuid.UUID
	Subtotal          decimal.Decimal
	TotalTax          decimal.Decimal
	TaxRefunds        map[uuid.UUID]decimal.Decimal
}

// SuggestedShipping is the calculator's shipping answer
type SuggestedShipping struct {
	Amount            decimal.Decimal
	Tax               decimal.Decimal
	MaximumRefundable decimal.Decimal
	FullRefund        bool
}

// SuggestedTransaction is one money movement the caller should execute
type SuggestedTransaction struct {
	Gateway string
	Amount  decimal.Decimal
}

// RefundSuggestion is the full calculator output: what can be refunded,
// what this request is worth, and the transactions that settle it.
type RefundSuggestion struct {
	Refundable   []RefundableLineItem
	Lines        []SuggestedRefundLine
	Shipping     SuggestedShipping
	Subtotal     decimal.Decimal
	TotalTax     decimal.Decimal
	Total        decimal.Decimal
	Transactions []SuggestedTransaction
}

// RefundCalculator prices refund requests against an order's history. It
// is pure computation: fulfillment counters and the location universe are
// resolved by the caller before it runs.
type RefundCalculator struct{}

// NewRefundCalculator creates a refund calculator
func NewRefundCalculator() *RefundCalculator {
	return &RefundCalculator{}
}

// RefundableLineItems lists the lines that still have refundable units:
// ordered quantity minus units refunded so far, skipping restocked lines
// and lines already fully refunded.
func (c *RefundCalculator) RefundableLineItems(o *Order) []RefundableLineItem {
	var out []RefundableLineItem
	for _, item := range o.LineItems {
		if item.IsRestocked() {
			continue
		}
		remaining := item.Quantity - o.RefundedQuantityFor(item.ID)
		if remaining <= 0 {
			continue
		}
		out = append(out, RefundableLineItem{
			LineItemID:        item.ID,
			Title:             item.Title,
			MaximumRefundable: remaining,
		})
	}
	return out
}

// CalculateRefund validates a refund request against the order and prices
// it. Field problems across the whole request are batched into one
// validation error; quantity overruns and unknown lines fail immediately.
func (c *RefundCalculator) CalculateRefund(o *Order, req RefundRequest, counters map[uuid.UUID]RestockCounters, locations LocationIndex) (*RefundSuggestion, error) {
	scale := o.Scale()
	suggestion := &RefundSuggestion{
		Refundable: c.RefundableLineItems(o),
		Subtotal:   decimal.Zero,
		TotalTax:   decimal.Zero,
		Total:      decimal.Zero,
	}
	maxByLine := make(map[uuid.UUID]int, len(suggestion.Refundable))
	for _, r := range suggestion.Refundable {
		maxByLine[r.LineItemID] = r.MaximumRefundable
	}

	errs := shared.NewValidationErrors()
	allRemoved := true
	for i, reqLine := range req.LineItems {
		item, err := o.LineItemByID(reqLine.LineItemID)
		if err != nil {
			return nil, err
		}
		if reqLine.Quantity <= 0 {
			errs.Add(fmt.Sprintf("line_items[%d].quantity", i), "INVALID_QUANTITY", "Refund quantity must be positive")
			continue
		}
		maximum := maxByLine[reqLine.LineItemID]
		if reqLine.Quantity > maximum {
			return nil, shared.NewDomainError("REFUND_EXCEEDS_REFUNDABLE", "Refund quantity exceeds refundable quantity")
		}
		if reqLine.RestockType != "" && !reqLine.RestockType.IsValid() {
			errs.Add(fmt.Sprintf("line_items[%d].restock_type", i), "INVALID_RESTOCK_TYPE", "Unknown restock type")
			continue
		}

		lineCounters := counters[reqLine.LineItemID]
		locationID, err := locations.Resolve(reqLine.LocationID, lineCounters.FulfillmentLocationID)
		if err != nil {
			var domainErr *shared.DomainError
			if de, ok := err.(*shared.DomainError); ok {
				domainErr = de
			} else {
				return nil, err
			}
			errs.Add(fmt.Sprintf("line_items[%d].location_id", i), domainErr.Code, domainErr.Message)
			continue
		}

		priced := c.priceLine(o, item, reqLine.Quantity, scale)
		splits := ResolveRestock(reqLine.RestockType, reqLine.Quantity, lineCounters)
		for _, share := range c.splitShares(priced, splits, reqLine.Quantity, scale) {
			share.RemoveLine = reqLine.RemoveLine
			share.LocationID = locationID
			share.MaximumRefundable = maximum
			suggestion.Lines = append(suggestion.Lines, share)
			suggestion.Subtotal = suggestion.Subtotal.Add(share.Subtotal)
			suggestion.TotalTax = suggestion.TotalTax.Add(share.TotalTax)
		}

		if reqLine.Quantity < maximum {
			allRemoved = false
		}
	}
	if err := errs.AsError(); err != nil {
		return nil, err
	}
	for _, r := range suggestion.Refundable {
		if !requestCovers(req, r.LineItemID) {
			allRemoved = false
		}
	}

	shipping, err := c.suggestShipping(o, req, allRemoved, scale)
	if err != nil {
		return nil, err
	}
	suggestion.Shipping = shipping

	suggestion.Total = suggestion.Subtotal.Add(suggestion.TotalTax).Add(shipping.Amount).Add(shipping.Tax)

	if o.MoneyInfo.CapturedMoney() && suggestion.Total.IsPositive() {
		amount := valueobject.MustMoney(suggestion.Total, o.Currency).Min(o.RefundableMoney())
		if amount.IsPositive() {
			suggestion.Transactions = append(suggestion.Transactions, SuggestedTransaction{
				Gateway: req.Gateway,
				Amount:  amount.Amount(),
			})
		}
	}
	return suggestion, nil
}

// priceLine computes the subtotal, tax and per-tax-row refunds one request
// line is worth. Untouched lines refunded in full get their exact
// remaining money; partially refunded or partially requested lines go
// through the proportional branch, every division using the one canonical
// rule of total times quantity over original quantity, rounded half up.
func (c *RefundCalculator) priceLine(o *Order, item *LineItem, quantity int, scale int32) SuggestedRefundLine {
	line := SuggestedRefundLine{
		LineItemID: item.ID,
		Quantity:   quantity,
		TaxRefunds: make(map[uuid.UUID]decimal.Decimal, len(item.TaxLines)),
	}

	refundedBefore := o.RefundedQuantityFor(item.ID)
	full := quantity == item.Quantity && refundedBefore == 0

	if full {
		line.Subtotal = item.Subtotal().Sub(item.TotalDiscount())
		if line.Subtotal.IsNegative() {
			line.Subtotal = decimal.Zero
		}
		for _, tl := range item.TaxLines {
			net := c.netTaxRemaining(o, tl)
			if net.IsPositive() {
				line.TaxRefunds[tl.ID] = net
				line.TotalTax = line.TotalTax.Add(net)
			}
		}
		return line
	}

	discounted := item.Subtotal().Sub(item.TotalDiscount())
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	line.Subtotal = ProportionalShare(discounted, quantity, item.Quantity, scale)
	if net := c.netSubtotalRemaining(o, item.ID, discounted); line.Subtotal.GreaterThan(net) {
		line.Subtotal = net
	}

	for _, tl := range item.TaxLines {
		share := ProportionalShare(tl.Price, quantity, item.Quantity, scale)
		net := c.netTaxRemaining(o, tl)
		if share.GreaterThan(net) {
			share = net
		}
		if share.IsPositive() {
			line.TaxRefunds[tl.ID] = share
			line.TotalTax = line.TotalTax.Add(share)
		}
	}
	return line
}

// splitShares carves a priced line into its restock splits. All but the
// last split are priced proportionally; the last absorbs the remainder so
// the splits always sum to exactly the priced line.
func (c *RefundCalculator) splitShares(priced SuggestedRefundLine, splits []RestockSplit, requested int, scale int32) []SuggestedRefundLine {
	out := make([]SuggestedRefundLine, 0, len(splits))
	remainingSubtotal := priced.Subtotal
	remainingTax := make(map[uuid.UUID]decimal.Decimal, len(priced.TaxRefunds))
	for taxLineID, amount := range priced.TaxRefunds {
		remainingTax[taxLineID] = amount
	}

	for i, split := range splits {
		share := SuggestedRefundLine{
			LineItemID:  priced.LineItemID,
			Quantity:    split.Quantity,
			RestockType: split.RestockType,
			TaxRefunds:  make(map[uuid.UUID]decimal.Decimal, len(priced.TaxRefunds)),
		}
		last := i == len(splits)-1
		if last {
			share.Subtotal = remainingSubtotal
			for taxLineID, amount := range remainingTax {
				if amount.IsPositive() {
					share.TaxRefunds[taxLineID] = amount
					share.TotalTax = share.TotalTax.Add(amount)
				}
			}
		} else {
			share.Subtotal = ProportionalShare(priced.Subtotal, split.Quantity, requested, scale)
			remainingSubtotal = remainingSubtotal.Sub(share.Subtotal)
			for taxLineID, amount := range priced.TaxRefunds {
				slice := ProportionalShare(amount, split.Quantity, requested, scale)
				if slice.IsPositive() {
					share.TaxRefunds[taxLineID] = slice
					share.TotalTax = share.TotalTax.Add(slice)
				}
				remainingTax[taxLineID] = remainingTax[taxLineID].Sub(slice)
			}
		}
		out = append(out, share)
	}
	return out
}

// netSubtotalRemaining is a line's discounted value minus subtotal money
// already refunded against it, floored at zero. Rounded-up partial shares
// are capped here, like tax shares are against netTaxRemaining.
func (c *RefundCalculator) netSubtotalRemaining(o *Order, lineItemID uuid.UUID, discounted decimal.Decimal) decimal.Decimal {
	refunded := decimal.Zero
	for _, refund := range o.Refunds {
		for _, rli := range refund.LineItems {
			if rli.LineItemID == lineItemID {
				refunded = refunded.Add(rli.Subtotal)
			}
		}
	}
	net := discounted.Sub(refunded)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// netTaxRemaining is a tax row's price minus tax already refunded against
// it, floored at zero.
func (c *RefundCalculator) netTaxRemaining(o *Order, tl *TaxLine) decimal.Decimal {
	refunded := decimal.Zero
	for _, rtl := range o.RefundTaxLines {
		if rtl.TaxLineID == tl.ID {
			refunded = refunded.Add(rtl.Amount)
		}
	}
	net := tl.Price.Sub(refunded)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// suggestShipping resolves the shipping slice of the request. A request
// above the refundable maximum fails. When no money was ever captured,
// only a refund covering every item and the full shipping maximum records
// a shipping adjustment; with money captured, a full refund takes the
// maximum and anything else takes exactly what was asked for.
func (c *RefundCalculator) suggestShipping(o *Order, req RefundRequest, allItemsRefunded bool, scale int32) (SuggestedShipping, error) {
	maximum := o.RemainingRefundableShipping()
	shipping := SuggestedShipping{
		Amount:            decimal.Zero,
		Tax:               decimal.Zero,
		MaximumRefundable: maximum,
	}

	requested := decimal.Zero
	fullRequested := req.FullShipping
	if req.ShippingAmount != nil {
		requested = *req.ShippingAmount
		if requested.IsNegative() {
			return shipping, shared.NewDomainError("INVALID_PRICE", "Shipping refund amount cannot be negative")
		}
		if requested.GreaterThan(maximum) {
			return shipping, shared.NewDomainError("SHIPPING_REFUND_EXCEEDS_MAXIMUM", "Requested shipping refund exceeds the refundable amount")
		}
		if requested.Equal(maximum) {
			fullRequested = true
		}
	}
	if req.FullShipping {
		requested = maximum
	}
	if requested.IsZero() && !fullRequested {
		return shipping, nil
	}

	if !o.MoneyInfo.CapturedMoney() {
		if allItemsRefunded && fullRequested {
			shipping.Amount = maximum
			shipping.Tax = c.shippingTaxShare(o, maximum, scale)
			shipping.FullRefund = true
		}
		return shipping, nil
	}

	if allItemsRefunded && fullRequested {
		shipping.Amount = maximum
		shipping.FullRefund = true
	} else {
		shipping.Amount = requested
	}
	shipping.Tax = c.shippingTaxShare(o, shipping.Amount, scale)
	return shipping, nil
}

// shippingTaxShare prices the tax slice that rides on a shipping refund,
// proportional to the refunded share of total shipping.
func (c *RefundCalculator) shippingTaxShare(o *Order, amount decimal.Decimal, scale int32) decimal.Decimal {
	totalShipping := o.TotalShippingPrice()
	if totalShipping.IsZero() || amount.IsZero() {
		return decimal.Zero
	}

	totalTax := decimal.Zero
	for _, line := range o.ShippingLines {
		totalTax = totalTax.Add(line.TotalTax())
	}
	if totalTax.IsZero() {
		return decimal.Zero
	}
	if amount.GreaterThanOrEqual(totalShipping) {
		return totalTax
	}
	return totalTax.Mul(amount).Div(totalShipping).Round(scale)
}

// BuildRefund materializes a suggestion into a Refund ready for
// Order.AddRefund, together with the per-tax-row refund amounts the order
// must upsert.
func (c *RefundCalculator) BuildRefund(o *Order, suggestion *RefundSuggestion, note string) (*Refund, map[uuid.UUID]decimal.Decimal, error) {
	refund := NewRefund(o.ID, note)
	taxRefunds := make(map[uuid.UUID]decimal.Decimal)

	for _, line := range suggestion.Lines {
		item, err := NewRefundLineItem(refund.ID, line.LineItemID, line.Quantity, line.RestockType, line.RemoveLine, line.LocationID, line.Subtotal, line.TotalTax)
		if err != nil {
			return nil, nil, err
		}
		refund.AddLineItem(item)
		for taxLineID, amount := range line.TaxRefunds {
			taxRefunds[taxLineID] = taxRefunds[taxLineID].Add(amount)
		}
	}

	if suggestion.Shipping.Amount.IsPositive() || suggestion.Shipping.Tax.IsPositive() {
		adj, err := NewOrderAdjustment(refund.ID, AdjustmentShippingRefund, suggestion.Shipping.Amount, suggestion.Shipping.Tax)
		if err != nil {
			return nil, nil, err
		}
		refund.AddAdjustment(adj)
	}

	for _, tx := range suggestion.Transactions {
		transaction, err := NewRefundTransaction(refund.ID, tx.Gateway, tx.Amount)
		if err != nil {
			return nil, nil, err
		}
		refund.AddTransaction(transaction)
	}
	return refund, taxRefunds, nil
}

func requestCovers(req RefundRequest, lineItemID uuid.UUID) bool {
	for _, line := range req.LineItems {
		if line.LineItemID == lineItemID {
			return true
		}
	}
	return false
}
