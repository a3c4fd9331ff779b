package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. It only exists to gate editability;
// fulfillment and payment lifecycles live elsewhere.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Order is the aggregate root for one commerce order and its money ledger.
// It owns line items, shipping lines, discount applications and their
// allocations, refunds and refund tax lines. Every mutation keeps MoneyInfo
// consistent with the owned entity graph in the same call.
type Order struct {
	shared.StoreAggregateRoot
	Number       string
	Currency     valueobject.Currency
	Status       Status
	TaxExempt    bool
	TaxIncluded  bool
	CountryCode  string
	Note         string
	MoneyInfo    MoneyInfo
	LineItems    []*LineItem
	ShippingLines []*ShippingLine
	Applications []*DiscountApplication
	Refunds      []*Refund
	RefundTaxLines []*RefundTaxLine
	ClosedAt     *time.Time
	CancelledAt  *time.Time
}

// NewOrder creates an open, empty order for a store
func NewOrder(storeID uuid.UUID, number string, currency valueobject.Currency, taxExempt, taxIncluded bool) (*Order, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store id is required")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Unknown currency code")
	}

	return &Order{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		Number:             number,
		Currency:           currency,
		Status:             StatusOpen,
		TaxExempt:          taxExempt,
		TaxIncluded:        taxIncluded,
		MoneyInfo:          NewMoneyInfo(),
	}, nil
}

// Scale returns the currency's decimal scale, the order's rounding scale
// for all allocation and refund math.
func (o *Order) Scale() int32 {
	return o.Currency.Exponent()
}

// IsEditable reports whether the order still accepts mutations
func (o *Order) IsEditable() bool {
	return o.Status == StatusOpen
}

// EnsureEditable rejects mutations on closed or cancelled orders
func (o *Order) EnsureEditable() error {
	switch o.Status {
	case StatusClosed:
		return shared.NewDomainError("ORDER_CLOSED", "Order is closed and cannot be edited")
	case StatusCancelled:
		return shared.NewDomainError("ORDER_CANCELLED", "Order is cancelled and cannot be edited")
	}
	return nil
}

// Close marks the order closed
func (o *Order) Close() error {
	if o.Status == StatusCancelled {
		return shared.NewDomainError("ORDER_CANCELLED", "Cancelled orders cannot be closed")
	}
	if o.Status == StatusClosed {
		return nil
	}
	now := time.Now()
	o.Status = StatusClosed
	o.ClosedAt = &now
	o.UpdatedAt = now
	return nil
}

// Reopen moves a closed order back to open
func (o *Order) Reopen() error {
	if o.Status == StatusCancelled {
		return shared.NewDomainError("ORDER_CANCELLED", "Cancelled orders cannot be reopened")
	}
	o.Status = StatusOpen
	o.ClosedAt = nil
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel marks the order cancelled
func (o *Order) Cancel() error {
	if o.Status == StatusCancelled {
		return nil
	}
	now := time.Now()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

// LineItemByID finds an owned line item
func (o *Order) LineItemByID(id uuid.UUID) (*LineItem, error) {
	for _, item := range o.LineItems {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, shared.NewDomainError("LINE_ITEM_NOT_FOUND", "Line item not found on order")
}

// ShippingLineByID finds an owned shipping line
func (o *Order) ShippingLineByID(id uuid.UUID) (*ShippingLine, error) {
	for _, line := range o.ShippingLines {
		if line.ID == id {
			return line, nil
		}
	}
	return nil, shared.NewDomainError("SHIPPING_LINE_NOT_FOUND", "Shipping line not found on order")
}

// AddLineItem appends a line item while the order is built or edited
func (o *Order) AddLineItem(item *LineItem) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	item.OrderID = o.ID
	o.LineItems = append(o.LineItems, item)
	o.recalculateTotals()
	return nil
}

// AddShippingLine appends a shipping line
func (o *Order) AddShippingLine(line *ShippingLine) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	line.OrderID = o.ID
	o.ShippingLines = append(o.ShippingLines, line)
	o.recalculateTotals()
	return nil
}

// ApplyOrderDiscount applies an order-level discount across every target of
// the given kind, fanning the total out proportionally to target subtotals.
// The last target absorbs the rounding remainder so allocations always sum
// to the discount amount exactly.
func (o *Order) ApplyOrderDiscount(title, code string, value decimal.Decimal, valueType DiscountValueType, targetType DiscountTargetType) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	if code != "" {
		for _, app := range o.Applications {
			if app.Code == code {
				return shared.NewDomainError("DUPLICATE_DISCOUNT", "Discount code is already applied to this order")
			}
		}
	}

	app, err := NewDiscountApplication(o.ID, title, value, valueType, targetType, DiscountRuleOrder, len(o.Applications))
	if err != nil {
		return err
	}
	app.Code = code

	var targetIDs []uuid.UUID
	var weights []decimal.Decimal
	base := decimal.Zero
	switch targetType {
	case DiscountTargetLineItem:
		for _, item := range o.LineItems {
			targetIDs = append(targetIDs, item.ID)
			weights = append(weights, item.Subtotal())
			base = base.Add(item.Subtotal())
		}
	case DiscountTargetShippingLine:
		for _, line := range o.ShippingLines {
			targetIDs = append(targetIDs, line.ID)
			weights = append(weights, line.Price)
			base = base.Add(line.Price)
		}
	default:
		return shared.NewDomainError("INVALID_DISCOUNT_TARGET", "Unknown discount target type")
	}
	if len(targetIDs) == 0 {
		return shared.NewDomainError("NO_DISCOUNT_TARGETS", "Order has no targets for this discount")
	}

	amount := app.AmountFor(base, o.Scale())
	if amount.GreaterThan(base) {
		amount = base
	}

	shares := AllocateProportionally(amount, weights, o.Scale())
	for i, targetID := range targetIDs {
		if shares[i].IsZero() {
			continue
		}
		alloc, err := NewDiscountAllocation(o.ID, targetID, targetType, app.Position, shares[i])
		if err != nil {
			return err
		}
		switch targetType {
		case DiscountTargetLineItem:
			item, _ := o.LineItemByID(targetID)
			item.AddAllocation(alloc)
		case DiscountTargetShippingLine:
			line, _ := o.ShippingLineByID(targetID)
			line.AddAllocation(alloc)
		}
	}

	o.Applications = append(o.Applications, app)
	o.recalculateTotals()
	return nil
}

// ApplyLineDiscount applies a product-level discount to one line item. A
// line already discounted by an order-level application rejects a second
// source.
func (o *Order) ApplyLineDiscount(lineItemID uuid.UUID, title string, value decimal.Decimal, valueType DiscountValueType) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	item, err := o.LineItemByID(lineItemID)
	if err != nil {
		return err
	}
	if item.IsDiscounted() {
		return shared.NewDomainError("DUPLICATE_DISCOUNT", "Line item already carries a discount")
	}

	app, err := NewDiscountApplication(o.ID, title, value, valueType, DiscountTargetLineItem, DiscountRuleProduct, len(o.Applications))
	if err != nil {
		return err
	}

	amount := app.AmountFor(item.Subtotal(), o.Scale())
	if amount.GreaterThan(item.Subtotal()) {
		amount = item.Subtotal()
	}
	alloc, err := NewDiscountAllocation(o.ID, item.ID, DiscountTargetLineItem, app.Position, amount)
	if err != nil {
		return err
	}

	item.AddAllocation(alloc)
	o.Applications = append(o.Applications, app)
	o.recalculateTotals()
	return nil
}

// ApplyCommittedLineDiscount replays a line discount staged by an order
// edit: the discount itself goes through ApplyLineDiscount, then the
// line's tax rows shrink by the discounted base times each row's rate,
// matching the tax the edit ledger already took out of its running totals.
func (o *Order) ApplyCommittedLineDiscount(lineItemID uuid.UUID, title string, value decimal.Decimal, valueType DiscountValueType) error {
	if err := o.ApplyLineDiscount(lineItemID, title, value, valueType); err != nil {
		return err
	}
	item, err := o.LineItemByID(lineItemID)
	if err != nil {
		return err
	}
	amount := item.TotalDiscount()
	for _, line := range item.TaxLines {
		reduction := amount.Mul(line.Rate).Round(o.Scale())
		if reduction.GreaterThan(line.Price) {
			reduction = line.Price
		}
		line.Price = line.Price.Sub(reduction)
	}
	o.recalculateTotals()
	return nil
}

// DistributeOrderTax spreads a total tax amount across taxable line items,
// weighted by their discounted subtotals. The last taxable line in
// iteration order absorbs the rounding remainder so per-line tax never
// drifts from the requested total.
func (o *Order) DistributeOrderTax(title string, rate, total decimal.Decimal) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	if o.TaxExempt {
		return shared.NewDomainError("ORDER_TAX_EXEMPT", "Tax cannot be applied to a tax exempt order")
	}

	var taxable []*LineItem
	var weights []decimal.Decimal
	for _, item := range o.LineItems {
		if !item.Taxable {
			continue
		}
		taxable = append(taxable, item)
		weights = append(weights, item.DiscountedSubtotal())
	}
	if len(taxable) == 0 {
		return shared.NewDomainError("NO_TAXABLE_LINES", "Order has no taxable line items")
	}

	shares := AllocateProportionally(total, weights, o.Scale())
	position := o.nextTaxPosition()
	for i, item := range taxable {
		if shares[i].IsZero() {
			continue
		}
		line, err := NewTaxLine(o.ID, item.ID, TaxTargetLineItem, title, rate, shares[i], item.Quantity, false, position)
		if err != nil {
			return err
		}
		position++
		item.AddTaxLine(line)
	}
	o.recalculateTotals()
	return nil
}

// ApplyLineTax charges one line item or shipping line at the given rate,
// computed off the target's discounted amount.
func (o *Order) ApplyLineTax(targetID uuid.UUID, targetType TaxTargetType, title string, rate decimal.Decimal, custom bool) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	if o.TaxExempt {
		return shared.NewDomainError("ORDER_TAX_EXEMPT", "Tax cannot be applied to a tax exempt order")
	}

	position := o.nextTaxPosition()
	switch targetType {
	case TaxTargetLineItem:
		item, err := o.LineItemByID(targetID)
		if err != nil {
			return err
		}
		amount := item.DiscountedSubtotal().Mul(rate).Round(o.Scale())
		line, err := NewTaxLine(o.ID, item.ID, TaxTargetLineItem, title, rate, amount, item.Quantity, custom, position)
		if err != nil {
			return err
		}
		item.AddTaxLine(line)
	case TaxTargetShippingLine:
		shipping, err := o.ShippingLineByID(targetID)
		if err != nil {
			return err
		}
		net := shipping.Price.Sub(shipping.TotalDiscount())
		if net.IsNegative() {
			net = decimal.Zero
		}
		amount := net.Mul(rate).Round(o.Scale())
		line, err := NewTaxLine(o.ID, shipping.ID, TaxTargetShippingLine, title, rate, amount, 1, custom, position)
		if err != nil {
			return err
		}
		shipping.AddTaxLine(line)
	default:
		return shared.NewDomainError("INVALID_TAX_TARGET", "Unknown tax target type")
	}
	o.recalculateTotals()
	return nil
}

// Place finalizes order creation: totals are recomputed one last time and
// the creation event is raised.
func (o *Order) Place() error {
	if len(o.LineItems) == 0 {
		return shared.NewDomainError("EMPTY_ORDER", "Order must have at least one line item")
	}
	o.recalculateTotals()
	o.AddDomainEvent(NewOrderCreatedEvent(o.StoreID, o.ID, o.Number, string(o.Currency), o.MoneyInfo.TotalPrice, len(o.LineItems)))
	return nil
}

// RecordPayment registers money captured from the customer. The payment
// must be positive and in the order's currency.
func (o *Order) RecordPayment(payment valueobject.Money) error {
	if !payment.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Payment amount must be positive")
	}
	if payment.Currency() != o.Currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Payment currency does not match the order currency")
	}
	received := valueobject.MustMoney(o.MoneyInfo.TotalReceived, o.Currency).MustAdd(payment)
	o.MoneyInfo.TotalReceived = received.Amount()
	o.recalculateTotals()
	return nil
}

// RefundableMoney is the captured money still available to give back,
// floored at zero.
func (o *Order) RefundableMoney() valueobject.Money {
	received := valueobject.MustMoney(o.MoneyInfo.TotalReceived, o.Currency)
	refunded := valueobject.MustMoney(o.MoneyInfo.TotalRefunded, o.Currency)
	net := received.MustSubtract(refunded)
	if net.IsNegative() {
		return valueobject.Zero(o.Currency)
	}
	return net
}

// AddNewLineItems accepts line items produced by a committed edit. Tax
// rows arriving attached to the items are renumbered so later reductions
// consume them first.
func (o *Order) AddNewLineItems(items []*LineItem) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	position := o.nextTaxPosition()
	for _, item := range items {
		item.OrderID = o.ID
		for _, line := range item.TaxLines {
			line.OrderID = o.ID
			line.Position = position
			position++
		}
		o.LineItems = append(o.LineItems, item)
	}
	o.recalculateTotals()
	return nil
}

// IncreaseLineItems raises existing line item quantities by the given
// deltas. Lines carrying any discount are refused: a quantity change on a
// discounted line must go through discount removal first.
func (o *Order) IncreaseLineItems(increments map[uuid.UUID]int) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	for lineItemID, delta := range increments {
		item, err := o.LineItemByID(lineItemID)
		if err != nil {
			return err
		}
		if item.IsDiscounted() {
			return shared.NewDomainError("DISCOUNTED_LINE_QUANTITY", "Cannot change quantity on a discounted line item")
		}
		if err := item.IncreaseQuantity(delta); err != nil {
			return err
		}
	}
	o.recalculateTotals()
	return nil
}

// ApplyNewTaxes attaches pre-built tax rows to their targets, assigning
// each a fresh position so later reductions consume them first.
func (o *Order) ApplyNewTaxes(lines []*TaxLine) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	position := o.nextTaxPosition()
	for _, line := range lines {
		line.OrderID = o.ID
		line.Position = position
		position++
		switch line.TargetType {
		case TaxTargetLineItem:
			item, err := o.LineItemByID(line.TargetID)
			if err != nil {
				return err
			}
			item.AddTaxLine(line)
		case TaxTargetShippingLine:
			shipping, err := o.ShippingLineByID(line.TargetID)
			if err != nil {
				return err
			}
			shipping.AddTaxLine(line)
		default:
			return shared.NewDomainError("INVALID_TAX_TARGET", "Unknown tax target type")
		}
	}
	o.recalculateTotals()
	return nil
}

// AddRefund accepts a refund onto the order: every refund line is checked
// against the line item's refundable pool and applied, refunded tax is
// upserted per original tax row, and totals move in the same call. A
// cancelled order refuses refunds.
func (o *Order) AddRefund(refund *Refund, taxRefunds map[uuid.UUID]decimal.Decimal) error {
	if o.Status == StatusCancelled {
		return shared.NewDomainError("ORDER_CANCELLED", "Cancelled orders cannot be refunded")
	}

	shippingRequested := decimal.Zero
	for _, adj := range refund.Adjustments {
		if adj.Kind == AdjustmentShippingRefund {
			shippingRequested = shippingRequested.Add(adj.Amount)
		}
	}
	if shippingRequested.GreaterThan(o.RemainingRefundableShipping()) {
		return shared.NewDomainError("SHIPPING_REFUND_EXCEEDS_MAXIMUM", "Requested shipping refund exceeds the refundable amount")
	}

	for _, item := range refund.LineItems {
		line, err := o.LineItemByID(item.LineItemID)
		if err != nil {
			return err
		}
		if err := line.ApplyRefund(item.Quantity); err != nil {
			return err
		}
	}

	for taxLineID, amount := range taxRefunds {
		if err := o.UpsertRefundTaxLine(taxLineID, amount); err != nil {
			return err
		}
	}

	refund.OrderID = o.ID
	o.Refunds = append(o.Refunds, refund)
	o.recalculateTotals()
	o.AddDomainEvent(NewRefundCreatedEvent(o.StoreID, o.ID, refund))
	return nil
}

// UpsertRefundTaxLine accumulates refunded tax against one original tax
// row, creating the running record on first refund.
func (o *Order) UpsertRefundTaxLine(taxLineID uuid.UUID, amount decimal.Decimal) error {
	for _, rtl := range o.RefundTaxLines {
		if rtl.TaxLineID == taxLineID {
			return rtl.AddAmount(amount)
		}
	}
	rtl, err := NewRefundTaxLine(o.ID, taxLineID, amount)
	if err != nil {
		return err
	}
	o.RefundTaxLines = append(o.RefundTaxLines, rtl)
	return nil
}

// RefundedQuantityFor sums units already refunded for one line item across
// all refunds.
func (o *Order) RefundedQuantityFor(lineItemID uuid.UUID) int {
	total := 0
	for _, refund := range o.Refunds {
		total += refund.QuantityForLineItem(lineItemID)
	}
	return total
}

// TotalShippingPrice sums the order's shipping line prices
func (o *Order) TotalShippingPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.ShippingLines {
		total = total.Add(line.Price)
	}
	return total
}

// ShippingRefundedTotal sums shipping money already given back
func (o *Order) ShippingRefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, refund := range o.Refunds {
		total = total.Add(refund.ShippingRefunded())
	}
	return total
}

// RemainingRefundableShipping is shipping price minus shipping already
// refunded, floored at zero.
func (o *Order) RemainingRefundableShipping() decimal.Decimal {
	remaining := o.TotalShippingPrice().Sub(o.ShippingRefundedTotal())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// AllTaxLines collects every tax row across line items and shipping lines
func (o *Order) AllTaxLines() []*TaxLine {
	var all []*TaxLine
	for _, item := range o.LineItems {
		all = append(all, item.TaxLines...)
	}
	for _, line := range o.ShippingLines {
		all = append(all, line.TaxLines...)
	}
	return all
}

// MergedTaxLines is the logical tax view: same-kind rows combined, net of
// refunded tax.
func (o *Order) MergedTaxLines() []*MergedTaxLine {
	return MergeTaxLines(o.AllTaxLines(), o.RefundTaxLines)
}

func (o *Order) nextTaxPosition() int {
	next := 0
	for _, line := range o.AllTaxLines() {
		if line.Position >= next {
			next = line.Position + 1
		}
	}
	return next
}

// recalculateTotals resums MoneyInfo from the owned entity graph. Every
// mutation ends here so the snapshot is never stale.
func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	for _, item := range o.LineItems {
		subtotal = subtotal.Add(item.Subtotal())
		discount = discount.Add(item.TotalDiscount())
		tax = tax.Add(item.TotalTax())
	}

	shipping := decimal.Zero
	for _, line := range o.ShippingLines {
		shipping = shipping.Add(line.Price)
		discount = discount.Add(line.TotalDiscount())
		tax = tax.Add(line.TotalTax())
	}

	refunded := decimal.Zero
	for _, refund := range o.Refunds {
		refunded = refunded.Add(refund.TotalRefunded)
	}

	total := subtotal.Sub(discount).Add(shipping)
	if !o.TaxIncluded && !o.TaxExempt {
		total = total.Add(tax)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}

	outstanding := total.Sub(o.MoneyInfo.TotalReceived).Add(refunded)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	o.MoneyInfo.SubtotalPrice = subtotal
	o.MoneyInfo.TotalDiscount = discount
	o.MoneyInfo.TotalTax = tax
	o.MoneyInfo.TotalShipping = shipping
	o.MoneyInfo.TotalPrice = total
	o.MoneyInfo.TotalRefunded = refunded
	o.MoneyInfo.TotalOutstanding = outstanding
	o.UpdatedAt = time.Now()
}
