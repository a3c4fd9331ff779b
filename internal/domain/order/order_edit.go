package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// EditStatus is the order edit lifecycle state
type EditStatus string

const (
	EditStatusOpen      EditStatus = "open"
	EditStatusCommitted EditStatus = "committed"
)

// AddedLineItem is an edit-scoped shadow of a line item the edit would
// create. Price is the current, possibly discounted, unit price;
// OriginalPrice never changes after creation.
type AddedLineItem struct {
	ID               uuid.UUID
	EditID           uuid.UUID
	VariantID        uuid.UUID
	ProductID        uuid.UUID
	Title            string
	SKU              string
	Price            decimal.Decimal
	OriginalPrice    decimal.Decimal
	Quantity         int
	Taxable          bool
	RequiresShipping bool
	Custom           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Subtotal is the undiscounted money the added item puts on the order
func (a *AddedLineItem) Subtotal() decimal.Decimal {
	return a.OriginalPrice.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// DiscountedSubtotal is current unit price times quantity
func (a *AddedLineItem) DiscountedSubtotal() decimal.Decimal {
	return a.Price.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// AddedTaxLine is an edit-scoped shadow tax row for one added line item
type AddedTaxLine struct {
	ID              uuid.UUID
	EditID          uuid.UUID
	AddedLineItemID uuid.UUID
	Title           string
	Rate            decimal.Decimal
	Price           decimal.Decimal
	Quantity        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AddedDiscountApplication is an edit-scoped shadow discount source
type AddedDiscountApplication struct {
	ID        uuid.UUID
	EditID    uuid.UUID
	Title     string
	Value     decimal.Decimal
	ValueType DiscountValueType
	CreatedAt time.Time
}

// AddedDiscountAllocation is an edit-scoped shadow allocation against an
// added or existing line item.
type AddedDiscountAllocation struct {
	ID            uuid.UUID
	EditID        uuid.UUID
	ApplicationID uuid.UUID
	TargetID      uuid.UUID
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// OrderEdit is the staged change ledger for one order: an append-only log
// of pending modifications plus running totals adjusted in place by each
// change's delta, never recomputed from scratch. It references the order
// by id; the order itself is untouched until commit replays the ledger
// into it.
type OrderEdit struct {
	shared.StoreAggregateRoot
	OrderID     uuid.UUID
	Status      EditStatus
	Currency    valueobject.Currency
	TaxExempt   bool
	TaxIncluded bool

	SubtotalLineItemQuantity int
	SubtotalPrice            decimal.Decimal
	CartDiscountAmount       decimal.Decimal
	TotalTax                 decimal.Decimal
	TotalPrice               decimal.Decimal
	TotalOutstanding         decimal.Decimal

	StagedChanges     []*StagedChange
	AddedLineItems    []*AddedLineItem
	AddedTaxLines     []*AddedTaxLine
	AddedApplications []*AddedDiscountApplication
	AddedAllocations  []*AddedDiscountAllocation

	CommittedAt *time.Time
}

// BeginOrderEdit opens an edit ledger seeded with the order's current
// totals. Closed and cancelled orders refuse edits.
func BeginOrderEdit(o *Order) (*OrderEdit, error) {
	if err := o.EnsureEditable(); err != nil {
		return nil, err
	}

	quantity := 0
	for _, item := range o.LineItems {
		quantity += item.CurrentQuantity
	}

	return &OrderEdit{
		StoreAggregateRoot:       shared.NewStoreAggregateRoot(o.StoreID),
		OrderID:                  o.ID,
		Status:                   EditStatusOpen,
		Currency:                 o.Currency,
		TaxExempt:                o.TaxExempt,
		TaxIncluded:              o.TaxIncluded,
		SubtotalLineItemQuantity: quantity,
		SubtotalPrice:            o.MoneyInfo.SubtotalPrice,
		CartDiscountAmount:       o.MoneyInfo.TotalDiscount,
		TotalTax:                 o.MoneyInfo.TotalTax,
		TotalPrice:               o.MoneyInfo.TotalPrice,
		TotalOutstanding:         o.MoneyInfo.TotalOutstanding,
	}, nil
}

// Scale returns the edit currency's decimal scale
func (e *OrderEdit) Scale() int32 {
	return e.Currency.Exponent()
}

// IsOpen reports whether the edit still accepts staged changes
func (e *OrderEdit) IsOpen() bool {
	return e.Status == EditStatusOpen
}

// EnsureOpen rejects operations on a committed edit
func (e *OrderEdit) EnsureOpen() error {
	if e.Status != EditStatusOpen {
		return shared.NewDomainError("ORDER_EDIT_COMMITTED", "Order edit is already committed")
	}
	return nil
}

// AddedLineItemByID finds an edit-scoped added item
func (e *OrderEdit) AddedLineItemByID(id uuid.UUID) (*AddedLineItem, error) {
	for _, item := range e.AddedLineItems {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, shared.NewDomainError("ADDED_LINE_ITEM_NOT_FOUND", "Added line item not found on order edit")
}

// AddVariant stages adding a catalog variant with the given resolved tax
// rates. Returns the edit-scoped added item.
func (e *OrderEdit) AddVariant(variant Variant, quantity int, rates []ProductTaxRate) (*AddedLineItem, error) {
	if err := e.EnsureOpen(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	now := time.Now()
	item := &AddedLineItem{
		ID:               uuid.New(),
		EditID:           e.ID,
		VariantID:        variant.ID,
		ProductID:        variant.ProductID,
		Title:            variant.Title,
		SKU:              variant.SKU,
		Price:            variant.Price,
		OriginalPrice:    variant.Price,
		Quantity:         quantity,
		Taxable:          variant.Taxable,
		RequiresShipping: variant.RequiresShipping,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.AddedLineItems = append(e.AddedLineItems, item)
	e.rebuildTaxFor(item, rates)
	e.appendChange(AddVariantPayload{AddedLineItemID: item.ID, VariantID: variant.ID, Quantity: quantity})
	e.applyDelta(quantity, item.Subtotal(), decimal.Zero, e.taxFor(item.ID))
	return item, nil
}

// AddCustomItem stages adding a line with no catalog backing. Field
// problems are batched into one validation error.
func (e *OrderEdit) AddCustomItem(title string, price *decimal.Decimal, quantity int, taxable, requiresShipping bool, rates []ProductTaxRate) (*AddedLineItem, error) {
	if err := e.EnsureOpen(); err != nil {
		return nil, err
	}

	errs := shared.NewValidationErrors()
	if title == "" {
		errs.Add("title", "INVALID_TITLE", "Custom line item title cannot be empty")
	}
	if price == nil {
		errs.Add("price", "MISSING_PRICE", "Custom line item price is required")
	} else if price.IsNegative() {
		errs.Add("price", "INVALID_PRICE", "Custom line item price cannot be negative")
	}
	if quantity <= 0 {
		errs.Add("quantity", "INVALID_QUANTITY", "Quantity must be positive")
	}
	if err := errs.AsError(); err != nil {
		return nil, err
	}

	now := time.Now()
	item := &AddedLineItem{
		ID:               uuid.New(),
		EditID:           e.ID,
		Title:            title,
		Price:            *price,
		OriginalPrice:    *price,
		Quantity:         quantity,
		Taxable:          taxable,
		RequiresShipping: requiresShipping,
		Custom:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.AddedLineItems = append(e.AddedLineItems, item)
	e.rebuildTaxFor(item, rates)
	e.appendChange(AddCustomItemPayload{AddedLineItemID: item.ID, Title: title, Price: *price, Quantity: quantity})
	e.applyDelta(quantity, item.Subtotal(), decimal.Zero, e.taxFor(item.ID))
	return item, nil
}

// RemoveAddedItem reverses a staged item addition entirely: totals,
// discount, tax, and the staged change records themselves.
func (e *OrderEdit) RemoveAddedItem(addedLineItemID uuid.UUID) error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	item, err := e.AddedLineItemByID(addedLineItemID)
	if err != nil {
		return err
	}

	discount := e.discountFor(item.ID)
	tax := e.taxFor(item.ID)
	e.applyDelta(-item.Quantity, item.Subtotal().Neg(), discount.Neg(), tax.Neg())

	e.removeDiscountRecords(item.ID)
	e.removeTaxRecords(item.ID)
	e.removeChangesFor(item.ID)

	for i, candidate := range e.AddedLineItems {
		if candidate.ID == item.ID {
			e.AddedLineItems = append(e.AddedLineItems[:i], e.AddedLineItems[i+1:]...)
			break
		}
	}
	return nil
}

// UpdateAddedItemQuantity rewrites a staged addition's quantity in place,
// recomputing its tax and totals deltas. An added item carrying a staged
// discount refuses quantity changes.
func (e *OrderEdit) UpdateAddedItemQuantity(addedLineItemID uuid.UUID, quantity int) error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	item, err := e.AddedLineItemByID(addedLineItemID)
	if err != nil {
		return err
	}
	if e.discountFor(item.ID).IsPositive() {
		return shared.NewDomainError("DISCOUNTED_LINE_QUANTITY", "Remove the staged discount before changing quantity")
	}

	oldSubtotal := item.Subtotal()
	oldTax := e.taxFor(item.ID)
	oldQuantity := item.Quantity

	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	e.rescaleTaxFor(item)

	change, err := e.changeForAddedItem(item.ID)
	if err != nil {
		return err
	}
	switch p := change.Payload.(type) {
	case AddVariantPayload:
		p.Quantity = quantity
		change.SetPayload(p)
	case AddCustomItemPayload:
		p.Quantity = quantity
		change.SetPayload(p)
	}

	e.applyDelta(quantity-oldQuantity, item.Subtotal().Sub(oldSubtotal), decimal.Zero, e.taxFor(item.ID).Sub(oldTax))
	return nil
}

// SetLineItemQuantity stages a quantity change on an existing order line.
// Asking for the current fulfillable quantity clears any prior staged
// change for the line; more creates or updates an increment; less creates
// or updates a decrement carrying the restock flag. Lines with a staged
// discount, or increments on already discounted lines, are refused.
func (e *OrderEdit) SetLineItemQuantity(o *Order, lineItemID uuid.UUID, quantity int, restock bool) error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	if o.ID != e.OrderID {
		return shared.NewDomainError("ORDER_MISMATCH", "Order does not belong to this edit")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	line, err := o.LineItemByID(lineItemID)
	if err != nil {
		return err
	}
	if e.discountFor(lineItemID).IsPositive() {
		return shared.NewDomainError("DISCOUNTED_LINE_QUANTITY", "Remove the staged discount before changing quantity")
	}

	// Back out whatever is already staged for this line before staging
	// the new delta against the unmodified order snapshot.
	if err := e.clearQuantityChange(o, lineItemID); err != nil {
		return err
	}

	fulfillable := line.FulfillableQuantity
	switch {
	case quantity == fulfillable:
		return nil
	case quantity > fulfillable:
		if line.IsDiscounted() {
			return shared.NewDomainError("DISCOUNTED_LINE_QUANTITY", "Cannot change quantity on a discounted line item")
		}
		delta := quantity - fulfillable
		e.appendChange(IncrementItemPayload{LineItemID: lineItemID, Delta: delta})
		subtotal := line.Price.Mul(decimal.NewFromInt(int64(delta)))
		tax := ProportionalShare(line.TotalTax(), delta, line.Quantity, e.Scale())
		e.applyDelta(delta, subtotal, decimal.Zero, tax)
	default:
		delta := fulfillable - quantity
		e.appendChange(DecrementItemPayload{LineItemID: lineItemID, Delta: delta, Restock: restock})
		subtotal := ProportionalShare(line.Subtotal(), delta, line.Quantity, e.Scale())
		discount := ProportionalShare(line.TotalDiscount(), delta, line.Quantity, e.Scale())
		tax := ProportionalShare(line.TotalTax(), delta, line.Quantity, e.Scale())
		e.applyDelta(-delta, subtotal.Neg(), discount.Neg(), tax.Neg())
	}
	return nil
}

// AddItemDiscount stages a discount against an added item or an existing
// order line, using the caller's resolved tax rates for the product. An
// added item's unit price drops to the discounted price; allocations track
// the money taken off either way. A target already discounted at the order
// level refuses a second source.
func (e *OrderEdit) AddItemDiscount(o *Order, targetID uuid.UUID, title string, value decimal.Decimal, valueType DiscountValueType, rates []ProductTaxRate) error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	if !valueType.IsValid() {
		return shared.NewDomainError("INVALID_DISCOUNT_VALUE_TYPE", "Unknown discount value type")
	}
	if e.discountFor(targetID).IsPositive() {
		return shared.NewDomainError("DUPLICATE_DISCOUNT", "Target already carries a staged discount")
	}

	scale := e.Scale()
	app := &AddedDiscountApplication{
		ID:        uuid.New(),
		EditID:    e.ID,
		Title:     title,
		Value:     value,
		ValueType: valueType,
		CreatedAt: time.Now(),
	}

	if added, err := e.AddedLineItemByID(targetID); err == nil {
		amount := discountAmount(added.Subtotal(), value, valueType, scale)
		oldTax := e.taxFor(added.ID)

		added.Price = added.Subtotal().Sub(amount).Div(decimal.NewFromInt(int64(added.Quantity))).Round(scale)
		if added.Price.IsNegative() {
			added.Price = decimal.Zero
		}
		added.UpdatedAt = time.Now()
		e.rebuildTaxFor(added, rates)

		e.AddedApplications = append(e.AddedApplications, app)
		e.AddedAllocations = append(e.AddedAllocations, &AddedDiscountAllocation{
			ID:            uuid.New(),
			EditID:        e.ID,
			ApplicationID: app.ID,
			TargetID:      added.ID,
			Amount:        amount,
			CreatedAt:     time.Now(),
		})
		e.appendChange(AddItemDiscountPayload{TargetID: added.ID, Title: title, Value: value, ValueType: valueType, Amount: amount})
		e.applyDelta(0, decimal.Zero, amount, e.taxFor(added.ID).Sub(oldTax))
		return nil
	}

	line, err := o.LineItemByID(targetID)
	if err != nil {
		return err
	}
	if line.IsDiscounted() {
		return shared.NewDomainError("DUPLICATE_DISCOUNT", "Line item already carries an order level discount")
	}

	amount := discountAmount(line.Subtotal(), value, valueType, scale)
	taxDelta := decimal.Zero
	for _, rate := range rates {
		taxDelta = taxDelta.Sub(amount.Mul(rate.Rate).Round(scale))
	}

	e.AddedApplications = append(e.AddedApplications, app)
	e.AddedAllocations = append(e.AddedAllocations, &AddedDiscountAllocation{
		ID:            uuid.New(),
		EditID:        e.ID,
		ApplicationID: app.ID,
		TargetID:      line.ID,
		Amount:        amount,
		CreatedAt:     time.Now(),
	})
	e.appendChange(AddItemDiscountPayload{TargetID: line.ID, Title: title, Value: value, ValueType: valueType, Amount: amount})
	e.applyDelta(0, decimal.Zero, amount, taxDelta)
	return nil
}

// RemoveItemDiscount reverses a staged discount: the added item's unit
// price goes back to the original, tax is recomputed, and the staged
// change record is deleted.
func (e *OrderEdit) RemoveItemDiscount(targetID uuid.UUID, rates []ProductTaxRate) error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	amount := e.discountFor(targetID)
	if !amount.IsPositive() {
		return shared.NewDomainError("DISCOUNT_NOT_FOUND", "Target carries no staged discount")
	}

	taxDelta := decimal.Zero
	if added, err := e.AddedLineItemByID(targetID); err == nil {
		oldTax := e.taxFor(added.ID)
		added.Price = added.OriginalPrice
		added.UpdatedAt = time.Now()
		e.rebuildTaxFor(added, rates)
		taxDelta = e.taxFor(added.ID).Sub(oldTax)
	} else {
		scale := e.Scale()
		for _, rate := range rates {
			taxDelta = taxDelta.Add(amount.Mul(rate.Rate).Round(scale))
		}
	}

	e.removeDiscountRecords(targetID)
	e.removeDiscountChange(targetID)
	e.applyDelta(0, decimal.Zero, amount.Neg(), taxDelta)
	return nil
}

// MarkCommitted moves the edit to its terminal state
func (e *OrderEdit) MarkCommitted() error {
	if err := e.EnsureOpen(); err != nil {
		return err
	}
	now := time.Now()
	e.Status = EditStatusCommitted
	e.CommittedAt = &now
	e.UpdatedAt = now
	return nil
}

// MaterializedLineItems turns the staged additions into real line items
// ready for the order mutation API, carrying their shadow tax rows along.
// Each staged discount becomes a real application on the order, and the
// item's allocation is indexed against that application's position.
func (e *OrderEdit) MaterializedLineItems(o *Order) ([]*LineItem, error) {
	items := make([]*LineItem, 0, len(e.AddedLineItems))
	for _, added := range e.AddedLineItems {
		var item *LineItem
		var err error
		if added.Custom {
			item, err = NewCustomLineItem(o.ID, added.Title, added.OriginalPrice, added.Quantity, added.Taxable, added.RequiresShipping)
		} else {
			item, err = NewLineItem(o.ID, added.VariantID, added.ProductID, added.Title, added.SKU, added.OriginalPrice, added.Quantity, added.Taxable, added.RequiresShipping)
		}
		if err != nil {
			return nil, err
		}

		if amount := e.discountFor(added.ID); amount.IsPositive() {
			staged := e.stagedApplicationFor(added.ID)
			if staged == nil {
				return nil, shared.NewDomainError("DISCOUNT_NOT_FOUND", "Staged discount has no application record")
			}
			app, err := NewDiscountApplication(o.ID, staged.Title, staged.Value, staged.ValueType, DiscountTargetLineItem, DiscountRuleProduct, len(o.Applications))
			if err != nil {
				return nil, err
			}
			alloc, err := NewDiscountAllocation(o.ID, item.ID, DiscountTargetLineItem, app.Position, amount)
			if err != nil {
				return nil, err
			}
			item.AddAllocation(alloc)
			o.Applications = append(o.Applications, app)
		}

		for _, tax := range e.AddedTaxLines {
			if tax.AddedLineItemID != added.ID {
				continue
			}
			line, err := NewTaxLine(o.ID, item.ID, TaxTargetLineItem, tax.Title, tax.Rate, tax.Price, tax.Quantity, false, 0)
			if err != nil {
				return nil, err
			}
			item.TaxLines = append(item.TaxLines, line)
		}
		items = append(items, item)
	}
	return items, nil
}

// Increments collects staged increments per existing line item
func (e *OrderEdit) Increments() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, change := range e.StagedChanges {
		if p, ok := change.Payload.(IncrementItemPayload); ok {
			out[p.LineItemID] += p.Delta
		}
	}
	return out
}

// ExistingLineDiscounts collects staged discounts whose target is an
// existing order line rather than a staged addition.
func (e *OrderEdit) ExistingLineDiscounts() []AddItemDiscountPayload {
	var out []AddItemDiscountPayload
	for _, change := range e.StagedChanges {
		p, ok := change.Payload.(AddItemDiscountPayload)
		if !ok {
			continue
		}
		if _, err := e.AddedLineItemByID(p.TargetID); err == nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Decrements collects staged decrements in ledger order
func (e *OrderEdit) Decrements() []DecrementItemPayload {
	var out []DecrementItemPayload
	for _, change := range e.StagedChanges {
		if p, ok := change.Payload.(DecrementItemPayload); ok {
			out = append(out, p)
		}
	}
	return out
}

func (e *OrderEdit) appendChange(payload StagedChangePayload) {
	e.StagedChanges = append(e.StagedChanges, NewStagedChange(e.ID, payload))
}

// applyDelta moves the running totals by exactly one change's delta
func (e *OrderEdit) applyDelta(quantity int, subtotal, discount, tax decimal.Decimal) {
	e.SubtotalLineItemQuantity += quantity
	e.SubtotalPrice = e.SubtotalPrice.Add(subtotal)
	e.CartDiscountAmount = e.CartDiscountAmount.Add(discount)
	e.TotalTax = e.TotalTax.Add(tax)

	priceDelta := subtotal.Sub(discount)
	if !e.TaxIncluded && !e.TaxExempt {
		priceDelta = priceDelta.Add(tax)
	}
	e.TotalPrice = e.TotalPrice.Add(priceDelta)
	e.TotalOutstanding = e.TotalOutstanding.Add(priceDelta)
	e.UpdatedAt = time.Now()
}

// clearQuantityChange backs out a prior staged increment or decrement for
// a line and deletes its record.
func (e *OrderEdit) clearQuantityChange(o *Order, lineItemID uuid.UUID) error {
	for i, change := range e.StagedChanges {
		switch p := change.Payload.(type) {
		case IncrementItemPayload:
			if p.LineItemID != lineItemID {
				continue
			}
			line, err := o.LineItemByID(lineItemID)
			if err != nil {
				return err
			}
			subtotal := line.Price.Mul(decimal.NewFromInt(int64(p.Delta)))
			tax := ProportionalShare(line.TotalTax(), p.Delta, line.Quantity, e.Scale())
			e.applyDelta(-p.Delta, subtotal.Neg(), decimal.Zero, tax.Neg())
			e.StagedChanges = append(e.StagedChanges[:i], e.StagedChanges[i+1:]...)
			return nil
		case DecrementItemPayload:
			if p.LineItemID != lineItemID {
				continue
			}
			line, err := o.LineItemByID(lineItemID)
			if err != nil {
				return err
			}
			subtotal := ProportionalShare(line.Subtotal(), p.Delta, line.Quantity, e.Scale())
			discount := ProportionalShare(line.TotalDiscount(), p.Delta, line.Quantity, e.Scale())
			tax := ProportionalShare(line.TotalTax(), p.Delta, line.Quantity, e.Scale())
			e.applyDelta(p.Delta, subtotal, discount, tax)
			e.StagedChanges = append(e.StagedChanges[:i], e.StagedChanges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (e *OrderEdit) changeForAddedItem(addedLineItemID uuid.UUID) (*StagedChange, error) {
	for _, change := range e.StagedChanges {
		switch p := change.Payload.(type) {
		case AddVariantPayload:
			if p.AddedLineItemID == addedLineItemID {
				return change, nil
			}
		case AddCustomItemPayload:
			if p.AddedLineItemID == addedLineItemID {
				return change, nil
			}
		}
	}
	return nil, shared.NewDomainError("STAGED_CHANGE_NOT_FOUND", "No staged addition for this line item")
}

// discountFor sums staged discount money against one target
func (e *OrderEdit) discountFor(targetID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, alloc := range e.AddedAllocations {
		if alloc.TargetID == targetID {
			total = total.Add(alloc.Amount)
		}
	}
	return total
}

// stagedApplicationFor returns the staged application whose allocation
// targets the given item, or nil when the target carries no discount.
func (e *OrderEdit) stagedApplicationFor(targetID uuid.UUID) *AddedDiscountApplication {
	for _, alloc := range e.AddedAllocations {
		if alloc.TargetID != targetID {
			continue
		}
		for _, app := range e.AddedApplications {
			if app.ID == alloc.ApplicationID {
				return app
			}
		}
	}
	return nil
}

// taxFor sums staged tax against one added item
func (e *OrderEdit) taxFor(addedLineItemID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, tax := range e.AddedTaxLines {
		if tax.AddedLineItemID == addedLineItemID {
			total = total.Add(tax.Price)
		}
	}
	return total
}

// rebuildTaxFor re-derives an added item's shadow tax rows from its
// current discounted subtotal and the resolved rates.
func (e *OrderEdit) rebuildTaxFor(item *AddedLineItem, rates []ProductTaxRate) {
	e.removeTaxRecords(item.ID)
	if !item.Taxable || e.TaxExempt {
		return
	}
	scale := e.Scale()
	now := time.Now()
	for _, rate := range rates {
		e.AddedTaxLines = append(e.AddedTaxLines, &AddedTaxLine{
			ID:              uuid.New(),
			EditID:          e.ID,
			AddedLineItemID: item.ID,
			Title:           rate.Title,
			Rate:            rate.Rate,
			Price:           item.DiscountedSubtotal().Mul(rate.Rate).Round(scale),
			Quantity:        item.Quantity,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
}

// rescaleTaxFor reprices existing shadow tax rows after a quantity change
func (e *OrderEdit) rescaleTaxFor(item *AddedLineItem) {
	scale := e.Scale()
	for _, tax := range e.AddedTaxLines {
		if tax.AddedLineItemID != item.ID {
			continue
		}
		tax.Price = item.DiscountedSubtotal().Mul(tax.Rate).Round(scale)
		tax.Quantity = item.Quantity
		tax.UpdatedAt = time.Now()
	}
}

func (e *OrderEdit) removeTaxRecords(addedLineItemID uuid.UUID) {
	kept := e.AddedTaxLines[:0]
	for _, tax := range e.AddedTaxLines {
		if tax.AddedLineItemID != addedLineItemID {
			kept = append(kept, tax)
		}
	}
	e.AddedTaxLines = kept
}

func (e *OrderEdit) removeDiscountRecords(targetID uuid.UUID) {
	keptAllocs := e.AddedAllocations[:0]
	removedApps := make(map[uuid.UUID]bool)
	for _, alloc := range e.AddedAllocations {
		if alloc.TargetID == targetID {
			removedApps[alloc.ApplicationID] = true
			continue
		}
		keptAllocs = append(keptAllocs, alloc)
	}
	e.AddedAllocations = keptAllocs

	for _, alloc := range e.AddedAllocations {
		delete(removedApps, alloc.ApplicationID)
	}
	keptApps := e.AddedApplications[:0]
	for _, app := range e.AddedApplications {
		if !removedApps[app.ID] {
			keptApps = append(keptApps, app)
		}
	}
	e.AddedApplications = keptApps
}

func (e *OrderEdit) removeChangesFor(addedLineItemID uuid.UUID) {
	kept := e.StagedChanges[:0]
	for _, change := range e.StagedChanges {
		remove := false
		switch p := change.Payload.(type) {
		case AddVariantPayload:
			remove = p.AddedLineItemID == addedLineItemID
		case AddCustomItemPayload:
			remove = p.AddedLineItemID == addedLineItemID
		case AddItemDiscountPayload:
			remove = p.TargetID == addedLineItemID
		}
		if !remove {
			kept = append(kept, change)
		}
	}
	e.StagedChanges = kept
}

func (e *OrderEdit) removeDiscountChange(targetID uuid.UUID) {
	kept := e.StagedChanges[:0]
	for _, change := range e.StagedChanges {
		if p, ok := change.Payload.(AddItemDiscountPayload); ok && p.TargetID == targetID {
			continue
		}
		kept = append(kept, change)
	}
	e.StagedChanges = kept
}

func discountAmount(base, value decimal.Decimal, valueType DiscountValueType, scale int32) decimal.Decimal {
	var amount decimal.Decimal
	if valueType == DiscountValuePercentage {
		amount = base.Mul(value).Div(decimal.NewFromInt(100)).Round(scale)
	} else {
		amount = value
	}
	if amount.GreaterThan(base) {
		amount = base
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount
}
