package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginTestEdit(t *testing.T, o *Order) *OrderEdit {
	t.Helper()
	edit, err := BeginOrderEdit(o)
	require.NoError(t, err)
	return edit
}

func testVariant(price string) Variant {
	return Variant{
		ID:               uuid.New(),
		ProductID:        uuid.New(),
		Title:            "Widget",
		SKU:              "WID-1",
		Price:            decimal.RequireFromString(price),
		Taxable:          true,
		RequiresShipping: true,
	}
}

func vatRate(rate string) []ProductTaxRate {
	return []ProductTaxRate{{ProductID: uuid.New(), Title: "VAT", Rate: decimal.RequireFromString(rate)}}
}

// assertNoDrift checks the running totals against an independent resum:
// for a tax exclusive order with no shipping the total must always equal
// subtotal minus discounts plus tax, and the staged shadow rows must be
// fully reflected in the tax and discount totals.
func assertNoDrift(t *testing.T, o *Order, e *OrderEdit) {
	t.Helper()
	expected := e.SubtotalPrice.Sub(e.CartDiscountAmount).Add(e.TotalTax)
	assert.True(t, e.TotalPrice.Equal(expected), "total %s drifted from recomputed %s", e.TotalPrice, expected)

	stagedDiscount := decimal.Zero
	for _, alloc := range e.AddedAllocations {
		stagedDiscount = stagedDiscount.Add(alloc.Amount)
	}
	fromOrder := e.CartDiscountAmount.Sub(o.MoneyInfo.TotalDiscount)
	delta := decimal.Zero
	for _, change := range e.StagedChanges {
		if p, ok := change.Payload.(DecrementItemPayload); ok {
			line, err := o.LineItemByID(p.LineItemID)
			require.NoError(t, err)
			delta = delta.Add(ProportionalShare(line.TotalDiscount(), p.Delta, line.Quantity, e.Scale()))
		}
	}
	assert.True(t, fromOrder.Add(delta).Equal(stagedDiscount),
		"staged discount %s not reflected in running totals", stagedDiscount)
}

func TestBeginOrderEdit(t *testing.T) {
	t.Run("seeds totals from the order", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 2)
		edit := beginTestEdit(t, o)

		assert.Equal(t, EditStatusOpen, edit.Status)
		assert.Equal(t, o.ID, edit.OrderID)
		assert.Equal(t, 2, edit.SubtotalLineItemQuantity)
		assert.True(t, edit.SubtotalPrice.Equal(o.MoneyInfo.SubtotalPrice))
		assert.True(t, edit.TotalPrice.Equal(o.MoneyInfo.TotalPrice))
	})

	t.Run("closed order refuses edits", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		require.NoError(t, o.Close())
		_, err := BeginOrderEdit(o)
		assert.Error(t, err)
	})
}

func TestOrderEditAddVariant(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "10.00", 1)
	edit := beginTestEdit(t, o)

	added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
	require.NoError(t, err)

	assert.Equal(t, 3, edit.SubtotalLineItemQuantity)
	assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("50.00")))
	// 40.00 * 0.10 on top of the order's zero tax
	assert.True(t, edit.TotalTax.Equal(decimal.RequireFromString("4.00")))
	assert.True(t, edit.TotalPrice.Equal(decimal.RequireFromString("54.00")))
	require.Len(t, edit.StagedChanges, 1)
	assert.Equal(t, StagedAddVariant, edit.StagedChanges[0].Kind())
	require.Len(t, edit.AddedTaxLines, 1)
	assert.Equal(t, added.ID, edit.AddedTaxLines[0].AddedLineItemID)
	assertNoDrift(t, o, edit)
}

func TestOrderEditAddCustomItem(t *testing.T) {
	t.Run("valid custom item", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		price := decimal.RequireFromString("5.00")
		added, err := edit.AddCustomItem("Gift wrap", &price, 1, false, false, nil)
		require.NoError(t, err)
		assert.True(t, added.Custom)
		assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("15.00")))
		assert.Empty(t, edit.AddedTaxLines)
		assertNoDrift(t, o, edit)
	})

	t.Run("field problems are batched", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		_, err := edit.AddCustomItem("", nil, 0, false, false, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title")
		assert.Contains(t, err.Error(), "price")
		assert.Contains(t, err.Error(), "quantity")
	})
}

func TestOrderEditRemoveAddedItem(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "10.00", 1)
	edit := beginTestEdit(t, o)
	before := edit.TotalPrice

	added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
	require.NoError(t, err)
	require.NoError(t, edit.AddItemDiscount(o, added.ID, "five off", decimal.RequireFromString("5.00"), DiscountValueFixedAmount, vatRate("0.10")))

	require.NoError(t, edit.RemoveAddedItem(added.ID))

	assert.True(t, edit.TotalPrice.Equal(before), "got %s want %s", edit.TotalPrice, before)
	assert.Empty(t, edit.StagedChanges)
	assert.Empty(t, edit.AddedLineItems)
	assert.Empty(t, edit.AddedTaxLines)
	assert.Empty(t, edit.AddedAllocations)
	assert.Empty(t, edit.AddedApplications)
	assertNoDrift(t, o, edit)
}

func TestOrderEditUpdateAddedItemQuantity(t *testing.T) {
	t.Run("rewrites the staged change in place", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
		require.NoError(t, err)
		require.NoError(t, edit.UpdateAddedItemQuantity(added.ID, 3))

		require.Len(t, edit.StagedChanges, 1)
		payload, ok := edit.StagedChanges[0].Payload.(AddVariantPayload)
		require.True(t, ok)
		assert.Equal(t, 3, payload.Quantity)
		assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("70.00")))
		assert.True(t, edit.TotalTax.Equal(decimal.RequireFromString("6.00")))
		assertNoDrift(t, o, edit)
	})

	t.Run("refuses items carrying a staged discount", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
		require.NoError(t, err)
		require.NoError(t, edit.AddItemDiscount(o, added.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage, vatRate("0.10")))

		err = edit.UpdateAddedItemQuantity(added.ID, 3)
		assert.Error(t, err)
	})
}

func TestOrderEditSetLineItemQuantity(t *testing.T) {
	t.Run("more than fulfillable stages an increment", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)
		edit := beginTestEdit(t, o)

		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 5, false))
		require.Len(t, edit.StagedChanges, 1)
		payload, ok := edit.StagedChanges[0].Payload.(IncrementItemPayload)
		require.True(t, ok)
		assert.Equal(t, 3, payload.Delta)
		assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("50.00")))
		assertNoDrift(t, o, edit)
	})

	t.Run("less than fulfillable stages a decrement with restock", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 5)
		edit := beginTestEdit(t, o)

		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 2, true))
		require.Len(t, edit.StagedChanges, 1)
		payload, ok := edit.StagedChanges[0].Payload.(DecrementItemPayload)
		require.True(t, ok)
		assert.Equal(t, 3, payload.Delta)
		assert.True(t, payload.Restock)
		assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("20.00")))
		assertNoDrift(t, o, edit)
	})

	t.Run("requesting the fulfillable quantity clears the staged change", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 5)
		edit := beginTestEdit(t, o)
		before := edit.TotalPrice

		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 2, false))
		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 5, false))

		assert.Empty(t, edit.StagedChanges)
		assert.True(t, edit.TotalPrice.Equal(before))
		assertNoDrift(t, o, edit)
	})

	t.Run("restaging replaces the prior delta instead of stacking", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 5)
		edit := beginTestEdit(t, o)

		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 2, false))
		require.NoError(t, edit.SetLineItemQuantity(o, item.ID, 7, false))

		require.Len(t, edit.StagedChanges, 1)
		payload, ok := edit.StagedChanges[0].Payload.(IncrementItemPayload)
		require.True(t, ok)
		assert.Equal(t, 2, payload.Delta)
		assert.True(t, edit.SubtotalPrice.Equal(decimal.RequireFromString("70.00")))
		assertNoDrift(t, o, edit)
	})

	t.Run("increment on a discounted line refused", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)
		require.NoError(t, o.ApplyLineDiscount(item.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage))
		edit := beginTestEdit(t, o)

		err := edit.SetLineItemQuantity(o, item.ID, 5, false)
		assert.Error(t, err)
	})

	t.Run("line with staged discount refused", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)
		edit := beginTestEdit(t, o)
		require.NoError(t, edit.AddItemDiscount(o, item.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage, nil))

		err := edit.SetLineItemQuantity(o, item.ID, 1, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "staged discount")
	})
}

func TestOrderEditAddItemDiscount(t *testing.T) {
	t.Run("discount on an added item drops its unit price", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
		require.NoError(t, err)
		require.NoError(t, edit.AddItemDiscount(o, added.ID, "ten percent", decimal.NewFromInt(10), DiscountValuePercentage, vatRate("0.10")))

		assert.True(t, added.Price.Equal(decimal.RequireFromString("18.00")), "got %s", added.Price)
		assert.True(t, added.OriginalPrice.Equal(decimal.RequireFromString("20.00")))
		assert.True(t, edit.CartDiscountAmount.Equal(decimal.RequireFromString("4.00")))
		// tax recomputed off the discounted subtotal: 36.00 * 0.10
		assert.True(t, edit.TotalTax.Equal(decimal.RequireFromString("3.60")))
		assertNoDrift(t, o, edit)
	})

	t.Run("second staged discount on same target refused", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)

		added, err := edit.AddVariant(testVariant("20.00"), 1, nil)
		require.NoError(t, err)
		require.NoError(t, edit.AddItemDiscount(o, added.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage, nil))
		err = edit.AddItemDiscount(o, added.ID, "y", decimal.NewFromInt(10), DiscountValuePercentage, nil)
		assert.Error(t, err)
	})

	t.Run("discount on an order level discounted line refused", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 1)
		require.NoError(t, o.ApplyLineDiscount(item.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage))
		edit := beginTestEdit(t, o)

		err := edit.AddItemDiscount(o, item.ID, "y", decimal.NewFromInt(10), DiscountValuePercentage, nil)
		assert.Error(t, err)
	})

	t.Run("removing the discount restores the original price", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		edit := beginTestEdit(t, o)
		added, err := edit.AddVariant(testVariant("20.00"), 2, vatRate("0.10"))
		require.NoError(t, err)
		beforeDiscount := edit.TotalPrice

		require.NoError(t, edit.AddItemDiscount(o, added.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage, vatRate("0.10")))
		require.NoError(t, edit.RemoveItemDiscount(added.ID, vatRate("0.10")))

		assert.True(t, added.Price.Equal(added.OriginalPrice))
		assert.True(t, edit.CartDiscountAmount.IsZero())
		assert.True(t, edit.TotalPrice.Equal(beforeDiscount))
		assertNoDrift(t, o, edit)
	})
}

func TestOrderEditCommitSurface(t *testing.T) {
	o := newTestOrder(t)
	existing := addItem(t, o, "A", "10.00", 5)
	edit := beginTestEdit(t, o)

	_, err := edit.AddVariant(testVariant("20.00"), 1, nil)
	require.NoError(t, err)
	require.NoError(t, edit.SetLineItemQuantity(o, existing.ID, 2, true))

	items, err := edit.MaterializedLineItems(o)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, o.ID, items[0].OrderID)

	decrements := edit.Decrements()
	require.Len(t, decrements, 1)
	assert.Equal(t, 3, decrements[0].Delta)
	assert.True(t, decrements[0].Restock)
	assert.Empty(t, edit.Increments())

	require.NoError(t, edit.MarkCommitted())
	assert.Equal(t, EditStatusCommitted, edit.Status)
	_, err = edit.AddVariant(testVariant("5.00"), 1, nil)
	assert.Error(t, err)
	assert.Error(t, edit.MarkCommitted())
}

func TestMaterializedDiscountApplications(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "10.00", 1)
	edit := beginTestEdit(t, o)

	price := decimal.RequireFromString("20.00")
	first, err := edit.AddCustomItem("Setup Fee", &price, 1, true, false, nil)
	require.NoError(t, err)
	second, err := edit.AddVariant(testVariant("30.00"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, edit.AddItemDiscount(o, first.ID, "Launch", decimal.NewFromInt(10), DiscountValuePercentage, nil))
	require.NoError(t, edit.AddItemDiscount(o, second.ID, "Bundle", decimal.NewFromInt(3), DiscountValueFixedAmount, nil))

	items, err := edit.MaterializedLineItems(o)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NoError(t, o.AddNewLineItems(items))

	// Each staged discount became a real application, and each item's
	// allocation points at its own application's position.
	require.Len(t, o.Applications, 2)
	assert.Equal(t, "Launch", o.Applications[0].Title)
	assert.Equal(t, "Bundle", o.Applications[1].Title)
	assert.Equal(t, 0, o.Applications[0].Position)
	assert.Equal(t, 1, o.Applications[1].Position)

	require.Len(t, items[0].Allocations, 1)
	require.Len(t, items[1].Allocations, 1)
	assert.Equal(t, 0, items[0].Allocations[0].ApplicationIndex)
	assert.Equal(t, 1, items[1].Allocations[0].ApplicationIndex)
	assert.True(t, items[0].Allocations[0].Amount.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, items[1].Allocations[0].Amount.Equal(decimal.RequireFromString("3.00")))
}

func TestStagedChangeCodec(t *testing.T) {
	payloads := []StagedChangePayload{
		AddVariantPayload{AddedLineItemID: uuid.New(), VariantID: uuid.New(), Quantity: 2},
		AddCustomItemPayload{AddedLineItemID: uuid.New(), Title: "x", Price: decimal.RequireFromString("1.50"), Quantity: 1},
		IncrementItemPayload{LineItemID: uuid.New(), Delta: 3},
		DecrementItemPayload{LineItemID: uuid.New(), Delta: 2, Restock: true},
		AddItemDiscountPayload{TargetID: uuid.New(), Title: "d", Value: decimal.NewFromInt(10), ValueType: DiscountValuePercentage, Amount: decimal.RequireFromString("2.00")},
	}

	for _, payload := range payloads {
		data, err := EncodeStagedChangePayload(payload)
		require.NoError(t, err)
		decoded, err := DecodeStagedChangePayload(payload.Kind(), data)
		require.NoError(t, err)
		assert.Equal(t, payload.Kind(), decoded.Kind())
	}

	_, err := DecodeStagedChangePayload(StagedChangeKind("bogus"), []byte("{}"))
	assert.Error(t, err)
}
