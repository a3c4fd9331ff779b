package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/shared"
	"github.com/ordercore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocations(ids ...uuid.UUID) LocationIndex {
	valid := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		valid[id] = true
	}
	var defaultID uuid.UUID
	if len(ids) > 0 {
		defaultID = ids[0]
	}
	return LocationIndex{Valid: valid, DefaultID: defaultID}
}

func TestResolveRestock(t *testing.T) {
	counters := RestockCounters{Cancelable: 2, Returnable: 1}

	t.Run("unset defaults to no restock", func(t *testing.T) {
		splits := ResolveRestock("", 3, counters)
		require.Len(t, splits, 1)
		assert.Equal(t, RestockNone, splits[0].RestockType)
		assert.Equal(t, 3, splits[0].Quantity)
	})

	t.Run("cancel overflow spills into no restock", func(t *testing.T) {
		splits := ResolveRestock(RestockCancel, 5, counters)
		require.Len(t, splits, 2)
		assert.Equal(t, RestockCancel, splits[0].RestockType)
		assert.Equal(t, 2, splits[0].Quantity)
		assert.Equal(t, RestockNone, splits[1].RestockType)
		assert.Equal(t, 3, splits[1].Quantity)
	})

	t.Run("return within limits keeps one slice", func(t *testing.T) {
		splits := ResolveRestock(RestockReturn, 1, counters)
		require.Len(t, splits, 1)
		assert.Equal(t, RestockReturn, splits[0].RestockType)
	})

	t.Run("split quantities always sum to the request", func(t *testing.T) {
		for requested := 1; requested <= 8; requested++ {
			for _, kind := range []RestockType{RestockNone, RestockCancel, RestockReturn} {
				total := 0
				for _, split := range ResolveRestock(kind, requested, counters) {
					total += split.Quantity
				}
				require.Equal(t, requested, total, "kind=%s requested=%d", kind, requested)
			}
		}
	})
}

func TestLocationIndexResolve(t *testing.T) {
	explicit := uuid.New()
	fulfillment := uuid.New()
	fallback := uuid.New()
	idx := LocationIndex{Valid: map[uuid.UUID]bool{explicit: true, fulfillment: true}, DefaultID: fallback}

	t.Run("explicit wins", func(t *testing.T) {
		got, err := idx.Resolve(explicit, fulfillment)
		require.NoError(t, err)
		assert.Equal(t, explicit, got)
	})

	t.Run("unknown explicit fails", func(t *testing.T) {
		_, err := idx.Resolve(uuid.New(), fulfillment)
		assert.Error(t, err)
	})

	t.Run("fulfillment location next", func(t *testing.T) {
		got, err := idx.Resolve(uuid.Nil, fulfillment)
		require.NoError(t, err)
		assert.Equal(t, fulfillment, got)
	})

	t.Run("store default last", func(t *testing.T) {
		got, err := idx.Resolve(uuid.Nil, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		_, err := LocationIndex{}.Resolve(uuid.Nil, uuid.Nil)
		assert.Error(t, err)
	})
}

func TestCalculateRefundPartial(t *testing.T) {
	// line of quantity 5, two units already refunded, request two more
	calc := NewRefundCalculator()
	o := newTestOrder(t)
	item := addItem(t, o, "A", "10.00", 5)
	require.NoError(t, o.DistributeOrderTax("VAT", decimal.RequireFromString("0.10"), decimal.RequireFromString("5.00")))
	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("55.00"), o.Currency)))

	prior := NewRefund(o.ID, "")
	rli, err := NewRefundLineItem(prior.ID, item.ID, 2, RestockNone, false, uuid.New(), decimal.RequireFromString("20.00"), decimal.RequireFromString("2.00"))
	require.NoError(t, err)
	prior.AddLineItem(rli)
	require.NoError(t, o.AddRefund(prior, map[uuid.UUID]decimal.Decimal{item.TaxLines[0].ID: decimal.RequireFromString("2.00")}))

	locationID := uuid.New()
	suggestion, err := calc.CalculateRefund(o, RefundRequest{
		LineItems: []RefundRequestLine{{LineItemID: item.ID, Quantity: 2}},
	}, nil, testLocations(locationID))
	require.NoError(t, err)

	require.Len(t, suggestion.Refundable, 1)
	assert.Equal(t, 3, suggestion.Refundable[0].MaximumRefundable)

	require.Len(t, suggestion.Lines, 1)
	line := suggestion.Lines[0]
	assert.Equal(t, 2, line.Quantity)
	// partial branch: 50.00 * 2 / 5 = 20.00
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("20.00")), "got %s", line.Subtotal)
	// tax share 5.00 * 2 / 5 = 2.00, capped by 3.00 still unrefunded
	assert.True(t, line.TotalTax.Equal(decimal.RequireFromString("2.00")), "got %s", line.TotalTax)

	require.Len(t, suggestion.Transactions, 1)
	assert.True(t, suggestion.Transactions[0].Amount.Equal(decimal.RequireFromString("22.00")))
}

func TestCalculateRefundRepeatedPartials(t *testing.T) {
	// 10.00 x 3 discounted to 29.99: each per-unit share rounds half up
	// to 10.00, so the last refund must be capped at what remains.
	calc := NewRefundCalculator()
	o := newTestOrder(t)
	item := addItem(t, o, "A", "10.00", 3)
	require.NoError(t, o.ApplyLineDiscount(item.ID, "penny off", decimal.RequireFromString("0.01"), DiscountValueFixedAmount))
	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("29.99"), o.Currency)))
	locationID := uuid.New()

	refunded := decimal.Zero
	var last decimal.Decimal
	for i := 0; i < 3; i++ {
		suggestion, err := calc.CalculateRefund(o, RefundRequest{
			LineItems: []RefundRequestLine{{LineItemID: item.ID, Quantity: 1}},
		}, nil, testLocations(locationID))
		require.NoError(t, err)

		refund, taxRefunds, err := calc.BuildRefund(o, suggestion, "")
		require.NoError(t, err)
		require.NoError(t, o.AddRefund(refund, taxRefunds))

		last = suggestion.Subtotal
		refunded = refunded.Add(suggestion.Subtotal)
	}

	assert.True(t, last.Equal(decimal.RequireFromString("9.99")), "last share %s", last)
	assert.True(t, refunded.Equal(decimal.RequireFromString("29.99")), "refunded %s", refunded)
}

func TestCalculateRefundFullLine(t *testing.T) {
	calc := NewRefundCalculator()
	o := newTestOrder(t)
	item := addItem(t, o, "A", "10.00", 2)
	require.NoError(t, o.ApplyLineDiscount(item.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage))
	require.NoError(t, o.DistributeOrderTax("VAT", decimal.RequireFromString("0.10"), decimal.RequireFromString("1.80")))
	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("19.80"), o.Currency)))

	suggestion, err := calc.CalculateRefund(o, RefundRequest{
		LineItems: []RefundRequestLine{{LineItemID: item.ID, Quantity: 2}},
	}, nil, testLocations(uuid.New()))
	require.NoError(t, err)

	require.Len(t, suggestion.Lines, 1)
	// full branch: exact discounted subtotal and the whole remaining tax
	assert.True(t, suggestion.Lines[0].Subtotal.Equal(decimal.RequireFromString("18.00")))
	assert.True(t, suggestion.Lines[0].TotalTax.Equal(decimal.RequireFromString("1.80")))
}

func TestCalculateRefundValidation(t *testing.T) {
	calc := NewRefundCalculator()

	t.Run("quantity above refundable fails fast", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)
		_, err := calc.CalculateRefund(o, RefundRequest{
			LineItems: []RefundRequestLine{{LineItemID: item.ID, Quantity: 3}},
		}, nil, testLocations(uuid.New()))
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, "REFUND_EXCEEDS_REFUNDABLE", de.Code)
	})

	t.Run("unknown line item fails fast", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 2)
		_, err := calc.CalculateRefund(o, RefundRequest{
			LineItems: []RefundRequestLine{{LineItemID: uuid.New(), Quantity: 1}},
		}, nil, testLocations(uuid.New()))
		assert.Error(t, err)
	})

	t.Run("field problems are batched", func(t *testing.T) {
		o := newTestOrder(t)
		a := addItem(t, o, "A", "10.00", 2)
		b := addItem(t, o, "B", "10.00", 2)
		_, err := calc.CalculateRefund(o, RefundRequest{
			LineItems: []RefundRequestLine{
				{LineItemID: a.ID, Quantity: 1, LocationID: uuid.New()},
				{LineItemID: b.ID, Quantity: 1, LocationID: uuid.New()},
			},
		}, nil, testLocations(uuid.New()))
		require.Error(t, err)
		verr, ok := err.(*shared.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, verr.Errors, 2)
	})

	t.Run("shipping above maximum fails", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		shipping, err := NewShippingLine(o.ID, "Standard", "std", decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		require.NoError(t, o.AddShippingLine(shipping))

		amount := decimal.RequireFromString("6.00")
		_, err = calc.CalculateRefund(o, RefundRequest{ShippingAmount: &amount}, nil, testLocations(uuid.New()))
		assert.Error(t, err)
	})
}

func TestCalculateRefundShipping(t *testing.T) {
	calc := NewRefundCalculator()

	build := func(t *testing.T, captured bool) (*Order, *LineItem) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 1)
		shipping, err := NewShippingLine(o.ID, "Standard", "std", decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		require.NoError(t, o.AddShippingLine(shipping))
		if captured {
			require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("15.00"), o.Currency)))
		}
		return o, item
	}

	t.Run("no money captured, partial request moves nothing", func(t *testing.T) {
		o, item := build(t, false)
		amount := decimal.RequireFromString("2.00")
		suggestion, err := calc.CalculateRefund(o, RefundRequest{
			LineItems:      []RefundRequestLine{{LineItemID: item.ID, Quantity: 1}},
			ShippingAmount: &amount,
		}, nil, testLocations(uuid.New()))
		require.NoError(t, err)
		assert.True(t, suggestion.Shipping.Amount.IsZero())
		assert.Empty(t, suggestion.Transactions)
	})

	t.Run("no money captured, full items and shipping records adjustment", func(t *testing.T) {
		o, item := build(t, false)
		suggestion, err := calc.CalculateRefund(o, RefundRequest{
			LineItems:    []RefundRequestLine{{LineItemID: item.ID, Quantity: 1}},
			FullShipping: true,
		}, nil, testLocations(uuid.New()))
		require.NoError(t, err)
		assert.True(t, suggestion.Shipping.Amount.Equal(decimal.RequireFromString("5.00")))
		assert.Empty(t, suggestion.Transactions)
	})

	t.Run("captured money, full refund takes full shipping", func(t *testing.T) {
		o, item := build(t, true)
		suggestion, err := calc.CalculateRefund(o, RefundRequest{
			LineItems:    []RefundRequestLine{{LineItemID: item.ID, Quantity: 1}},
			FullShipping: true,
		}, nil, testLocations(uuid.New()))
		require.NoError(t, err)
		assert.True(t, suggestion.Shipping.Amount.Equal(decimal.RequireFromString("5.00")))
		require.Len(t, suggestion.Transactions, 1)
		assert.True(t, suggestion.Transactions[0].Amount.Equal(decimal.RequireFromString("15.00")))
	})

	t.Run("captured money, partial shipping takes the requested amount", func(t *testing.T) {
		o, _ := build(t, true)
		amount := decimal.RequireFromString("2.00")
		suggestion, err := calc.CalculateRefund(o, RefundRequest{ShippingAmount: &amount}, nil, testLocations(uuid.New()))
		require.NoError(t, err)
		assert.True(t, suggestion.Shipping.Amount.Equal(decimal.RequireFromString("2.00")))
	})
}

func TestBuildRefund(t *testing.T) {
	calc := NewRefundCalculator()
	o := newTestOrder(t)
	item := addItem(t, o, "A", "10.00", 2)
	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("20.00"), o.Currency)))

	suggestion, err := calc.CalculateRefund(o, RefundRequest{
		LineItems: []RefundRequestLine{{LineItemID: item.ID, Quantity: 1}},
		Gateway:   "manual",
	}, nil, testLocations(uuid.New()))
	require.NoError(t, err)

	refund, taxRefunds, err := calc.BuildRefund(o, suggestion, "broken item")
	require.NoError(t, err)
	require.Len(t, refund.LineItems, 1)
	assert.Equal(t, "broken item", refund.Note)
	assert.Empty(t, taxRefunds)
	require.Len(t, refund.Transactions, 1)
	assert.True(t, refund.TotalRefunded.Equal(decimal.RequireFromString("10.00")))

	require.NoError(t, o.AddRefund(refund, taxRefunds))
	assert.Equal(t, 1, item.RefundableQuantity)
}
