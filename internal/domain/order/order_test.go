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

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(uuid.New(), "#1001", valueobject.USD, false, false)
	require.NoError(t, err)
	return o
}

func addItem(t *testing.T, o *Order, title, price string, quantity int) *LineItem {
	t.Helper()
	item, err := NewLineItem(o.ID, uuid.New(), uuid.New(), title, "SKU-"+title, decimal.RequireFromString(price), quantity, true, true)
	require.NoError(t, err)
	require.NoError(t, o.AddLineItem(item))
	return item
}

func TestNewOrder(t *testing.T) {
	t.Run("valid order", func(t *testing.T) {
		o := newTestOrder(t)
		assert.Equal(t, StatusOpen, o.Status)
		assert.True(t, o.MoneyInfo.TotalPrice.IsZero())
		assert.Equal(t, int32(2), o.Scale())
	})

	t.Run("missing store", func(t *testing.T) {
		_, err := NewOrder(uuid.Nil, "#1", valueobject.USD, false, false)
		assert.Error(t, err)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), "#1", valueobject.Currency("XXX"), false, false)
		assert.Error(t, err)
	})
}

func TestOrderTotals(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "100.00", 1)
	addItem(t, o, "B", "150.00", 1)

	shipping, err := NewShippingLine(o.ID, "Standard", "std", decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	require.NoError(t, o.AddShippingLine(shipping))

	assert.True(t, o.MoneyInfo.SubtotalPrice.Equal(decimal.RequireFromString("250.00")))
	assert.True(t, o.MoneyInfo.TotalShipping.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, o.MoneyInfo.TotalPrice.Equal(decimal.RequireFromString("260.00")))
}

func TestApplyOrderDiscount(t *testing.T) {
	t.Run("percentage fans out proportionally", func(t *testing.T) {
		o := newTestOrder(t)
		a := addItem(t, o, "A", "100.00", 1)
		b := addItem(t, o, "B", "150.00", 1)

		err := o.ApplyOrderDiscount("10% off", "TEN", decimal.NewFromInt(10), DiscountValuePercentage, DiscountTargetLineItem)
		require.NoError(t, err)

		assert.True(t, a.TotalDiscount().Equal(decimal.RequireFromString("10.00")), "got %s", a.TotalDiscount())
		assert.True(t, b.TotalDiscount().Equal(decimal.RequireFromString("15.00")), "got %s", b.TotalDiscount())
		assert.True(t, o.MoneyInfo.TotalDiscount.Equal(decimal.RequireFromString("25.00")))
		assert.True(t, o.MoneyInfo.TotalPrice.Equal(decimal.RequireFromString("225.00")))
	})

	t.Run("allocations always sum to the discount amount", func(t *testing.T) {
		o := newTestOrder(t)
		items := []*LineItem{
			addItem(t, o, "A", "33.34", 1),
			addItem(t, o, "B", "33.34", 1),
			addItem(t, o, "C", "33.34", 1),
		}

		err := o.ApplyOrderDiscount("ten off", "TENOFF", decimal.RequireFromString("10.00"), DiscountValueFixedAmount, DiscountTargetLineItem)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.TotalDiscount())
		}
		assert.True(t, sum.Equal(decimal.RequireFromString("10.00")), "got %s", sum)
		assert.True(t, items[2].TotalDiscount().Equal(decimal.RequireFromString("3.34")))
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "100.00", 1)
		require.NoError(t, o.ApplyOrderDiscount("x", "CODE", decimal.NewFromInt(5), DiscountValuePercentage, DiscountTargetLineItem))
		err := o.ApplyOrderDiscount("y", "CODE", decimal.NewFromInt(5), DiscountValuePercentage, DiscountTargetLineItem)
		assert.Error(t, err)
	})
}

func TestDistributeOrderTax(t *testing.T) {
	o := newTestOrder(t)
	items := []*LineItem{
		addItem(t, o, "A", "33.34", 1),
		addItem(t, o, "B", "33.34", 1),
		addItem(t, o, "C", "33.34", 1),
	}

	err := o.DistributeOrderTax("VAT", decimal.RequireFromString("0.10"), decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalTax())
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("10.00")), "got %s", sum)
	assert.True(t, o.MoneyInfo.TotalTax.Equal(decimal.RequireFromString("10.00")))
	// tax exclusive order, so tax rides on top
	assert.True(t, o.MoneyInfo.TotalPrice.Equal(decimal.RequireFromString("110.02")))
}

func TestIncreaseLineItems(t *testing.T) {
	t.Run("raises all quantity pools", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)

		require.NoError(t, o.IncreaseLineItems(map[uuid.UUID]int{item.ID: 3}))
		assert.Equal(t, 5, item.Quantity)
		assert.Equal(t, 5, item.CurrentQuantity)
		assert.Equal(t, 5, item.RefundableQuantity)
		assert.True(t, o.MoneyInfo.SubtotalPrice.Equal(decimal.RequireFromString("50.00")))
	})

	t.Run("refuses discounted lines", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 2)
		require.NoError(t, o.ApplyLineDiscount(item.ID, "x", decimal.NewFromInt(10), DiscountValuePercentage))

		err := o.IncreaseLineItems(map[uuid.UUID]int{item.ID: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discounted")
	})
}

func TestAddRefund(t *testing.T) {
	t.Run("refund quantity bound holds across refunds", func(t *testing.T) {
		o := newTestOrder(t)
		item := addItem(t, o, "A", "10.00", 5)

		refund := NewRefund(o.ID, "")
		rli, err := NewRefundLineItem(refund.ID, item.ID, 3, RestockNone, false, uuid.New(), decimal.RequireFromString("30.00"), decimal.Zero)
		require.NoError(t, err)
		refund.AddLineItem(rli)
		require.NoError(t, o.AddRefund(refund, nil))

		assert.Equal(t, 2, item.RefundableQuantity)
		assert.Equal(t, 3, o.RefundedQuantityFor(item.ID))

		second := NewRefund(o.ID, "")
		over, err := NewRefundLineItem(second.ID, item.ID, 3, RestockNone, false, uuid.New(), decimal.RequireFromString("30.00"), decimal.Zero)
		require.NoError(t, err)
		second.AddLineItem(over)
		assert.Error(t, o.AddRefund(second, nil))
	})

	t.Run("shipping refund capped at remaining refundable", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		shipping, err := NewShippingLine(o.ID, "Standard", "std", decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		require.NoError(t, o.AddShippingLine(shipping))

		refund := NewRefund(o.ID, "")
		adj, err := NewOrderAdjustment(refund.ID, AdjustmentShippingRefund, decimal.RequireFromString("6.00"), decimal.Zero)
		require.NoError(t, err)
		refund.AddAdjustment(adj)
		assert.Error(t, o.AddRefund(refund, nil))
	})

	t.Run("cancelled orders refuse refunds", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		require.NoError(t, o.Cancel())
		assert.Error(t, o.AddRefund(NewRefund(o.ID, ""), nil))
	})
}

func TestUpsertRefundTaxLine(t *testing.T) {
	o := newTestOrder(t)
	taxLineID := uuid.New()

	require.NoError(t, o.UpsertRefundTaxLine(taxLineID, decimal.RequireFromString("1.50")))
	require.NoError(t, o.UpsertRefundTaxLine(taxLineID, decimal.RequireFromString("0.50")))

	require.Len(t, o.RefundTaxLines, 1)
	assert.True(t, o.RefundTaxLines[0].Amount.Equal(decimal.RequireFromString("2.00")))
}

func TestOrderLifecycle(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "10.00", 1)

	require.NoError(t, o.Close())
	assert.Error(t, o.AddLineItem(&LineItem{}))
	assert.Error(t, o.ApplyOrderDiscount("x", "", decimal.NewFromInt(5), DiscountValuePercentage, DiscountTargetLineItem))

	require.NoError(t, o.Reopen())
	assert.True(t, o.IsEditable())

	require.NoError(t, o.Cancel())
	assert.Error(t, o.Close())
	assert.Error(t, o.Reopen())
}

func TestPlace(t *testing.T) {
	t.Run("raises creation event", func(t *testing.T) {
		o := newTestOrder(t)
		addItem(t, o, "A", "10.00", 1)
		require.NoError(t, o.Place())

		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventOrderCreated, events[0].EventType())
	})

	t.Run("empty order rejected", func(t *testing.T) {
		o := newTestOrder(t)
		assert.Error(t, o.Place())
	})
}

func TestRecordPayment(t *testing.T) {
	o := newTestOrder(t)
	addItem(t, o, "A", "10.00", 2)

	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("20.00"), o.Currency)))
	assert.True(t, o.MoneyInfo.TotalReceived.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, o.MoneyInfo.TotalOutstanding.IsZero())

	t.Run("non positive refused", func(t *testing.T) {
		assert.Error(t, o.RecordPayment(valueobject.Zero(o.Currency)))
	})

	t.Run("foreign currency refused", func(t *testing.T) {
		err := o.RecordPayment(valueobject.MustMoney(decimal.NewFromInt(5), valueobject.EUR))
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, "CURRENCY_MISMATCH", de.Code)
	})
}

func TestRefundableMoney(t *testing.T) {
	o := newTestOrder(t)
	item := addItem(t, o, "A", "10.00", 2)
	assert.True(t, o.RefundableMoney().Amount().IsZero())

	require.NoError(t, o.RecordPayment(valueobject.MustMoney(decimal.RequireFromString("20.00"), o.Currency)))
	assert.Equal(t, "20.00 USD", o.RefundableMoney().String())

	refund := NewRefund(o.ID, "")
	rli, err := NewRefundLineItem(refund.ID, item.ID, 1, RestockNone, false, uuid.New(), decimal.RequireFromString("10.00"), decimal.Zero)
	require.NoError(t, err)
	refund.AddLineItem(rli)
	require.NoError(t, o.AddRefund(refund, nil))
	assert.Equal(t, "10.00 USD", o.RefundableMoney().String())
}
