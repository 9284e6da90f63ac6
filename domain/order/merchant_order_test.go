package order

import (
	"fmt"
	"testing"
	"time"

	"marketplace/domain/payment"
	"marketplace/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

const (
	paymentWindow = 30 * time.Minute
	cancelWindow  = 5 * time.Minute
)

func idGen(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func cny(amount int64) shared.Money {
	return *shared.NewMoney(amount, shared.DefaultCurrency)
}

func testAddress() ShippingAddress {
	return ShippingAddress{
		RecipientName: "张三",
		Phone:         "13800000000",
		Province:      "浙江省",
		City:          "杭州市",
		District:      "西湖区",
		DetailAddress: "文三路 1 号",
	}
}

func placeSingle(t *testing.T) *MerchantOrder {
	t.Helper()
	p, err := PlaceOrders(PlaceOrderInput{
		CustomerID:    "c1",
		Lines:         []PricedLine{{ProductID: "p1", ProductTitle: "Mug", MerchantID: "m1", UnitPrice: cny(1500), Quantity: 2}},
		Address:       testAddress(),
		Now:           t0,
		PaymentWindow: paymentWindow,
		NewID:         idGen("id"),
	})
	require.NoError(t, err)
	require.Len(t, p.Orders, 1)
	return p.Orders[0]
}

func paidOrder(t *testing.T, at time.Time) *MerchantOrder {
	t.Helper()
	o := placeSingle(t)
	_, err := o.StartPayment("pay-1", payment.MethodMock, at)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment("trade-1", at))
	return o
}

func TestPlaceOrders_SplitsByMerchantInFirstSeenOrder(t *testing.T) {
	p, err := PlaceOrders(PlaceOrderInput{
		CustomerID: "c1",
		Lines: []PricedLine{
			{ProductID: "p1", MerchantID: "m2", UnitPrice: cny(100), Quantity: 1},
			{ProductID: "p2", MerchantID: "m1", UnitPrice: cny(250), Quantity: 2},
			{ProductID: "p3", MerchantID: "m2", UnitPrice: cny(40), Quantity: 3},
		},
		Address:       testAddress(),
		Now:           t0,
		PaymentWindow: paymentWindow,
		NewID:         idGen("id"),
	})
	require.NoError(t, err)
	require.Len(t, p.Orders, 2)

	assert.Equal(t, "m2", p.Orders[0].MerchantID())
	assert.Equal(t, "m1", p.Orders[1].MerchantID())
	assert.Len(t, p.Orders[0].Items(), 2)
	assert.Equal(t, int64(220), p.Orders[0].Subtotal().Amount())
	assert.Equal(t, int64(500), p.Orders[1].Subtotal().Amount())
	assert.Equal(t, int64(720), p.Group.TotalAmount().Amount())
	assert.Equal(t, GroupStatusCreated, p.Group.Status())

	for _, o := range p.Orders {
		assert.Equal(t, StatusCreated, o.Status())
		assert.Equal(t, p.Group.ID(), o.GroupID())
		assert.True(t, o.CancelDeadline().Equal(t0.Add(paymentWindow)))
		for _, item := range o.Items() {
			assert.Equal(t, ItemStatusNormal, item.Status())
		}
	}
}

func TestPlaceOrders_Rejections(t *testing.T) {
	line := PricedLine{ProductID: "p1", MerchantID: "m1", UnitPrice: cny(100), Quantity: 1}
	tests := []struct {
		name  string
		lines []PricedLine
		addr  ShippingAddress
	}{
		{"empty cart", nil, testAddress()},
		{"zero quantity", []PricedLine{{ProductID: "p1", MerchantID: "m1", UnitPrice: cny(100), Quantity: 0}}, testAddress()},
		{"mixed currency", []PricedLine{line, {ProductID: "p2", MerchantID: "m1", UnitPrice: *shared.NewMoney(1, "USD"), Quantity: 1}}, testAddress()},
		{"blank phone", []PricedLine{line}, func() ShippingAddress { a := testAddress(); a.Phone = "  "; return a }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlaceOrders(PlaceOrderInput{
				CustomerID: "c1", Lines: tt.lines, Address: tt.addr,
				Now: t0, PaymentWindow: paymentWindow, NewID: idGen("id"),
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestExpiry_DeadlineIsExclusive(t *testing.T) {
	o := placeSingle(t)
	deadline := o.CancelDeadline()

	assert.False(t, o.IsExpired(deadline))
	assert.False(t, o.ExpireIfDue(deadline))
	assert.Equal(t, StatusCreated, o.Status())

	after := deadline.Add(time.Millisecond)
	assert.True(t, o.IsExpired(after))
	assert.Equal(t, DisplayExpired, o.DisplayStatus(after, false))
	assert.True(t, o.ExpireIfDue(after))
	assert.Equal(t, StatusCancelledByUser, o.Status())
	assert.True(t, o.WasAutoCancelled())
	assert.Equal(t, DisplayExpired, o.DisplayStatus(after, false))

	// 第二次不再迁移
	assert.False(t, o.ExpireIfDue(after.Add(time.Hour)))
}

func TestStartPayment_RejectsExpiredOrder(t *testing.T) {
	o := placeSingle(t)
	_, err := o.StartPayment("pay-1", payment.MethodMock, o.CancelDeadline().Add(time.Second))
	assert.ErrorIs(t, err, shared.ErrExpired)
	assert.Equal(t, StatusCreated, o.Status())
}

func TestPayment_FailedThenRetried(t *testing.T) {
	o := placeSingle(t)
	_, err := o.StartPayment("pay-1", payment.MethodCard, t0)
	require.NoError(t, err)
	require.NoError(t, o.FailPayment(t0))
	assert.Equal(t, StatusCreated, o.Status())
	assert.Equal(t, payment.StatusFailed, o.Payment().Status())

	tx, err := o.StartPayment("pay-2", payment.MethodCard, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "pay-2", tx.ID())
	require.NoError(t, o.CompletePayment("trade-2", t0.Add(time.Minute)))
	assert.Equal(t, StatusPaid, o.Status())

	_, err = o.StartPayment("pay-3", payment.MethodCard, t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestCancelByCustomer(t *testing.T) {
	t.Run("before payment", func(t *testing.T) {
		o := placeSingle(t)
		out, err := o.CancelByCustomer(t0.Add(time.Minute), cancelWindow)
		require.NoError(t, err)
		assert.Equal(t, CancelledBeforePayment, out.Kind)
		assert.True(t, out.RestoresStock())
		assert.False(t, out.Refunded)
		assert.Equal(t, StatusCancelledByUser, o.Status())
		assert.False(t, o.WasAutoCancelled())
	})

	t.Run("after deadline is expired", func(t *testing.T) {
		o := placeSingle(t)
		_, err := o.CancelByCustomer(o.CancelDeadline().Add(time.Second), cancelWindow)
		assert.ErrorIs(t, err, shared.ErrExpired)
		assert.Equal(t, StatusCreated, o.Status())
	})

	t.Run("paid within window refunds", func(t *testing.T) {
		o := paidOrder(t, t0)
		out, err := o.CancelByCustomer(t0.Add(cancelWindow), cancelWindow)
		require.NoError(t, err)
		assert.Equal(t, CancelledAfterPayment, out.Kind)
		assert.True(t, out.Refunded)
		assert.Equal(t, payment.StatusRefunded, o.Payment().Status())
		assert.Equal(t, StatusCancelledByUser, o.Status())
	})

	t.Run("paid outside window needs approval", func(t *testing.T) {
		o := paidOrder(t, t0)
		out, err := o.CancelByCustomer(t0.Add(cancelWindow+time.Second), cancelWindow)
		require.NoError(t, err)
		assert.Equal(t, ApprovalRequired, out.Kind)
		assert.False(t, out.RestoresStock())
		assert.Equal(t, StatusPaid, o.Status())
		assert.Equal(t, DisplayCancelRequestPending, o.DisplayStatus(t0.Add(time.Hour), true))
	})

	t.Run("shipped is rejected", func(t *testing.T) {
		o := paidOrder(t, t0)
		require.NoError(t, o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "SF", TrackingNo: "T1"}, t0))
		_, err := o.CancelByCustomer(t0, cancelWindow)
		assert.ErrorIs(t, err, shared.ErrStateConflict)
	})
}

func TestCancelWindow(t *testing.T) {
	o := placeSingle(t)
	w := o.CancelWindow(t0.Add(10*time.Minute), cancelWindow)
	assert.Equal(t, WindowPayment, w.Kind)
	assert.Equal(t, int64(20*60), w.RemainingSeconds())

	paid := paidOrder(t, t0)
	w = paid.CancelWindow(t0.Add(2*time.Minute), cancelWindow)
	assert.Equal(t, WindowPostPayCancel, w.Kind)
	assert.Equal(t, int64(180), w.RemainingSeconds())

	w = paid.CancelWindow(t0.Add(time.Hour), cancelWindow)
	assert.Zero(t, w.RemainingSeconds())
}

func TestVoid(t *testing.T) {
	t.Run("paid by merchant refunds and restores", func(t *testing.T) {
		o := paidOrder(t, t0)
		out, err := o.Void(shared.RoleMerchant, "out of stock", t0)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelledByMerchant, out.StatusAfter)
		assert.True(t, out.Refunded)
		assert.True(t, out.RestoreStock)
	})

	t.Run("shipped by admin keeps stock", func(t *testing.T) {
		o := paidOrder(t, t0)
		require.NoError(t, o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "SF", TrackingNo: "T1"}, t0))
		out, err := o.Void(shared.RoleAdmin, "", t0)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelledByAdmin, o.Status())
		assert.False(t, out.RestoreStock)
		assert.False(t, out.Refunded)
	})

	t.Run("completed is rejected", func(t *testing.T) {
		o := fulfilled(t)
		_, err := o.Void(shared.RoleMerchant, "", t0)
		assert.ErrorIs(t, err, shared.ErrStateConflict)
	})
}

func TestApproveCancellation_RequiresPaid(t *testing.T) {
	o := paidOrder(t, t0)
	require.NoError(t, o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "SF", TrackingNo: "T1"}, t0))
	_, err := o.ApproveCancellation(shared.RoleMerchant, t0)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	o = paidOrder(t, t0)
	out, err := o.ApproveCancellation(shared.RoleAdmin, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByAdmin, out.StatusAfter)
	assert.True(t, out.RestoreStock)
}

func fulfilled(t *testing.T) *MerchantOrder {
	t.Helper()
	o := paidOrder(t, t0)
	require.NoError(t, o.Ship(ShipInput{
		ShipmentID:  "s1",
		CarrierName: " SF ",
		TrackingNo:  "T1",
		Events:      []ShipmentEvent{{Time: t0, Location: "杭州", Message: "已揽收"}},
	}, t0))
	require.NoError(t, o.UpdateShippingStatus(ShippingDelivered, t0.Add(time.Hour)))
	require.NoError(t, o.ConfirmReceipt(t0.Add(2*time.Hour)))
	return o
}

func TestFulfillment(t *testing.T) {
	o := paidOrder(t, t0)
	err := o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "", TrackingNo: "T1"}, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = o.ConfirmReceipt(t0)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	o = fulfilled(t)
	assert.Equal(t, StatusCompleted, o.Status())
	require.NotNil(t, o.Shipment())
	assert.Equal(t, "SF", o.Shipment().CarrierName())
	assert.Equal(t, ShippingDelivered, o.Shipment().Status())
	assert.NotNil(t, o.Shipment().DeliveredAt())
	assert.Len(t, o.Shipment().Events(), 1)
}

func TestUpdateShippingStatus_InTransitKeepsShipped(t *testing.T) {
	o := paidOrder(t, t0)
	err := o.UpdateShippingStatus(ShippingInTransit, t0)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "SF", TrackingNo: "T1"}, t0))
	require.NoError(t, o.UpdateShippingStatus(ShippingInTransit, t0))
	assert.Equal(t, StatusShipped, o.Status())
}

func TestAfterSaleLifecycle(t *testing.T) {
	o := fulfilled(t)
	itemID := o.Items()[0].ID()

	_, err := o.OpenAfterSale("missing", ItemStatusRefunding, t0)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = o.OpenAfterSale(itemID, ItemStatusRefunding, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusAfterSale, o.Status())

	_, err = o.OpenAfterSale(itemID, ItemStatusReturning, t0)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	require.NoError(t, o.SetItemStatus(itemID, ItemStatusRefunded, t0))
	refunded, err := o.RefundIfFullyReturned(t0)
	require.NoError(t, err)
	assert.True(t, refunded)
	assert.Equal(t, payment.StatusRefunded, o.Payment().Status())

	o.SettleAfterSale(false, t0)
	assert.Equal(t, StatusAfterSaleEnded, o.Status())
	o.SettleAfterSale(true, t0)
	assert.Equal(t, StatusAfterSale, o.Status())
}

func TestSettleAfterSale_IgnoresUnrelatedStatus(t *testing.T) {
	o := paidOrder(t, t0)
	o.SettleAfterSale(false, t0)
	assert.Equal(t, StatusPaid, o.Status())
}

func TestOverrideStatus(t *testing.T) {
	t.Run("same status is a no-op", func(t *testing.T) {
		o := paidOrder(t, t0)
		o.PullEvents()
		out, err := o.OverrideStatus(StatusPaid, "", t0)
		require.NoError(t, err)
		assert.False(t, out.Changed)
		assert.Empty(t, o.PullEvents())
	})

	t.Run("cancel from paid restores and refunds", func(t *testing.T) {
		o := paidOrder(t, t0)
		out, err := o.OverrideStatus(StatusCancelledByAdmin, "fraud", t0)
		require.NoError(t, err)
		assert.True(t, out.Changed)
		assert.True(t, out.RestoreStock)
		assert.True(t, out.Refunded)
	})

	t.Run("cancel from shipped keeps stock", func(t *testing.T) {
		o := paidOrder(t, t0)
		require.NoError(t, o.Ship(ShipInput{ShipmentID: "s1", CarrierName: "SF", TrackingNo: "T1"}, t0))
		out, err := o.OverrideStatus(StatusCancelledByAdmin, "", t0)
		require.NoError(t, err)
		assert.False(t, out.RestoreStock)
		assert.True(t, out.Refunded)
	})

	t.Run("non-cancel target ignores flow table", func(t *testing.T) {
		o := placeSingle(t)
		out, err := o.OverrideStatus(StatusCompleted, "", t0)
		require.NoError(t, err)
		assert.False(t, out.RestoreStock)
		assert.Equal(t, StatusCompleted, o.Status())
	})
}

func TestRemove(t *testing.T) {
	o := paidOrder(t, t0)
	err := o.Remove("admin-1", "spam", t0)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	o = fulfilled(t)
	require.NoError(t, o.Remove("admin-1", "spam", t0))
	assert.True(t, o.IsDeleted())
	assert.Equal(t, "admin-1", o.DeletedBy())
	assert.Equal(t, "spam", o.DeletedReason())

	err = o.Remove("admin-1", "again", t0)
	assert.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestSnapshotRoundTripKeepsState(t *testing.T) {
	o := fulfilled(t)
	_, err := o.OpenAfterSale(o.Items()[0].ID(), ItemStatusReturning, t0)
	require.NoError(t, err)

	rebuilt := RebuildFromDTO(o.Snapshot())
	assert.Equal(t, o.Status(), rebuilt.Status())
	assert.Equal(t, o.Subtotal(), rebuilt.Subtotal())
	assert.Equal(t, ItemStatusReturning, rebuilt.Items()[0].Status())
	assert.Equal(t, o.Payment().Status(), rebuilt.Payment().Status())
	assert.Equal(t, o.Shipment().TrackingNo(), rebuilt.Shipment().TrackingNo())
	assert.False(t, rebuilt.IsNew())
}

func TestGroupMarkPaidIfSettled(t *testing.T) {
	p, err := PlaceOrders(PlaceOrderInput{
		CustomerID: "c1",
		Lines: []PricedLine{
			{ProductID: "p1", MerchantID: "m1", UnitPrice: cny(100), Quantity: 1},
			{ProductID: "p2", MerchantID: "m2", UnitPrice: cny(100), Quantity: 1},
		},
		Address: testAddress(), Now: t0, PaymentWindow: paymentWindow, NewID: idGen("id"),
	})
	require.NoError(t, err)

	first := p.Orders[0]
	_, err = first.StartPayment("pay-1", payment.MethodMock, t0)
	require.NoError(t, err)
	require.NoError(t, first.CompletePayment("t1", t0))
	assert.False(t, p.Group.MarkPaidIfSettled(p.Orders, t0))

	second := p.Orders[1]
	_, err = second.StartPayment("pay-2", payment.MethodMock, t0)
	require.NoError(t, err)
	require.NoError(t, second.CompletePayment("t2", t0))
	assert.True(t, p.Group.MarkPaidIfSettled(p.Orders, t0))
	assert.Equal(t, GroupStatusPaid, p.Group.Status())
}

// 任意购物车拆单后：子订单数等于商家数，组总额等于各行金额之和
func TestPlaceOrders_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "lines")
		lines := make([]PricedLine, n)
		merchants := map[string]bool{}
		var want int64
		for i := range lines {
			m := fmt.Sprintf("m%d", rapid.IntRange(1, 4).Draw(t, "merchant"))
			price := rapid.Int64Range(1, 100000).Draw(t, "price")
			qty := rapid.IntRange(1, 20).Draw(t, "qty")
			lines[i] = PricedLine{ProductID: fmt.Sprintf("p%d", i), MerchantID: m, UnitPrice: cny(price), Quantity: qty}
			merchants[m] = true
			want += price * int64(qty)
		}

		p, err := PlaceOrders(PlaceOrderInput{
			CustomerID: "c1", Lines: lines, Address: testAddress(),
			Now: t0, PaymentWindow: paymentWindow, NewID: idGen("id"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.Orders) != len(merchants) {
			t.Fatalf("got %d orders for %d merchants", len(p.Orders), len(merchants))
		}
		var sum, items int64
		for _, o := range p.Orders {
			sum += o.Subtotal().Amount()
			items += int64(len(o.Items()))
		}
		if sum != want || p.Group.TotalAmount().Amount() != want {
			t.Fatalf("total mismatch: subtotals=%d group=%d want=%d", sum, p.Group.TotalAmount().Amount(), want)
		}
		if items != int64(n) {
			t.Fatalf("got %d items, want %d", items, n)
		}
	})
}
