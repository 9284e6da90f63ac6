package order

import (
	"context"
	"fmt"
	"testing"

	"marketplace/domain/aftersale"
	"marketplace/domain/order"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 结账要么精确扣减每个商品的购物车数量，要么什么都不扣；取消全部子订单后库存回到初始值
func TestProperty_StockConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture()
		ctx := context.Background()

		n := rapid.IntRange(1, 5).Draw(rt, "products")
		initial := make(map[string]int, n)
		wanted := make(map[string]int, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("p%d", i)
			merchant := fmt.Sprintf("m%d", rapid.IntRange(0, 2).Draw(rt, "merchant"))
			stock := rapid.IntRange(0, 6).Draw(rt, "stock")
			f.seed(id, merchant, int64(rapid.IntRange(1, 5000).Draw(rt, "price")), stock)
			initial[id] = stock
			if rapid.Bool().Draw(rt, "inCart") {
				qty := rapid.IntRange(1, 4).Draw(rt, "qty")
				f.addToCart(customer.ID, id, qty)
				wanted[id] = qty
			}
		}

		resp, err := f.svc.Checkout(ctx, customer, CheckoutRequest{Address: testAddress()})
		if err != nil {
			for id, stock := range initial {
				require.Equal(rt, stock, f.store.Stock(id), "failed checkout must not debit %s", id)
			}
			return
		}

		for id, stock := range initial {
			require.Equal(rt, stock-wanted[id], f.store.Stock(id), "stock of %s after checkout", id)
		}
		var total int64
		for _, o := range resp.Orders {
			total += o.Subtotal.Amount
		}
		require.Equal(rt, resp.TotalAmount.Amount, total)

		for _, o := range resp.Orders {
			if rapid.Bool().Draw(rt, "payFirst") {
				_, err := f.svc.Pay(ctx, customer, o.MerchantOrderID, PayRequest{})
				require.NoError(rt, err)
			}
			_, err := f.svc.Cancel(ctx, customer, o.MerchantOrderID, CancelOrderRequest{})
			require.NoError(rt, err)
		}
		for id, stock := range initial {
			require.Equal(rt, stock, f.store.Stock(id), "stock of %s after cancelling everything", id)
		}
	})
}

// 任意售后操作序列之后：存在未结束申请时订单为 AFTER_SALE，全部结束时为 AFTER_SALE_ENDED
func TestProperty_AfterSaleAggregation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture()
		ctx := context.Background()

		n := rapid.IntRange(1, 3).Draw(rt, "items")
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("p%d", i)
			f.seed(id, "mA", 1000, 10)
			f.addToCart(customer.ID, id, rapid.IntRange(1, 3).Draw(rt, "qty"))
		}
		placed, err := f.svc.Checkout(ctx, customer, CheckoutRequest{Address: testAddress()})
		require.NoError(rt, err)
		orderID := placed.Orders[0].MerchantOrderID
		_, err = f.svc.Pay(ctx, customer, orderID, PayRequest{})
		require.NoError(rt, err)
		_, err = f.svc.ShipOrder(ctx, merchantA, orderID, ShipRequest{CarrierName: "SF", TrackingNo: "SF1"})
		require.NoError(rt, err)
		_, err = f.svc.UpdateShippingStatus(ctx, merchantA, orderID, ShippingStatusRequest{Status: "DELIVERED"})
		require.NoError(rt, err)
		_, err = f.svc.ConfirmReceipt(ctx, customer, orderID)
		require.NoError(rt, err)

		got, err := f.svc.GetOrder(ctx, admin, orderID)
		require.NoError(rt, err)
		itemIDs := make([]string, 0, len(got.Items))
		for _, item := range got.Items {
			itemIDs = append(itemIDs, item.ID)
		}

		var requestIDs []string
		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 4).Draw(rt, "op")
			if op > 0 && len(requestIDs) == 0 {
				op = 0
			}
			switch op {
			case 0:
				item := rapid.SampledFrom(itemIDs).Draw(rt, "item")
				typ := rapid.SampledFrom([]string{"RETURN", "EXCHANGE", "REFUND_ONLY"}).Draw(rt, "type")
				if r, err := f.svc.CreateAfterSale(ctx, customer, orderID, CreateAfterSaleRequest{ItemID: item, Type: typ}); err == nil {
					requestIDs = append(requestIDs, r.ID)
				}
			case 1:
				id := rapid.SampledFrom(requestIDs).Draw(rt, "request")
				action := rapid.SampledFrom([]string{"APPROVE", "REJECT"}).Draw(rt, "merchantAction")
				_, _ = f.svc.HandleAfterSale(ctx, merchantA, id, HandleAfterSaleRequest{Action: action})
			case 2:
				id := rapid.SampledFrom(requestIDs).Draw(rt, "request")
				action := rapid.SampledFrom([]string{"APPROVE", "REJECT"}).Draw(rt, "adminAction")
				_, _ = f.svc.AdminHandleAfterSale(ctx, admin, id, HandleAfterSaleRequest{Action: action})
			case 3:
				id := rapid.SampledFrom(requestIDs).Draw(rt, "request")
				_, _ = f.svc.ReturnShip(ctx, customer, id, ReturnShipRequest{CarrierName: "YTO", TrackingNo: "Y1"})
			case 4:
				id := rapid.SampledFrom(requestIDs).Draw(rt, "request")
				_, _ = f.svc.ReceiveReturn(ctx, merchantA, id)
			}

			got, err := f.svc.GetOrder(ctx, admin, orderID)
			require.NoError(rt, err)
			open := false
			for _, r := range got.AfterSales {
				if aftersale.Status(r.Status).IsOpen() {
					open = true
				}
			}
			switch {
			case open:
				require.Equal(rt, string(order.StatusAfterSale), got.Status)
			case len(got.AfterSales) > 0:
				require.Equal(rt, string(order.StatusAfterSaleEnded), got.Status)
			default:
				require.Equal(rt, string(order.StatusCompleted), got.Status)
			}
		}
	})
}
