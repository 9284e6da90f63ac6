package order

import (
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
)

// 将购物车行与库存中的商品快照适配为拆单所需的定价行。
// 单价、标题和商家在这里冻结，之后商品改价不影响已下单的订单项。
func toPricedLines(lines []cart.Line, products map[string]*inventory.Product) []order.PricedLine {
	priced := make([]order.PricedLine, 0, len(lines))
	for _, line := range lines {
		p := products[line.ProductID]
		priced = append(priced, order.PricedLine{
			ProductID:    p.ID(),
			ProductTitle: p.Title(),
			MerchantID:   p.MerchantID(),
			UnitPrice:    p.Price(),
			Quantity:     line.Quantity,
		})
	}
	return priced
}

func toAvailabilityLines(lines []cart.Line) []inventory.Line {
	out := make([]inventory.Line, len(lines))
	for i, line := range lines {
		out[i] = inventory.Line{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	return out
}

func toReserveLines(o *order.MerchantOrder) []inventory.ReserveLine {
	items := o.Items()
	out := make([]inventory.ReserveLine, len(items))
	for i, item := range items {
		out[i] = inventory.ReserveLine{OrderItemID: item.ID(), ProductID: item.ProductID(), Quantity: item.Quantity()}
	}
	return out
}
