package order

import (
	"time"

	"marketplace/domain/shared"
)

// PricedLine 结账行：购物车行加上下单时的商品快照
type PricedLine struct {
	ProductID    string
	ProductTitle string
	MerchantID   string
	UnitPrice    shared.Money
	Quantity     int
}

// PlaceOrderInput 拆单参数
type PlaceOrderInput struct {
	CustomerID    string
	Lines         []PricedLine
	Address       ShippingAddress
	Now           time.Time
	PaymentWindow time.Duration
	NewID         func() string
}

// Placement 拆单结果
type Placement struct {
	Group  *OrderGroup
	Orders []*MerchantOrder
}

// PlaceOrders 结账拆单领域服务（纯函数，不访问仓储）
// 按商家拆分购物车，商家顺序与其在购物车中首次出现的顺序一致；
// 所有子订单共享同一个支付截止时间 now + PaymentWindow；
// 订单组总额等于各子订单小计之和。库存校验与扣减由调用方在同一事务内完成。
func PlaceOrders(in PlaceOrderInput) (*Placement, error) {
	if len(in.Lines) == 0 {
		return nil, NewEmptyCartError()
	}
	address := in.Address.Trimmed()
	if err := address.Validate(); err != nil {
		return nil, err
	}

	var merchants []string
	byMerchant := make(map[string][]PricedLine)
	currency := in.Lines[0].UnitPrice.Currency()
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, NewInvalidQuantityError(line.ProductID)
		}
		if line.UnitPrice.Currency() != currency {
			return nil, shared.NewValidationError("cart", "currency", "all items must share one currency")
		}
		if _, ok := byMerchant[line.MerchantID]; !ok {
			merchants = append(merchants, line.MerchantID)
		}
		byMerchant[line.MerchantID] = append(byMerchant[line.MerchantID], line)
	}

	deadline := in.Now.Add(in.PaymentWindow)
	group := &OrderGroup{
		id:         in.NewID(),
		customerID: in.CustomerID,
		status:     GroupStatusCreated,
		createdAt:  in.Now,
		updatedAt:  in.Now,
		isNew:      true,
	}

	total := shared.Zero(currency)
	orders := make([]*MerchantOrder, 0, len(merchants))
	orderIDs := make([]string, 0, len(merchants))
	for _, merchantID := range merchants {
		o, err := newMerchantOrder(group.id, in.CustomerID, merchantID, byMerchant[merchantID], address, deadline, in.Now, in.NewID)
		if err != nil {
			return nil, err
		}
		sum, err := total.Add(o.subtotal)
		if err != nil {
			return nil, shared.NewValidationError("cart", "total", err.Error())
		}
		total = *sum
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.id)
	}
	group.totalAmount = total
	group.events = append(group.events, shared.NewEvent(EventGroupPlaced, group.id, in.Now, map[string]any{
		"customer_id":        in.CustomerID,
		"total_amount":       total.Amount(),
		"currency":           total.Currency(),
		"merchant_order_ids": orderIDs,
	}))

	return &Placement{Group: group, Orders: orders}, nil
}

func newMerchantOrder(groupID, customerID, merchantID string, lines []PricedLine, address ShippingAddress, deadline, now time.Time, newID func() string) (*MerchantOrder, error) {
	o := &MerchantOrder{
		id:              newID(),
		groupID:         groupID,
		customerID:      customerID,
		merchantID:      merchantID,
		status:          StatusCreated,
		cancelDeadline:  deadline,
		shippingAddress: address,
		createdAt:       now,
		updatedAt:       now,
		isNew:           true,
	}
	subtotal := shared.Zero(lines[0].UnitPrice.Currency())
	for _, line := range lines {
		item := &OrderItem{
			id:           newID(),
			productID:    line.ProductID,
			productTitle: line.ProductTitle,
			unitPrice:    line.UnitPrice,
			quantity:     line.Quantity,
			status:       ItemStatusNormal,
		}
		lineTotal, err := line.UnitPrice.Multiply(line.Quantity)
		if err != nil {
			return nil, shared.NewValidationError("order_item", "quantity", err.Error())
		}
		sum, err := subtotal.Add(*lineTotal)
		if err != nil {
			return nil, shared.NewValidationError("merchant_order", "subtotal", err.Error())
		}
		subtotal = *sum
		o.items = append(o.items, item)
	}
	o.subtotal = subtotal
	o.record(EventOrderCreated, now, map[string]any{
		"customer_id":     customerID,
		"subtotal":        subtotal.Amount(),
		"cancel_deadline": deadline,
		"item_count":      len(o.items),
	})
	return o, nil
}
