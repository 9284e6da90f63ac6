package order

// 订单领域事件名，写入 outbox 后由 worker 投递到消息总线
const (
	EventGroupPlaced      = "order_group.placed"
	EventGroupPaid        = "order_group.paid"
	EventOrderCreated     = "merchant_order.created"
	EventOrderPaid        = "merchant_order.paid"
	EventPaymentFailed    = "merchant_order.payment_failed"
	EventPaymentRefunded  = "merchant_order.payment_refunded"
	EventOrderCancelled   = "merchant_order.cancelled"
	EventOrderExpired     = "merchant_order.expired"
	EventOrderShipped     = "merchant_order.shipped"
	EventShippingUpdated  = "merchant_order.shipping_updated"
	EventOrderCompleted   = "merchant_order.completed"
	EventAfterSaleOpened  = "merchant_order.after_sale_opened"
	EventAfterSaleSettled = "merchant_order.after_sale_settled"
	EventStatusOverridden = "merchant_order.status_overridden"
	EventOrderRemoved     = "merchant_order.removed"
)
