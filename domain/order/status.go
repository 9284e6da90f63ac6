package order

// Status 商户订单状态
type Status string

const (
	StatusCreated             Status = "CREATED"
	StatusPaid                Status = "PAID"
	StatusCancelledByUser     Status = "CANCELLED_BY_USER"
	StatusCancelledByMerchant Status = "CANCELLED_BY_MERCHANT"
	StatusCancelledByAdmin    Status = "CANCELLED_BY_ADMIN"
	StatusShipped             Status = "SHIPPED"
	StatusDelivered           Status = "DELIVERED"
	StatusCompleted           Status = "COMPLETED"
	StatusAfterSale           Status = "AFTER_SALE"
	StatusAfterSaleEnded      Status = "AFTER_SALE_ENDED"
)

// AllStatuses 管理员覆盖时可用的全部状态
var AllStatuses = []Status{
	StatusCreated, StatusPaid,
	StatusCancelledByUser, StatusCancelledByMerchant, StatusCancelledByAdmin,
	StatusShipped, StatusDelivered, StatusCompleted,
	StatusAfterSale, StatusAfterSaleEnded,
}

// ParseStatus 解析存储状态
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// transitions 业务流程允许的状态迁移；管理员覆盖不受此表约束
var transitions = map[Status][]Status{
	StatusCreated:        {StatusPaid, StatusCancelledByUser, StatusCancelledByMerchant, StatusCancelledByAdmin},
	StatusPaid:           {StatusShipped, StatusCancelledByUser, StatusCancelledByMerchant, StatusCancelledByAdmin},
	StatusShipped:        {StatusDelivered, StatusCancelledByMerchant, StatusCancelledByAdmin},
	StatusDelivered:      {StatusCompleted, StatusCancelledByMerchant, StatusCancelledByAdmin},
	StatusCompleted:      {StatusAfterSale},
	StatusAfterSale:      {StatusAfterSaleEnded},
	StatusAfterSaleEnded: {StatusAfterSale},
}

// CanTransitionTo 判断流程内迁移是否合法
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsCancelled 三种取消状态之一
func (s Status) IsCancelled() bool {
	switch s {
	case StatusCancelledByUser, StatusCancelledByMerchant, StatusCancelledByAdmin:
		return true
	}
	return false
}

// HoldsReservedStock 处于该状态的订单仍占用预扣库存，取消时需要回补
func (s Status) HoldsReservedStock() bool {
	return s == StatusCreated || s == StatusPaid
}

// GroupStatus 订单组状态
type GroupStatus string

const (
	GroupStatusCreated GroupStatus = "CREATED"
	GroupStatusPaid    GroupStatus = "PAID"
)

// ItemStatus 订单项售后状态
type ItemStatus string

const (
	ItemStatusNormal     ItemStatus = "NORMAL"
	ItemStatusRefunding  ItemStatus = "REFUNDING"
	ItemStatusReturning  ItemStatus = "RETURNING"
	ItemStatusExchanging ItemStatus = "EXCHANGING"
	ItemStatusRefunded   ItemStatus = "REFUNDED"
	ItemStatusReturned   ItemStatus = "RETURNED"
	ItemStatusExchanged  ItemStatus = "EXCHANGED"
)

// IsMoneyBack 退款或退货完成，计入"全部退款"判断
func (s ItemStatus) IsMoneyBack() bool {
	return s == ItemStatusRefunded || s == ItemStatusReturned
}

// ShippingStatus 物流状态
type ShippingStatus string

const (
	ShippingNotShipped ShippingStatus = "NOT_SHIPPED"
	ShippingInTransit  ShippingStatus = "IN_TRANSIT"
	ShippingDelivered  ShippingStatus = "DELIVERED"
)

// ParseShippingStatus 解析物流状态
func ParseShippingStatus(s string) (ShippingStatus, bool) {
	switch st := ShippingStatus(s); st {
	case ShippingNotShipped, ShippingInTransit, ShippingDelivered:
		return st, true
	}
	return "", false
}
