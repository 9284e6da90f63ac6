package order

import "time"

// ============================================================================
// 请求模型
// ============================================================================

// AddressRequest 收货地址入参
type AddressRequest struct {
	RecipientName string `json:"recipient_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Province      string `json:"province" binding:"required"`
	City          string `json:"city" binding:"required"`
	District      string `json:"district" binding:"required"`
	DetailAddress string `json:"detail_address" binding:"required"`
}

// CheckoutRequest 结账入参；购物车从存储读取
type CheckoutRequest struct {
	Address        AddressRequest `json:"address" binding:"required"`
	IdempotencyKey string         `json:"-"`
}

// CancelOrderRequest 顾客取消入参
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// PayRequest 支付入参
type PayRequest struct {
	Method string `json:"method"`
}

// DecisionRequest 取消申请审核入参
type DecisionRequest struct {
	Note string `json:"note"`
}

// ShipmentEventRequest 物流轨迹
type ShipmentEventRequest struct {
	Time     time.Time `json:"time"`
	Location string    `json:"location"`
	Message  string    `json:"message"`
}

// ShipRequest 发货入参
type ShipRequest struct {
	CarrierName string                 `json:"carrier_name" binding:"required"`
	TrackingNo  string                 `json:"tracking_no" binding:"required"`
	Events      []ShipmentEventRequest `json:"events"`
}

// ShippingStatusRequest 物流状态入参
type ShippingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=NOT_SHIPPED IN_TRANSIT DELIVERED"`
}

// VoidRequest 作废入参
type VoidRequest struct {
	Reason string `json:"reason"`
}

// RemoveRequest 软删除入参
type RemoveRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// UpdateOrderStatusRequest 管理员覆盖状态入参
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// CreateAfterSaleRequest 售后申请入参
type CreateAfterSaleRequest struct {
	ItemID string `json:"item_id" binding:"required"`
	Type   string `json:"type" binding:"required,oneof=RETURN EXCHANGE REFUND_ONLY"`
	Reason string `json:"reason"`
}

// ReturnShipRequest 退货寄回入参
type ReturnShipRequest struct {
	CarrierName string `json:"carrier_name" binding:"required"`
	TrackingNo  string `json:"tracking_no" binding:"required"`
}

// HandleAfterSaleRequest 售后审核入参
type HandleAfterSaleRequest struct {
	Action string `json:"action" binding:"required"`
	Note   string `json:"note"`
}

// ListOrdersQuery 订单列表查询
type ListOrdersQuery struct {
	Page   int    `form:"page"`
	Size   int    `form:"size"`
	Status string `form:"status"`
}

// ============================================================================
// 返回模型
// ============================================================================

// MoneyResponse 金额返回模型
type MoneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CheckoutOrderResponse 结账生成的子订单
type CheckoutOrderResponse struct {
	MerchantOrderID string        `json:"merchant_order_id"`
	MerchantID      string        `json:"merchant_id"`
	Subtotal        MoneyResponse `json:"subtotal"`
	CancelDeadline  time.Time     `json:"cancel_deadline"`
}

// CheckoutResponse 结账结果
type CheckoutResponse struct {
	OrderGroupID string                  `json:"order_group_id"`
	TotalAmount  MoneyResponse           `json:"total_amount"`
	Orders       []CheckoutOrderResponse `json:"orders"`
	Replayed     bool                    `json:"replayed,omitempty"`
}

// CancelWindowResponse 取消窗口
type CancelWindowResponse struct {
	OrderID          string    `json:"order_id"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	WindowKind       string    `json:"window_kind"`
	WindowDeadline   time.Time `json:"window_deadline"`
	CancelDeadline   time.Time `json:"cancel_deadline"`
	AutoCancelled    bool      `json:"auto_cancelled"`
	Status           string    `json:"status"`
	DisplayStatus    string    `json:"display_status"`
}

// CancelOrderResponse 顾客取消结果：直接取消或转为待审核申请
type CancelOrderResponse struct {
	OrderID                  string `json:"order_id"`
	NewStatus                string `json:"new_status,omitempty"`
	Refunded                 bool   `json:"refunded"`
	RequiresMerchantApproval bool   `json:"requires_merchant_approval"`
	RequestID                string `json:"request_id,omitempty"`
	RequestStatus            string `json:"status,omitempty"`
}

// PaymentResponse 支付结果
type PaymentResponse struct {
	OrderID         string        `json:"order_id"`
	PaymentID       string        `json:"payment_id"`
	PaymentStatus   string        `json:"payment_status"`
	Method          string        `json:"method"`
	ProviderTradeNo string        `json:"provider_trade_no,omitempty"`
	Amount          MoneyResponse `json:"amount"`
	OrderStatus     string        `json:"order_status"`
}

// GroupPaymentResponse 合并支付结果
type GroupPaymentResponse struct {
	OrderGroupID string            `json:"order_group_id"`
	GroupStatus  string            `json:"group_status"`
	PaymentIDs   []string          `json:"payment_ids"`
	Payments     []PaymentResponse `json:"payments"`
}

// CancelRequestResponse 取消申请
type CancelRequestResponse struct {
	ID              string     `json:"id"`
	MerchantOrderID string     `json:"merchant_order_id"`
	MerchantID      string     `json:"merchant_id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason"`
	MerchantNote    string     `json:"merchant_note,omitempty"`
	DecidedBy       string     `json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	OrderStatus     string     `json:"order_status,omitempty"`
	Refunded        bool       `json:"refunded,omitempty"`
}

// StatusChangeResponse 作废、覆盖、删除等直接改状态操作的结果
type StatusChangeResponse struct {
	OrderID       string `json:"order_id"`
	StatusBefore  string `json:"status_before"`
	Status        string `json:"status"`
	Changed       bool   `json:"changed"`
	Refunded      bool   `json:"refunded"`
	RestoredUnits int    `json:"restored_units"`
	Deleted       bool   `json:"deleted,omitempty"`
}

// AddressResponse 收货地址快照
type AddressResponse struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Province      string `json:"province"`
	City          string `json:"city"`
	District      string `json:"district"`
	DetailAddress string `json:"detail_address"`
	FullAddress   string `json:"full_address"`
}

// OrderItemResponse 订单项
type OrderItemResponse struct {
	ID           string        `json:"id"`
	ProductID    string        `json:"product_id"`
	ProductTitle string        `json:"product_title"`
	Quantity     int           `json:"quantity"`
	UnitPrice    MoneyResponse `json:"unit_price"`
	Subtotal     MoneyResponse `json:"subtotal"`
	Status       string        `json:"status"`
}

// PaymentRecordResponse 支付流水
type PaymentRecordResponse struct {
	ID              string        `json:"id"`
	Status          string        `json:"status"`
	Method          string        `json:"method"`
	Amount          MoneyResponse `json:"amount"`
	ProviderTradeNo string        `json:"provider_trade_no,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ShipmentResponse 发货记录
type ShipmentResponse struct {
	ID          string                 `json:"id"`
	CarrierName string                 `json:"carrier_name"`
	TrackingNo  string                 `json:"tracking_no"`
	Status      string                 `json:"status"`
	ShippedAt   *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time             `json:"delivered_at,omitempty"`
	Events      []ShipmentEventRequest `json:"events"`
}

// ReturnShipmentResponse 退货物流
type ReturnShipmentResponse struct {
	CarrierName string     `json:"carrier_name,omitempty"`
	TrackingNo  string     `json:"tracking_no,omitempty"`
	Status      string     `json:"status"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
}

// AfterSaleResponse 售后申请
type AfterSaleResponse struct {
	ID              string                 `json:"id"`
	MerchantOrderID string                 `json:"merchant_order_id"`
	OrderItemID     string                 `json:"order_item_id"`
	UserID          string                 `json:"user_id"`
	MerchantID      string                 `json:"merchant_id"`
	Type            string                 `json:"type"`
	Status          string                 `json:"status"`
	Reason          string                 `json:"reason"`
	ResolutionNote  string                 `json:"resolution_note,omitempty"`
	Return          ReturnShipmentResponse `json:"return_shipment"`
	ItemStatus      string                 `json:"item_status,omitempty"`
	OrderStatus     string                 `json:"order_status,omitempty"`
	PaymentRefunded bool                   `json:"payment_refunded,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderResponse 子订单详情
type OrderResponse struct {
	ID              string                 `json:"id"`
	OrderGroupID    string                 `json:"order_group_id"`
	CustomerID      string                 `json:"customer_id"`
	MerchantID      string                 `json:"merchant_id"`
	Status          string                 `json:"status"`
	DisplayStatus   string                 `json:"display_status"`
	Subtotal        MoneyResponse          `json:"subtotal"`
	CancelDeadline  time.Time              `json:"cancel_deadline"`
	AutoCancelled   bool                   `json:"auto_cancelled"`
	Items           []OrderItemResponse    `json:"items"`
	ShippingAddress AddressResponse        `json:"shipping_address"`
	Payment         *PaymentRecordResponse `json:"payment,omitempty"`
	Shipment        *ShipmentResponse      `json:"shipment,omitempty"`
	AfterSales      []AfterSaleResponse    `json:"after_sales,omitempty"`
	Deleted         bool                   `json:"deleted,omitempty"`
	DeletedReason   string                 `json:"deleted_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderListResponse 订单分页列表
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}
