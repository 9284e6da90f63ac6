// Package audit 审计记录：每次状态修改都记录一条，写入失败不影响业务
package audit

import (
	"context"
	"strings"
	"time"
)

// Action 审计动作
type Action string

const (
	ActionOrderCreate               Action = "ORDER_CREATE"
	ActionOrderAutoCancelUnpaid     Action = "ORDER_AUTO_CANCEL_UNPAID"
	ActionOrderCancelUser           Action = "ORDER_CANCEL_USER"
	ActionOrderCancelUserAfterPay   Action = "ORDER_CANCEL_USER_AFTER_PAY"
	ActionOrderCancelRequestCreate  Action = "ORDER_CANCEL_REQUEST_CREATE"
	ActionOrderCancelRequestApprove Action = "ORDER_CANCEL_REQUEST_APPROVE"
	ActionOrderCancelRequestReject  Action = "ORDER_CANCEL_REQUEST_REJECT"
	ActionPaymentSuccess            Action = "PAYMENT_SUCCESS"
	ActionPaymentFailed             Action = "PAYMENT_FAILED"
	ActionPaymentGroupSuccess       Action = "PAYMENT_GROUP_SUCCESS"
	ActionOrderConfirmReceipt       Action = "ORDER_CONFIRM_RECEIPT"
	ActionOrderShip                 Action = "ORDER_SHIP"
	ActionOrderShippingStatus       Action = "ORDER_SHIPPING_STATUS_UPDATE"
	ActionOrderVoidMerchant         Action = "ORDER_VOID_MERCHANT"
	ActionOrderVoidAdmin            Action = "ORDER_VOID_ADMIN"
	ActionOrderRemove               Action = "ORDER_REMOVE"
	ActionAdminOrderStatusUpdate    Action = "ADMIN_ORDER_STATUS_UPDATE"
	ActionAfterSaleCreate           Action = "AFTER_SALE_CREATE"
	ActionAfterSaleReturnShipped    Action = "AFTER_SALE_RETURN_SHIPPED"
	ActionAfterSaleMerchantDecision Action = "AFTER_SALE_MERCHANT_DECISION"
	ActionAfterSaleAdminDecision    Action = "AFTER_SALE_ADMIN_DECISION"
	ActionAfterSaleReturnReceived   Action = "AFTER_SALE_RETURN_RECEIVED"
	ActionInventoryRestockDrift     Action = "INVENTORY_RESTOCK_DRIFT"
	ActionProductCreate             Action = "PRODUCT_CREATE"
)

// IsMajor 订单、支付、售后类动作额外写入重大事件日志
func (a Action) IsMajor() bool {
	s := string(a)
	return strings.HasPrefix(s, "ORDER_") || strings.HasPrefix(s, "PAYMENT_") ||
		strings.HasPrefix(s, "AFTER_SALE_") || strings.HasPrefix(s, "ADMIN_ORDER_")
}

// TargetType 审计对象类型
type TargetType string

const (
	TargetMerchantOrder      TargetType = "MERCHANT_ORDER"
	TargetOrderGroup         TargetType = "ORDER_GROUP"
	TargetPaymentTransaction TargetType = "PAYMENT_TRANSACTION"
	TargetCancelRequest      TargetType = "ORDER_CANCEL_REQUEST"
	TargetAfterSaleRequest   TargetType = "AFTER_SALE_REQUEST"
	TargetProduct            TargetType = "PRODUCT"
)

// Entry 审计记录
type Entry struct {
	ID         string
	ActorID    string
	ActorRole  string
	Action     Action
	TargetType TargetType
	TargetID   string
	Payload    map[string]any
	CreatedAt  time.Time
}

// Repository 审计记录存储
type Repository interface {
	Append(ctx context.Context, entry Entry) error
}
