/*
Package order - 订单领域错误定义

设计原则:
1. 包内哨兵错误包装 shared 中的分类哨兵，errors.Is() 既能判断具体错误也能判断分类
2. 错误构造函数在创建时捕获堆栈，便于定位错误发生点
3. 不包含 HTTP 状态码等非领域概念
*/
package order

import (
	"fmt"

	"marketplace/domain/shared"
)

// ============================================================================
// 订单领域哨兵错误
// ============================================================================

var (
	// ErrOrderNotFound 商户订单未找到
	ErrOrderNotFound = fmt.Errorf("merchant order not found: %w", shared.ErrNotFound)

	// ErrGroupNotFound 订单组未找到
	ErrGroupNotFound = fmt.Errorf("order group not found: %w", shared.ErrNotFound)

	// ErrItemNotFound 订单项不属于该订单
	ErrItemNotFound = fmt.Errorf("order item not found: %w", shared.ErrNotFound)

	// ErrConcurrentModification 乐观锁冲突，UnitOfWork 会重试
	ErrConcurrentModification = fmt.Errorf("order was modified by another transaction, please retry: %w", shared.ErrConflict)

	// ErrInvalidOrderState 当前状态不允许该操作
	ErrInvalidOrderState = fmt.Errorf("invalid order state: %w", shared.ErrStateConflict)

	// ErrPaymentWindowExpired 支付截止时间已过
	ErrPaymentWindowExpired = fmt.Errorf("payment window expired: %w", shared.ErrExpired)

	// ErrEmptyCart 购物车为空
	ErrEmptyCart = fmt.Errorf("cart is empty: %w", shared.ErrInvalidInput)

	// ErrInvalidAddress 收货地址不完整
	ErrInvalidAddress = fmt.Errorf("shipping address is incomplete: %w", shared.ErrInvalidInput)

	// ErrInvalidQuantity 数量必须为正
	ErrInvalidQuantity = fmt.Errorf("quantity must be positive: %w", shared.ErrInvalidInput)
)

// ============================================================================
// 订单领域错误构造函数
// ============================================================================

// NewOrderNotFoundError 创建订单未找到错误（带堆栈）
func NewOrderNotFoundError(orderID string) error {
	return &orderDomainError{
		sentinel: ErrOrderNotFound,
		entity:   "merchant_order",
		message:  "merchant order not found: " + orderID,
		stack:    shared.CaptureStack(3),
	}
}

// NewGroupNotFoundError 创建订单组未找到错误
func NewGroupNotFoundError(groupID string) error {
	return &orderDomainError{
		sentinel: ErrGroupNotFound,
		entity:   "order_group",
		message:  "order group not found: " + groupID,
		stack:    shared.CaptureStack(3),
	}
}

// NewItemNotFoundError 创建订单项未找到错误
func NewItemNotFoundError(orderID, itemID string) error {
	return &orderDomainError{
		sentinel: ErrItemNotFound,
		entity:   "order_item",
		field:    "order_item_id",
		message:  "item " + itemID + " does not belong to order " + orderID,
		stack:    shared.CaptureStack(3),
	}
}

// NewConcurrentModificationError 创建并发修改错误
func NewConcurrentModificationError(entity, id string) error {
	return &orderDomainError{
		sentinel: ErrConcurrentModification,
		entity:   entity,
		message:  entity + " " + id + " was modified by another transaction, please retry",
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidOrderStateError 创建状态冲突错误
// expected 描述期望的状态，current 为实际状态
func NewInvalidOrderStateError(orderID string, current Status, expected string) error {
	return &orderDomainError{
		sentinel: ErrInvalidOrderState,
		entity:   "merchant_order",
		message:  fmt.Sprintf("order %s is %s, expected %s", orderID, current, expected),
		stack:    shared.CaptureStack(3),
	}
}

// NewPaymentWindowExpiredError 创建支付窗口过期错误
func NewPaymentWindowExpiredError(orderID string) error {
	return &orderDomainError{
		sentinel: ErrPaymentWindowExpired,
		entity:   "merchant_order",
		message:  "payment window expired for order " + orderID,
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidAddressError 创建地址校验错误
func NewInvalidAddressError(field string) error {
	return &orderDomainError{
		sentinel: ErrInvalidAddress,
		entity:   "shipping_address",
		field:    field,
		message:  "shipping address field " + field + " is required",
		stack:    shared.CaptureStack(3),
	}
}

// NewEmptyCartError 创建空购物车错误
func NewEmptyCartError() error {
	return &orderDomainError{
		sentinel: ErrEmptyCart,
		entity:   "cart",
		message:  "cart is empty",
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidQuantityError 创建数量校验错误
func NewInvalidQuantityError(productID string) error {
	return &orderDomainError{
		sentinel: ErrInvalidQuantity,
		entity:   "order_item",
		field:    "quantity",
		message:  "quantity must be positive for product " + productID,
		stack:    shared.CaptureStack(3),
	}
}

// ============================================================================
// 订单领域错误结构体（内部使用）
// ============================================================================

type orderDomainError struct {
	sentinel error     // 哨兵错误，用于 errors.Is()
	entity   string    // 实体名
	field    string    // 字段名（可选）
	message  string    // 错误消息
	stack    []uintptr // 调用栈
}

func (e *orderDomainError) Error() string {
	return e.message
}

func (e *orderDomainError) Unwrap() error {
	return e.sentinel
}

// Field 校验错误对应的字段
func (e *orderDomainError) Field() string {
	return e.field
}

// Stack 实现 shared.Stacker 接口
func (e *orderDomainError) Stack() []string {
	if len(e.stack) == 0 {
		return nil
	}
	return shared.FormatStack(e.stack)
}
