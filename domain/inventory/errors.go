package inventory

import (
	"fmt"

	"marketplace/domain/shared"
)

var (
	// ErrProductNotFound 商品不存在；链接到 shared.ErrNotFound
	ErrProductNotFound = fmt.Errorf("product not found: %w", shared.ErrNotFound)

	// ErrInsufficientStock 库存不足；链接到 shared.ErrInvalidInput
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", shared.ErrInvalidInput)

	// ErrConcurrentModification 商品被其他事务修改
	ErrConcurrentModification = fmt.Errorf("product was modified by another transaction: %w", shared.ErrConflict)
)

// NewProductNotFoundError 创建商品未找到错误（带堆栈）
func NewProductNotFoundError(productID string) error {
	return &inventoryError{
		sentinel: ErrProductNotFound,
		message:  "product not found: " + productID,
		stack:    shared.CaptureStack(3),
	}
}

// NewInsufficientStockError 创建库存不足错误，列出所有短缺商品
func NewInsufficientStockError(shortfalls []Shortfall) error {
	msg := "insufficient stock"
	for i, s := range shortfalls {
		sep := ", "
		if i == 0 {
			sep = ": "
		}
		msg += fmt.Sprintf("%s%s (requested %d, available %d)", sep, s.ProductID, s.Requested, s.Available)
	}
	return &inventoryError{
		sentinel:   ErrInsufficientStock,
		message:    msg,
		shortfalls: shortfalls,
		stack:      shared.CaptureStack(3),
	}
}

// inventoryError 库存领域错误（带堆栈）
type inventoryError struct {
	sentinel   error
	message    string
	shortfalls []Shortfall
	stack      []uintptr
}

func (e *inventoryError) Error() string { return e.message }

func (e *inventoryError) Unwrap() error { return e.sentinel }

// Stack 实现 shared.Stacker 接口
func (e *inventoryError) Stack() []string {
	return shared.FormatStack(e.stack)
}

// Shortfalls 返回库存不足明细
func (e *inventoryError) Shortfalls() []Shortfall {
	return e.shortfalls
}
