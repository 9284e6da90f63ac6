// Package cart 购物车行。购物车增删改查属于外部能力，这里只保留结账需要读取和清空的部分。
package cart

import (
	"context"
	"time"
)

// Line 购物车行
type Line struct {
	CustomerID string
	ProductID  string
	Quantity   int
	UpdatedAt  time.Time
}

// Repository 购物车存储
type Repository interface {
	// Lines 按加入顺序返回购物车行
	Lines(ctx context.Context, customerID string) ([]Line, error)

	// Set 设置数量；quantity 为 0 时删除该行
	Set(ctx context.Context, line Line) error

	// Clear 清空购物车（结账事务内调用）
	Clear(ctx context.Context, customerID string) error
}
