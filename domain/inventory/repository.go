package inventory

import (
	"context"
	"time"
)

// Repository 库存仓储
// 库存变更全部是原子的条件更新，不读-改-写整个商品
type Repository interface {
	NextIdentity() string

	// SaveProduct 新建商品
	SaveProduct(ctx context.Context, product *Product) error

	FindProductByID(ctx context.Context, id string) (*Product, error)

	// FindProductsByIDs 批量加载；不存在的 ID 不出现在结果中。事务内加行锁。
	FindProductsByIDs(ctx context.Context, ids []string) (map[string]*Product, error)

	// AdjustStock 原子地调整库存。delta < 0 时库存不足返回 ErrInsufficientStock，
	// 商品不存在返回 ErrProductNotFound
	AdjustStock(ctx context.Context, productID string, delta int) error

	SaveReservations(ctx context.Context, rows []Reservation) error

	FindReservations(ctx context.Context, merchantOrderID string) ([]Reservation, error)

	// TransitionReservation 条件翻转台账状态，行不处于 from 中任一状态时返回 false
	TransitionReservation(ctx context.Context, id string, from []ReservationStatus, to ReservationStatus, now time.Time) (bool, error)
}
