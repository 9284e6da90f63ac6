package inventory

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ReservationStatus 台账行状态
type ReservationStatus string

const (
	ReservationReserved   ReservationStatus = "RESERVED"
	ReservationDispatched ReservationStatus = "DISPATCHED"
	ReservationReleased   ReservationStatus = "RELEASED"
	ReservationReturned   ReservationStatus = "RETURNED"
)

// Reservation 库存台账行：一个订单项一行
type Reservation struct {
	ID              string
	MerchantOrderID string
	OrderItemID     string
	ProductID       string
	Quantity        int
	Status          ReservationStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line 一次库存需求
type Line struct {
	ProductID string
	Quantity  int
}

// ReserveLine 下单时按订单项预占
type ReserveLine struct {
	OrderItemID string
	ProductID   string
	Quantity    int
}

// Shortfall 库存不足明细
type Shortfall struct {
	ProductID string
	Requested int
	Available int
}

// Credit 一次库存回补
type Credit struct {
	ProductID   string
	OrderItemID string
	Quantity    int
}

// Restock 回补结果。Missing 中的商品已不存在，无法回补，属于需要上报的不一致。
type Restock struct {
	Credited []Credit
	Missing  []Credit
}

// HasDrift 是否存在无法回补的库存
func (r Restock) HasDrift() bool {
	return len(r.Missing) > 0
}

// Total 实际回补数量
func (r Restock) Total() int {
	n := 0
	for _, c := range r.Credited {
		n += c.Quantity
	}
	return n
}

// Ledger 库存台账领域服务
// 只通过 Repository 的原子操作修改库存，调用方负责提供事务边界
type Ledger struct {
	repo Repository
}

// NewLedger 创建台账服务
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// CheckAvailability 在任何扣减之前校验全部需求，同一商品的多行需求合并计算
func (l *Ledger) CheckAvailability(ctx context.Context, lines []Line) (map[string]*Product, error) {
	requested := make(map[string]int)
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, seen := requested[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	products, err := l.repo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var shortfalls []Shortfall
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, NewProductNotFoundError(id)
		}
		if p.Stock() < requested[id] {
			shortfalls = append(shortfalls, Shortfall{ProductID: id, Requested: requested[id], Available: p.Stock()})
		}
	}
	if len(shortfalls) > 0 {
		return nil, NewInsufficientStockError(shortfalls)
	}
	return products, nil
}

// Reserve 扣减库存并写入 RESERVED 台账
// 扣减是条件更新；并发下另一事务抢先扣减时返回 ErrInsufficientStock，由事务整体回滚
func (l *Ledger) Reserve(ctx context.Context, merchantOrderID string, lines []ReserveLine, now time.Time) error {
	rows := make([]Reservation, 0, len(lines))
	for _, line := range lines {
		if err := l.repo.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
			return err
		}
		rows = append(rows, Reservation{
			ID:              l.repo.NextIdentity(),
			MerchantOrderID: merchantOrderID,
			OrderItemID:     line.OrderItemID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			Status:          ReservationReserved,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return l.repo.SaveReservations(ctx, rows)
}

// Release 取消订单时回补全部 RESERVED 台账，重复调用不会重复回补
func (l *Ledger) Release(ctx context.Context, merchantOrderID string, now time.Time) (Restock, error) {
	rows, err := l.repo.FindReservations(ctx, merchantOrderID)
	if err != nil {
		return Restock{}, err
	}
	sortRows(rows)

	var result Restock
	for _, row := range rows {
		if row.Status != ReservationReserved {
			continue
		}
		if err := l.credit(ctx, row, []ReservationStatus{ReservationReserved}, ReservationReleased, now, &result); err != nil {
			return Restock{}, err
		}
	}
	return result, nil
}

// Dispatch 发货后台账行标记为 DISPATCHED，库存不再因取消而回补
func (l *Ledger) Dispatch(ctx context.Context, merchantOrderID string, now time.Time) error {
	rows, err := l.repo.FindReservations(ctx, merchantOrderID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Status != ReservationReserved {
			continue
		}
		if _, err := l.repo.TransitionReservation(ctx, row.ID, []ReservationStatus{ReservationReserved}, ReservationDispatched, now); err != nil {
			return err
		}
	}
	return nil
}

// ReturnItem 退货入库：回补单个订单项的数量
// 台账行缺失（历史数据）时按 fallback 回补；已回补过的行不再回补
func (l *Ledger) ReturnItem(ctx context.Context, merchantOrderID string, fallback ReserveLine, now time.Time) (Restock, error) {
	rows, err := l.repo.FindReservations(ctx, merchantOrderID)
	if err != nil {
		return Restock{}, err
	}

	var result Restock
	for _, row := range rows {
		if row.OrderItemID != fallback.OrderItemID {
			continue
		}
		if row.Status == ReservationReleased || row.Status == ReservationReturned {
			return result, nil
		}
		err := l.credit(ctx, row, []ReservationStatus{ReservationReserved, ReservationDispatched}, ReservationReturned, now, &result)
		return result, err
	}

	row := Reservation{
		ID:              l.repo.NextIdentity(),
		MerchantOrderID: merchantOrderID,
		OrderItemID:     fallback.OrderItemID,
		ProductID:       fallback.ProductID,
		Quantity:        fallback.Quantity,
		Status:          ReservationReturned,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.repo.SaveReservations(ctx, []Reservation{row}); err != nil {
		return Restock{}, err
	}
	if err := l.addBack(ctx, row, &result); err != nil {
		return Restock{}, err
	}
	return result, nil
}

func (l *Ledger) credit(ctx context.Context, row Reservation, from []ReservationStatus, to ReservationStatus, now time.Time, result *Restock) error {
	changed, err := l.repo.TransitionReservation(ctx, row.ID, from, to, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return l.addBack(ctx, row, result)
}

func (l *Ledger) addBack(ctx context.Context, row Reservation, result *Restock) error {
	c := Credit{ProductID: row.ProductID, OrderItemID: row.OrderItemID, Quantity: row.Quantity}
	err := l.repo.AdjustStock(ctx, row.ProductID, row.Quantity)
	switch {
	case err == nil:
		result.Credited = append(result.Credited, c)
	case errors.Is(err, ErrProductNotFound):
		result.Missing = append(result.Missing, c)
	default:
		return err
	}
	return nil
}

// 固定加锁顺序，降低并发回补时的死锁概率
func sortRows(rows []Reservation) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
}
