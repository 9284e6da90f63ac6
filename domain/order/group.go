package order

import (
	"time"

	"marketplace/domain/shared"
)

// OrderGroup 一次结账的顾客视角汇总
// 总金额在创建时等于各商户订单小计之和，之后不再重算；只有状态会在全部子订单支付后改为 PAID
type OrderGroup struct {
	id          string
	customerID  string
	totalAmount shared.Money
	status      GroupStatus
	version     int
	createdAt   time.Time
	updatedAt   time.Time

	events []shared.DomainEvent
	isNew  bool
}

var _ shared.AggregateRoot = (*OrderGroup)(nil)

// MarkPaidIfSettled 所有子订单都已支付时把订单组标记为 PAID
func (g *OrderGroup) MarkPaidIfSettled(orders []*MerchantOrder, now time.Time) bool {
	if g.status == GroupStatusPaid || len(orders) == 0 {
		return false
	}
	for _, o := range orders {
		if o.Status() != StatusPaid {
			return false
		}
	}
	g.status = GroupStatusPaid
	g.updatedAt = now
	g.events = append(g.events, shared.NewEvent(EventGroupPaid, g.id, now, map[string]any{
		"customer_id":  g.customerID,
		"total_amount": g.totalAmount.Amount(),
	}))
	return true
}

func (g *OrderGroup) ID() string                { return g.id }
func (g *OrderGroup) CustomerID() string        { return g.customerID }
func (g *OrderGroup) TotalAmount() shared.Money { return g.totalAmount }
func (g *OrderGroup) Status() GroupStatus       { return g.status }
func (g *OrderGroup) Version() int              { return g.version }
func (g *OrderGroup) CreatedAt() time.Time      { return g.createdAt }
func (g *OrderGroup) UpdatedAt() time.Time      { return g.updatedAt }
func (g *OrderGroup) IsNew() bool               { return g.isNew }

// IncrementVersionForSave 仓储保存成功后调用
func (g *OrderGroup) IncrementVersionForSave() { g.version++ }

// ClearDirtyTracking 保存成功后清理新建标记
func (g *OrderGroup) ClearDirtyTracking() { g.isNew = false }

// PullEvents 获取并清空事件
func (g *OrderGroup) PullEvents() []shared.DomainEvent {
	events := g.events
	g.events = nil
	return events
}

// GroupDTO 订单组重建 DTO
type GroupDTO struct {
	ID          string
	CustomerID  string
	TotalAmount shared.Money
	Status      GroupStatus
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RebuildGroup 从 DTO 重建订单组
func RebuildGroup(dto GroupDTO) *OrderGroup {
	return &OrderGroup{
		id:          dto.ID,
		customerID:  dto.CustomerID,
		totalAmount: dto.TotalAmount,
		status:      dto.Status,
		version:     dto.Version,
		createdAt:   dto.CreatedAt,
		updatedAt:   dto.UpdatedAt,
	}
}

// Snapshot 导出当前状态
func (g *OrderGroup) Snapshot() GroupDTO {
	return GroupDTO{
		ID:          g.id,
		CustomerID:  g.customerID,
		TotalAmount: g.totalAmount,
		Status:      g.status,
		Version:     g.version,
		CreatedAt:   g.createdAt,
		UpdatedAt:   g.updatedAt,
	}
}
