package order

import "context"

// Repository 商户订单与订单组仓储
// Save 基于版本号做乐观锁：新建时插入，更新时 WHERE version = 加载时的版本，
// 不匹配返回 ErrConcurrentModification
type Repository interface {
	NextIdentity() string

	SaveGroup(ctx context.Context, group *OrderGroup) error
	FindGroupByID(ctx context.Context, id string) (*OrderGroup, error)

	Save(ctx context.Context, order *MerchantOrder) error
	FindByID(ctx context.Context, id string) (*MerchantOrder, error)

	// FindByGroupID 组内未删除的商户订单，按创建顺序
	FindByGroupID(ctx context.Context, groupID string) ([]*MerchantOrder, error)

	// Find 按规约查询，按创建时间倒序分页
	Find(ctx context.Context, spec Specification, page Page) ([]*MerchantOrder, int64, error)
}

// Page 分页参数
type Page struct {
	Number int
	Size   int
}

// Normalize 页码从 1 开始，页大小默认 20，最大 100
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset 分页偏移量
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}
