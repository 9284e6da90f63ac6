// Package inventory 库存子域：商品库存与预占台账。
//
// 下单时为每个订单项写一条 RESERVED 台账并扣减库存；取消时 RESERVED -> RELEASED
// 并回补库存；发货时 RESERVED -> DISPATCHED；退货入库时 -> RETURNED 并回补。
// 台账行的状态翻转是条件更新，同一行最多回补一次。
package inventory

import (
	"strings"
	"time"

	"marketplace/domain/shared"
)

// Product 商品库存聚合
type Product struct {
	id         string
	merchantID string
	title      string
	price      shared.Money
	stock      int
	version    int
	createdAt  time.Time
	updatedAt  time.Time

	events []shared.DomainEvent
	isNew  bool
}

// NewProduct 商家上架商品
func NewProduct(id, merchantID, title string, price shared.Money, stock int, now time.Time) (*Product, error) {
	title = strings.TrimSpace(title)
	if merchantID == "" {
		return nil, shared.NewValidationError("product", "merchant_id", "merchant is required")
	}
	if title == "" {
		return nil, shared.NewValidationError("product", "title", "title is required")
	}
	if price.Amount() <= 0 {
		return nil, shared.NewValidationError("product", "price", "price must be positive")
	}
	if stock < 0 {
		return nil, shared.NewValidationError("product", "stock", "stock cannot be negative")
	}
	p := &Product{
		id:         id,
		merchantID: merchantID,
		title:      title,
		price:      price,
		stock:      stock,
		createdAt:  now,
		updatedAt:  now,
		isNew:      true,
	}
	p.events = append(p.events, shared.NewEvent("product.created", id, now, map[string]any{
		"merchant_id": merchantID,
		"stock":       stock,
	}))
	return p, nil
}

func (p *Product) ID() string           { return p.id }
func (p *Product) MerchantID() string   { return p.merchantID }
func (p *Product) Title() string        { return p.title }
func (p *Product) Price() shared.Money  { return p.price }
func (p *Product) Stock() int           { return p.stock }
func (p *Product) Version() int         { return p.version }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }
func (p *Product) IsNew() bool          { return p.isNew }

// PullEvents 获取并清空领域事件
func (p *Product) PullEvents() []shared.DomainEvent {
	events := p.events
	p.events = nil
	return events
}

// ClearDirtyTracking 保存成功后由仓储调用
func (p *Product) ClearDirtyTracking() {
	p.isNew = false
}

var _ shared.AggregateRoot = (*Product)(nil)

// ProductDTO 仓储层重建用
type ProductDTO struct {
	ID         string
	MerchantID string
	Title      string
	Price      shared.Money
	Stock      int
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RebuildProduct 从 DTO 重建
func RebuildProduct(dto ProductDTO) *Product {
	return &Product{
		id:         dto.ID,
		merchantID: dto.MerchantID,
		title:      dto.Title,
		price:      dto.Price,
		stock:      dto.Stock,
		version:    dto.Version,
		createdAt:  dto.CreatedAt,
		updatedAt:  dto.UpdatedAt,
	}
}

// Snapshot 导出当前状态
func (p *Product) Snapshot() ProductDTO {
	return ProductDTO{
		ID:         p.id,
		MerchantID: p.merchantID,
		Title:      p.title,
		Price:      p.price,
		Stock:      p.stock,
		Version:    p.version,
		CreatedAt:  p.createdAt,
		UpdatedAt:  p.updatedAt,
	}
}
