package po

import (
	"time"

	"marketplace/domain/inventory"
	"marketplace/domain/shared"
)

// ProductPO 商品库存
type ProductPO struct {
	ID         string    `gorm:"primaryKey;size:64"`
	MerchantID string    `gorm:"size:64;index;not null"`
	Title      string    `gorm:"size:255;not null"`
	Price      int64     `gorm:"not null"`
	Currency   string    `gorm:"size:3;not null"`
	Stock      int       `gorm:"not null"`
	Version    int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (ProductPO) TableName() string {
	return "products"
}

func FromProductDomain(p *inventory.Product) *ProductPO {
	s := p.Snapshot()
	return &ProductPO{
		ID:         s.ID,
		MerchantID: s.MerchantID,
		Title:      s.Title,
		Price:      s.Price.Amount(),
		Currency:   s.Price.Currency(),
		Stock:      s.Stock,
		Version:    s.Version,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func (p *ProductPO) ToDomain() *inventory.Product {
	return inventory.RebuildProduct(inventory.ProductDTO{
		ID:         p.ID,
		MerchantID: p.MerchantID,
		Title:      p.Title,
		Price:      *shared.NewMoney(p.Price, p.Currency),
		Stock:      p.Stock,
		Version:    p.Version,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	})
}

// StockReservationPO 库存台账行：一个订单项一行
type StockReservationPO struct {
	ID              string    `gorm:"primaryKey;size:64"`
	MerchantOrderID string    `gorm:"size:64;index;not null"`
	OrderItemID     string    `gorm:"size:64;uniqueIndex;not null"`
	ProductID       string    `gorm:"size:64;index;not null"`
	Quantity        int       `gorm:"not null"`
	Status          string    `gorm:"size:16;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (StockReservationPO) TableName() string {
	return "stock_reservations"
}

func FromReservation(r inventory.Reservation) StockReservationPO {
	return StockReservationPO{
		ID:              r.ID,
		MerchantOrderID: r.MerchantOrderID,
		OrderItemID:     r.OrderItemID,
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (p StockReservationPO) ToDomain() inventory.Reservation {
	return inventory.Reservation{
		ID:              p.ID,
		MerchantOrderID: p.MerchantOrderID,
		OrderItemID:     p.OrderItemID,
		ProductID:       p.ProductID,
		Quantity:        p.Quantity,
		Status:          inventory.ReservationStatus(p.Status),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// CartLinePO 购物车行
type CartLinePO struct {
	CustomerID string    `gorm:"primaryKey;size:64"`
	ProductID  string    `gorm:"primaryKey;size:64"`
	Quantity   int       `gorm:"not null"`
	AddedAt    time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (CartLinePO) TableName() string {
	return "cart_lines"
}
