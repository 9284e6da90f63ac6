package catalog

import "time"

// RegisterProductRequest 商家上架商品入参
type RegisterProductRequest struct {
	Title    string `json:"title" binding:"required"`
	Price    int64  `json:"price" binding:"required,min=1"`
	Currency string `json:"currency"`
	Stock    int    `json:"stock" binding:"min=0"`
}

// SetCartItemRequest 设置购物车数量，0 表示移除
type SetCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// MoneyResponse 金额返回模型
type MoneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ProductResponse 商品
type ProductResponse struct {
	ID         string        `json:"id"`
	MerchantID string        `json:"merchant_id"`
	Title      string        `json:"title"`
	Price      MoneyResponse `json:"price"`
	Stock      int           `json:"stock"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// CartLineResponse 购物车行，附带当前商品快照
type CartLineResponse struct {
	ProductID  string         `json:"product_id"`
	Quantity   int            `json:"quantity"`
	Title      string         `json:"title,omitempty"`
	MerchantID string         `json:"merchant_id,omitempty"`
	UnitPrice  *MoneyResponse `json:"unit_price,omitempty"`
	Available  bool           `json:"available"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CartResponse 购物车
type CartResponse struct {
	CustomerID string             `json:"customer_id"`
	Lines      []CartLineResponse `json:"lines"`
}
