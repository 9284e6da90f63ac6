package order

import "marketplace/domain/shared"

// OrderItem 订单项 - 聚合内实体
// 单价在下单时冻结；状态只由售后流程修改
type OrderItem struct {
	id           string
	productID    string
	productTitle string
	unitPrice    shared.Money
	quantity     int
	status       ItemStatus
}

func (i *OrderItem) ID() string              { return i.id }
func (i *OrderItem) ProductID() string       { return i.productID }
func (i *OrderItem) ProductTitle() string    { return i.productTitle }
func (i *OrderItem) UnitPrice() shared.Money { return i.unitPrice }
func (i *OrderItem) Quantity() int           { return i.quantity }
func (i *OrderItem) Status() ItemStatus      { return i.status }

// Subtotal 单价 × 数量
func (i *OrderItem) Subtotal() shared.Money {
	m, err := i.unitPrice.Multiply(i.quantity)
	if err != nil {
		return shared.Zero(i.unitPrice.Currency())
	}
	return *m
}

// ItemDTO 订单项重建 DTO
type ItemDTO struct {
	ID           string
	ProductID    string
	ProductTitle string
	UnitPrice    shared.Money
	Quantity     int
	Status       ItemStatus
}

func rebuildItem(dto ItemDTO) *OrderItem {
	return &OrderItem{
		id:           dto.ID,
		productID:    dto.ProductID,
		productTitle: dto.ProductTitle,
		unitPrice:    dto.UnitPrice,
		quantity:     dto.Quantity,
		status:       dto.Status,
	}
}

func (i *OrderItem) snapshot() ItemDTO {
	return ItemDTO{
		ID:           i.id,
		ProductID:    i.productID,
		ProductTitle: i.productTitle,
		UnitPrice:    i.unitPrice,
		Quantity:     i.quantity,
		Status:       i.status,
	}
}
