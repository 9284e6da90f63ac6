package po

import (
	"encoding/json"
	"time"

	"marketplace/domain/order"
	"marketplace/domain/payment"
	"marketplace/domain/shared"
)

// OrderGroupPO 订单组持久化对象
type OrderGroupPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	CustomerID  string    `gorm:"size:64;index;not null"`
	TotalAmount int64     `gorm:"not null"`
	Currency    string    `gorm:"size:3;not null"`
	Status      string    `gorm:"size:20;not null"`
	Version     int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (OrderGroupPO) TableName() string {
	return "order_groups"
}

func FromGroupDomain(g *order.OrderGroup) *OrderGroupPO {
	s := g.Snapshot()
	return &OrderGroupPO{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		TotalAmount: s.TotalAmount.Amount(),
		Currency:    s.TotalAmount.Currency(),
		Status:      string(s.Status),
		Version:     s.Version,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (p *OrderGroupPO) ToDomain() *order.OrderGroup {
	return order.RebuildGroup(order.GroupDTO{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		TotalAmount: *shared.NewMoney(p.TotalAmount, p.Currency),
		Status:      order.GroupStatus(p.Status),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	})
}

// AddressPO 收货地址快照，内嵌在商户订单表中
type AddressPO struct {
	RecipientName string `gorm:"size:100;not null"`
	Phone         string `gorm:"size:32;not null"`
	Province      string `gorm:"size:64;not null"`
	City          string `gorm:"size:64;not null"`
	District      string `gorm:"size:64;not null"`
	DetailAddress string `gorm:"size:255;not null"`
}

// MerchantOrderPO 商户订单持久化对象
// 注意：只做数据库映射，禁止定义 GORM 关联；订单项、支付流水、发货记录由仓储手动读写
type MerchantOrderPO struct {
	ID              string    `gorm:"primaryKey;size:64"`
	GroupID         string    `gorm:"size:64;index;not null"`
	CustomerID      string    `gorm:"size:64;index;not null"`
	MerchantID      string    `gorm:"size:64;index;not null"`
	Status          string    `gorm:"size:32;index:idx_status_deadline;not null"`
	SubtotalAmount  int64     `gorm:"not null"`
	Currency        string    `gorm:"size:3;not null"`
	CancelDeadline  time.Time `gorm:"index:idx_status_deadline;not null"`
	AutoCancelledAt *time.Time
	Address         AddressPO `gorm:"embedded;embeddedPrefix:ship_"`
	Removed         bool      `gorm:"not null;default:false"`
	RemovedReason   string    `gorm:"size:255"`
	RemovedAt       *time.Time
	RemovedBy       string    `gorm:"size:64"`
	Version         int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false;index;not null"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (MerchantOrderPO) TableName() string {
	return "merchant_orders"
}

// OrderItemPO 订单项
type OrderItemPO struct {
	ID              string `gorm:"primaryKey;size:64"`
	MerchantOrderID string `gorm:"size:64;index;not null"`
	Position        int    `gorm:"not null"`
	ProductID       string `gorm:"size:64;not null"`
	ProductTitle    string `gorm:"size:255;not null"`
	UnitPrice       int64  `gorm:"not null"`
	Currency        string `gorm:"size:3;not null"`
	Quantity        int    `gorm:"not null"`
	Status          string `gorm:"size:32;not null"`
}

func (OrderItemPO) TableName() string {
	return "merchant_order_items"
}

// PaymentTransactionPO 支付流水；每个订单只保留当前一条
type PaymentTransactionPO struct {
	ID              string    `gorm:"primaryKey;size:64"`
	MerchantOrderID string    `gorm:"size:64;uniqueIndex;not null"`
	Method          string    `gorm:"size:16;not null"`
	Amount          int64     `gorm:"not null"`
	Currency        string    `gorm:"size:3;not null"`
	Status          string    `gorm:"size:16;not null"`
	ProviderTradeNo string    `gorm:"size:64"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (PaymentTransactionPO) TableName() string {
	return "payment_transactions"
}

// ShipmentPO 发货记录，轨迹以 JSON 存储
type ShipmentPO struct {
	ID              string `gorm:"primaryKey;size:64"`
	MerchantOrderID string `gorm:"size:64;uniqueIndex;not null"`
	CarrierName     string `gorm:"size:64;not null"`
	TrackingNo      string `gorm:"size:64;not null"`
	Status          string `gorm:"size:16;not null"`
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Events          string `gorm:"type:json"`
}

func (ShipmentPO) TableName() string {
	return "shipments"
}

type shipmentEventJSON struct {
	Time     time.Time `json:"time"`
	Location string    `json:"location"`
	Message  string    `json:"message"`
}

// OrderRows 一个商户订单聚合对应的全部行
type OrderRows struct {
	Order    *MerchantOrderPO
	Items    []OrderItemPO
	Payment  *PaymentTransactionPO
	Shipment *ShipmentPO
}

// FromOrderDomain 领域模型转持久化对象
func FromOrderDomain(o *order.MerchantOrder) (OrderRows, error) {
	s := o.Snapshot()
	rows := OrderRows{
		Order: &MerchantOrderPO{
			ID:              s.ID,
			GroupID:         s.GroupID,
			CustomerID:      s.CustomerID,
			MerchantID:      s.MerchantID,
			Status:          string(s.Status),
			SubtotalAmount:  s.Subtotal.Amount(),
			Currency:        s.Subtotal.Currency(),
			CancelDeadline:  s.CancelDeadline,
			AutoCancelledAt: s.AutoCancelledAt,
			Address: AddressPO{
				RecipientName: s.ShippingAddress.RecipientName,
				Phone:         s.ShippingAddress.Phone,
				Province:      s.ShippingAddress.Province,
				City:          s.ShippingAddress.City,
				District:      s.ShippingAddress.District,
				DetailAddress: s.ShippingAddress.DetailAddress,
			},
			Removed:       s.Deleted,
			RemovedReason: s.DeletedReason,
			RemovedAt:     s.DeletedAt,
			RemovedBy:     s.DeletedBy,
			Version:       s.Version,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		},
		Items: make([]OrderItemPO, len(s.Items)),
	}

	for i, it := range s.Items {
		rows.Items[i] = OrderItemPO{
			ID:              it.ID,
			MerchantOrderID: s.ID,
			Position:        i,
			ProductID:       it.ProductID,
			ProductTitle:    it.ProductTitle,
			UnitPrice:       it.UnitPrice.Amount(),
			Currency:        it.UnitPrice.Currency(),
			Quantity:        it.Quantity,
			Status:          string(it.Status),
		}
	}

	if tx := s.Payment; tx != nil {
		rows.Payment = &PaymentTransactionPO{
			ID:              tx.ID,
			MerchantOrderID: s.ID,
			Method:          string(tx.Method),
			Amount:          tx.Amount.Amount(),
			Currency:        tx.Amount.Currency(),
			Status:          string(tx.Status),
			ProviderTradeNo: tx.ProviderTradeNo,
			CreatedAt:       tx.CreatedAt,
			UpdatedAt:       tx.UpdatedAt,
		}
	}

	if sh := s.Shipment; sh != nil {
		events := make([]shipmentEventJSON, len(sh.Events))
		for i, e := range sh.Events {
			events[i] = shipmentEventJSON{Time: e.Time, Location: e.Location, Message: e.Message}
		}
		data, err := json.Marshal(events)
		if err != nil {
			return OrderRows{}, err
		}
		rows.Shipment = &ShipmentPO{
			ID:              sh.ID,
			MerchantOrderID: s.ID,
			CarrierName:     sh.CarrierName,
			TrackingNo:      sh.TrackingNo,
			Status:          string(sh.Status),
			ShippedAt:       sh.ShippedAt,
			DeliveredAt:     sh.DeliveredAt,
			Events:          string(data),
		}
	}
	return rows, nil
}

// ToDomain 持久化对象转领域模型
func (r OrderRows) ToDomain() (*order.MerchantOrder, error) {
	p := r.Order
	dto := order.ReconstructionDTO{
		ID:              p.ID,
		GroupID:         p.GroupID,
		CustomerID:      p.CustomerID,
		MerchantID:      p.MerchantID,
		Status:          order.Status(p.Status),
		Subtotal:        *shared.NewMoney(p.SubtotalAmount, p.Currency),
		CancelDeadline:  p.CancelDeadline,
		AutoCancelledAt: p.AutoCancelledAt,
		ShippingAddress: order.ShippingAddress{
			RecipientName: p.Address.RecipientName,
			Phone:         p.Address.Phone,
			Province:      p.Address.Province,
			City:          p.Address.City,
			District:      p.Address.District,
			DetailAddress: p.Address.DetailAddress,
		},
		Deleted:       p.Removed,
		DeletedReason: p.RemovedReason,
		DeletedAt:     p.RemovedAt,
		DeletedBy:     p.RemovedBy,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Items:         make([]order.ItemDTO, len(r.Items)),
	}

	for i, it := range r.Items {
		dto.Items[i] = order.ItemDTO{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductTitle: it.ProductTitle,
			UnitPrice:    *shared.NewMoney(it.UnitPrice, it.Currency),
			Quantity:     it.Quantity,
			Status:       order.ItemStatus(it.Status),
		}
	}

	if tx := r.Payment; tx != nil {
		dto.Payment = &payment.TransactionDTO{
			ID:              tx.ID,
			MerchantOrderID: tx.MerchantOrderID,
			Method:          payment.Method(tx.Method),
			Amount:          *shared.NewMoney(tx.Amount, tx.Currency),
			Status:          payment.Status(tx.Status),
			ProviderTradeNo: tx.ProviderTradeNo,
			CreatedAt:       tx.CreatedAt,
			UpdatedAt:       tx.UpdatedAt,
		}
	}

	if sh := r.Shipment; sh != nil {
		var events []shipmentEventJSON
		if sh.Events != "" {
			if err := json.Unmarshal([]byte(sh.Events), &events); err != nil {
				return nil, err
			}
		}
		dto.Shipment = &order.ShipmentDTO{
			ID:          sh.ID,
			CarrierName: sh.CarrierName,
			TrackingNo:  sh.TrackingNo,
			Status:      order.ShippingStatus(sh.Status),
			ShippedAt:   sh.ShippedAt,
			DeliveredAt: sh.DeliveredAt,
			Events:      make([]order.ShipmentEvent, len(events)),
		}
		for i, e := range events {
			dto.Shipment.Events[i] = order.ShipmentEvent{Time: e.Time, Location: e.Location, Message: e.Message}
		}
	}

	return order.RebuildFromDTO(dto), nil
}
