package po

import (
	"time"

	"marketplace/domain/aftersale"
	"marketplace/domain/cancellation"
	"marketplace/domain/order"
)

// CancelRequestPO 取消申请
type CancelRequestPO struct {
	ID              string `gorm:"primaryKey;size:64"`
	MerchantOrderID string `gorm:"size:64;index:idx_cancel_order_user;not null"`
	MerchantID      string `gorm:"size:64;index;not null"`
	UserID          string `gorm:"size:64;index:idx_cancel_order_user;not null"`
	Reason          string `gorm:"size:500"`
	Status          string `gorm:"size:16;index;not null"`
	MerchantNote    string `gorm:"size:500"`
	DecidedBy       string `gorm:"size:64"`
	DecidedAt       *time.Time
	Version         int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false;index;not null"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (CancelRequestPO) TableName() string {
	return "order_cancel_requests"
}

func FromCancelRequestDomain(r *cancellation.Request) *CancelRequestPO {
	s := r.Snapshot()
	return &CancelRequestPO{
		ID:              s.ID,
		MerchantOrderID: s.MerchantOrderID,
		MerchantID:      s.MerchantID,
		UserID:          s.UserID,
		Reason:          s.Reason,
		Status:          string(s.Status),
		MerchantNote:    s.MerchantNote,
		DecidedBy:       s.DecidedBy,
		DecidedAt:       s.DecidedAt,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (p *CancelRequestPO) ToDomain() *cancellation.Request {
	return cancellation.RebuildFromDTO(cancellation.ReconstructionDTO{
		ID:              p.ID,
		MerchantOrderID: p.MerchantOrderID,
		MerchantID:      p.MerchantID,
		UserID:          p.UserID,
		Reason:          p.Reason,
		Status:          cancellation.Status(p.Status),
		MerchantNote:    p.MerchantNote,
		DecidedBy:       p.DecidedBy,
		DecidedAt:       p.DecidedAt,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	})
}

// AfterSaleRequestPO 售后申请，退货物流字段平铺
type AfterSaleRequestPO struct {
	ID               string `gorm:"primaryKey;size:64"`
	MerchantOrderID  string `gorm:"size:64;index;not null"`
	OrderItemID      string `gorm:"size:64;index;not null"`
	UserID           string `gorm:"size:64;index;not null"`
	MerchantID       string `gorm:"size:64;index;not null"`
	Type             string `gorm:"size:16;not null"`
	Status           string `gorm:"size:32;not null"`
	Reason           string `gorm:"size:500"`
	ResolutionNote   string `gorm:"size:500"`
	ReturnCarrier    string `gorm:"size:64"`
	ReturnTrackingNo string `gorm:"size:64"`
	ReturnStatus     string `gorm:"size:16;not null"`
	ReturnShippedAt  *time.Time
	ReturnReceivedAt *time.Time
	Version          int       `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (AfterSaleRequestPO) TableName() string {
	return "after_sale_requests"
}

func FromAfterSaleDomain(r *aftersale.Request) *AfterSaleRequestPO {
	s := r.Snapshot()
	return &AfterSaleRequestPO{
		ID:               s.ID,
		MerchantOrderID:  s.MerchantOrderID,
		OrderItemID:      s.OrderItemID,
		UserID:           s.UserID,
		MerchantID:       s.MerchantID,
		Type:             string(s.Type),
		Status:           string(s.Status),
		Reason:           s.Reason,
		ResolutionNote:   s.ResolutionNote,
		ReturnCarrier:    s.ReturnShipment.CarrierName,
		ReturnTrackingNo: s.ReturnShipment.TrackingNo,
		ReturnStatus:     string(s.ReturnShipment.Status),
		ReturnShippedAt:  s.ReturnShipment.ShippedAt,
		ReturnReceivedAt: s.ReturnShipment.ReceivedAt,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (p *AfterSaleRequestPO) ToDomain() *aftersale.Request {
	return aftersale.RebuildFromDTO(aftersale.ReconstructionDTO{
		ID:              p.ID,
		MerchantOrderID: p.MerchantOrderID,
		OrderItemID:     p.OrderItemID,
		UserID:          p.UserID,
		MerchantID:      p.MerchantID,
		Type:            aftersale.Type(p.Type),
		Status:          aftersale.Status(p.Status),
		Reason:          p.Reason,
		ResolutionNote:  p.ResolutionNote,
		ReturnShipment: aftersale.ReturnShipment{
			CarrierName: p.ReturnCarrier,
			TrackingNo:  p.ReturnTrackingNo,
			Status:      order.ShippingStatus(p.ReturnStatus),
			ShippedAt:   p.ReturnShippedAt,
			ReceivedAt:  p.ReturnReceivedAt,
		},
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}
