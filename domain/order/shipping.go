package order

import (
	"strings"
	"time"
)

// ShippingAddress 收货地址快照（值对象），下单时复制，之后与地址簿解耦
type ShippingAddress struct {
	RecipientName string
	Phone         string
	Province      string
	City          string
	District      string
	DetailAddress string
}

// Validate 六个字段都必须非空
func (a ShippingAddress) Validate() error {
	fields := []struct{ name, value string }{
		{"recipient_name", a.RecipientName},
		{"phone", a.Phone},
		{"province", a.Province},
		{"city", a.City},
		{"district", a.District},
		{"detail_address", a.DetailAddress},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewInvalidAddressError(f.name)
		}
	}
	return nil
}

// FullAddress 省市区 + 详细地址
func (a ShippingAddress) FullAddress() string {
	return a.Province + a.City + a.District + a.DetailAddress
}

// Trimmed 去除首尾空白
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		RecipientName: strings.TrimSpace(a.RecipientName),
		Phone:         strings.TrimSpace(a.Phone),
		Province:      strings.TrimSpace(a.Province),
		City:          strings.TrimSpace(a.City),
		District:      strings.TrimSpace(a.District),
		DetailAddress: strings.TrimSpace(a.DetailAddress),
	}
}

// ShipmentEvent 物流轨迹
type ShipmentEvent struct {
	Time     time.Time
	Location string
	Message  string
}

// Shipment 发货记录：每次"标记发货"整体覆盖，轨迹全部替换
type Shipment struct {
	id          string
	carrierName string
	trackingNo  string
	status      ShippingStatus
	shippedAt   *time.Time
	deliveredAt *time.Time
	events      []ShipmentEvent
}

func (s *Shipment) ID() string              { return s.id }
func (s *Shipment) CarrierName() string     { return s.carrierName }
func (s *Shipment) TrackingNo() string      { return s.trackingNo }
func (s *Shipment) Status() ShippingStatus  { return s.status }
func (s *Shipment) ShippedAt() *time.Time   { return s.shippedAt }
func (s *Shipment) DeliveredAt() *time.Time { return s.deliveredAt }

// Events 返回轨迹副本
func (s *Shipment) Events() []ShipmentEvent {
	out := make([]ShipmentEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ShipmentDTO 发货记录重建 DTO
type ShipmentDTO struct {
	ID          string
	CarrierName string
	TrackingNo  string
	Status      ShippingStatus
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	Events      []ShipmentEvent
}

func rebuildShipment(dto *ShipmentDTO) *Shipment {
	if dto == nil {
		return nil
	}
	events := make([]ShipmentEvent, len(dto.Events))
	copy(events, dto.Events)
	return &Shipment{
		id:          dto.ID,
		carrierName: dto.CarrierName,
		trackingNo:  dto.TrackingNo,
		status:      dto.Status,
		shippedAt:   dto.ShippedAt,
		deliveredAt: dto.DeliveredAt,
		events:      events,
	}
}

func (s *Shipment) snapshot() *ShipmentDTO {
	if s == nil {
		return nil
	}
	return &ShipmentDTO{
		ID:          s.id,
		CarrierName: s.carrierName,
		TrackingNo:  s.trackingNo,
		Status:      s.status,
		ShippedAt:   s.shippedAt,
		DeliveredAt: s.deliveredAt,
		Events:      s.Events(),
	}
}
