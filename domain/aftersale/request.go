// Package aftersale 售后子域：按订单项发起的退货、换货、仅退款申请。
//
// 状态机：
//
//	REQUESTED -> MERCHANT_APPROVED | MERCHANT_REJECTED | CLOSED(仅退款直接通过)
//	REQUESTED / MERCHANT_APPROVED / MERCHANT_REJECTED -> ADMIN_APPROVED | ADMIN_REJECTED | CLOSED(管理员通过仅退款)
//	MERCHANT_APPROVED / ADMIN_APPROVED -> IN_PROGRESS (顾客寄回，仅退货)
//	IN_PROGRESS -> CLOSED (商家收货)
//
// 未结束集合为 REQUESTED, MERCHANT_APPROVED, IN_PROGRESS, ADMIN_APPROVED。
package aftersale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// Type 售后类型
type Type string

const (
	TypeReturn     Type = "RETURN"
	TypeExchange   Type = "EXCHANGE"
	TypeRefundOnly Type = "REFUND_ONLY"
)

// ParseType 解析售后类型
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeReturn, TypeExchange, TypeRefundOnly:
		return t, true
	}
	return "", false
}

// PendingItemStatus 发起售后后订单项进入的中间状态
func (t Type) PendingItemStatus() order.ItemStatus {
	switch t {
	case TypeRefundOnly:
		return order.ItemStatusRefunding
	case TypeReturn:
		return order.ItemStatusReturning
	default:
		return order.ItemStatusExchanging
	}
}

// Status 售后申请状态
type Status string

const (
	StatusRequested        Status = "REQUESTED"
	StatusMerchantApproved Status = "MERCHANT_APPROVED"
	StatusMerchantRejected Status = "MERCHANT_REJECTED"
	StatusAdminApproved    Status = "ADMIN_APPROVED"
	StatusAdminRejected    Status = "ADMIN_REJECTED"
	StatusInProgress       Status = "IN_PROGRESS"
	StatusClosed           Status = "CLOSED"
)

// OpenStatuses 未结束的状态集合
var OpenStatuses = []Status{StatusRequested, StatusMerchantApproved, StatusInProgress, StatusAdminApproved}

// IsOpen 是否处于未结束状态
func (s Status) IsOpen() bool {
	for _, open := range OpenStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// Action 审核动作
type Action string

const (
	ActionApprove      Action = "APPROVE"
	ActionReject       Action = "REJECT"
	ActionAdminApprove Action = "ADMIN_APPROVE"
	ActionAdminReject  Action = "ADMIN_REJECT"
)

// ParseAction 解析审核动作
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject, ActionAdminApprove, ActionAdminReject:
		return a, true
	}
	return "", false
}

// IsAdmin 管理员动作
func (a Action) IsAdmin() bool {
	return a == ActionAdminApprove || a == ActionAdminReject
}

const (
	DefaultApproveNote = "Approved by merchant"
	DefaultRejectNote  = "Rejected by merchant"
)

const (
	EventRequested      = "after_sale.requested"
	EventDecided        = "after_sale.decided"
	EventReturnShipped  = "after_sale.return_shipped"
	EventReturnReceived = "after_sale.return_received"
)

var (
	ErrRequestNotFound        = fmt.Errorf("after-sale request not found: %w", shared.ErrNotFound)
	ErrInvalidState           = fmt.Errorf("invalid after-sale state: %w", shared.ErrStateConflict)
	ErrOpenRequestExists      = fmt.Errorf("an open after-sale request already exists for this item: %w", shared.ErrStateConflict)
	ErrExchangeUnsupported    = fmt.Errorf("exchange completion is not supported: %w", shared.ErrUnsupported)
	ErrConcurrentModification = fmt.Errorf("after-sale request was modified by another transaction: %w", shared.ErrConflict)
)

// ReturnShipment 退货寄回物流
type ReturnShipment struct {
	CarrierName string
	TrackingNo  string
	Status      order.ShippingStatus
	ShippedAt   *time.Time
	ReceivedAt  *time.Time
}

// Request 售后申请聚合根
type Request struct {
	id              string
	merchantOrderID string
	orderItemID     string
	userID          string
	merchantID      string
	typ             Type
	status          Status
	reason          string
	resolutionNote  string
	returnShipment  ReturnShipment
	version         int
	createdAt       time.Time
	updatedAt       time.Time

	events []shared.DomainEvent
	isNew  bool
}

var _ shared.AggregateRoot = (*Request)(nil)

// NewRequest 顾客发起售后
func NewRequest(id, merchantOrderID, orderItemID, userID, merchantID string, typ Type, reason string, now time.Time) *Request {
	r := &Request{
		id:              id,
		merchantOrderID: merchantOrderID,
		orderItemID:     orderItemID,
		userID:          userID,
		merchantID:      merchantID,
		typ:             typ,
		status:          StatusRequested,
		reason:          strings.TrimSpace(reason),
		returnShipment:  ReturnShipment{Status: order.ShippingNotShipped},
		createdAt:       now,
		updatedAt:       now,
		isNew:           true,
	}
	r.record(EventRequested, now, nil)
	return r
}

// Decision 审核结果：订单项应进入的状态，以及是否已经关闭
type Decision struct {
	StatusBefore Status
	StatusAfter  Status
	ItemStatus   order.ItemStatus
}

// Decide 商家或管理员审核
//   - 商家动作只能作用于 REQUESTED
//   - 管理员动作可作用于 REQUESTED、MERCHANT_APPROVED、MERCHANT_REJECTED（申诉升级）
//   - 通过仅退款申请直接关闭并把订单项置为 REFUNDED
//   - 驳回把订单项恢复为 NORMAL
func (r *Request) Decide(action Action, note string, now time.Time) (Decision, error) {
	switch {
	case action.IsAdmin():
		if r.status != StatusRequested && r.status != StatusMerchantApproved && r.status != StatusMerchantRejected {
			return Decision{}, r.invalidState("REQUESTED, MERCHANT_APPROVED or MERCHANT_REJECTED")
		}
	default:
		if r.status != StatusRequested {
			return Decision{}, r.invalidState("REQUESTED")
		}
	}

	note = strings.TrimSpace(note)
	d := Decision{StatusBefore: r.status}
	switch action {
	case ActionApprove, ActionAdminApprove:
		if note == "" && action == ActionApprove {
			note = DefaultApproveNote
		}
		switch {
		case r.typ == TypeRefundOnly:
			d.StatusAfter = StatusClosed
			d.ItemStatus = order.ItemStatusRefunded
		case action == ActionApprove:
			d.StatusAfter = StatusMerchantApproved
			d.ItemStatus = r.typ.PendingItemStatus()
		default:
			d.StatusAfter = StatusAdminApproved
			d.ItemStatus = r.typ.PendingItemStatus()
		}
	case ActionReject, ActionAdminReject:
		if note == "" && action == ActionReject {
			note = DefaultRejectNote
		}
		d.StatusAfter = StatusMerchantRejected
		if action == ActionAdminReject {
			d.StatusAfter = StatusAdminRejected
		}
		d.ItemStatus = order.ItemStatusNormal
	default:
		return Decision{}, shared.NewValidationError("after_sale", "action", "unknown action "+string(action))
	}

	r.status = d.StatusAfter
	r.resolutionNote = note
	r.updatedAt = now
	r.record(EventDecided, now, map[string]any{"action": string(action), "from": string(d.StatusBefore)})
	return d, nil
}

// ShipReturn 顾客寄回退货商品：仅 RETURN 类型，且已被商家或管理员批准
func (r *Request) ShipReturn(carrierName, trackingNo string, now time.Time) error {
	if r.typ != TypeReturn {
		return shared.NewDomainError(ErrInvalidState, "after_sale", "only RETURN requests ship goods back")
	}
	if r.status != StatusMerchantApproved && r.status != StatusAdminApproved {
		return r.invalidState("MERCHANT_APPROVED or ADMIN_APPROVED")
	}
	carrierName = strings.TrimSpace(carrierName)
	trackingNo = strings.TrimSpace(trackingNo)
	if carrierName == "" || trackingNo == "" {
		return shared.NewValidationError("after_sale", "tracking_no", "carrier name and tracking number are required")
	}
	at := now
	r.returnShipment = ReturnShipment{
		CarrierName: carrierName,
		TrackingNo:  trackingNo,
		Status:      order.ShippingInTransit,
		ShippedAt:   &at,
	}
	r.status = StatusInProgress
	r.updatedAt = now
	r.record(EventReturnShipped, now, map[string]any{"carrier_name": carrierName, "tracking_no": trackingNo})
	return nil
}

// ReceiveReturn 商家收到退货：要求 IN_PROGRESS 且物流 IN_TRANSIT，完成后关闭
func (r *Request) ReceiveReturn(now time.Time) error {
	if r.typ != TypeReturn {
		return shared.NewDomainError(ErrInvalidState, "after_sale", "only RETURN requests can be received")
	}
	if r.status != StatusInProgress {
		return r.invalidState(string(StatusInProgress))
	}
	if r.returnShipment.Status != order.ShippingInTransit {
		return shared.NewDomainError(ErrInvalidState, "after_sale", "return shipment is "+string(r.returnShipment.Status)+", expected IN_TRANSIT")
	}
	at := now
	r.returnShipment.Status = order.ShippingDelivered
	r.returnShipment.ReceivedAt = &at
	r.status = StatusClosed
	r.updatedAt = now
	r.record(EventReturnReceived, now, nil)
	return nil
}

// CompleteExchange 换货完成流程未定义，明确拒绝
func (r *Request) CompleteExchange() error {
	return shared.NewDomainError(ErrExchangeUnsupported, "after_sale", "exchange completion is not supported for request "+r.id)
}

func (r *Request) invalidState(expected string) error {
	return shared.NewDomainError(ErrInvalidState, "after_sale",
		"after-sale request "+r.id+" is "+string(r.status)+", expected "+expected)
}

func (r *Request) record(name string, now time.Time, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["merchant_order_id"] = r.merchantOrderID
	payload["order_item_id"] = r.orderItemID
	payload["type"] = string(r.typ)
	payload["status"] = string(r.status)
	r.events = append(r.events, shared.NewEvent(name, r.id, now, payload))
}

func (r *Request) ID() string                     { return r.id }
func (r *Request) MerchantOrderID() string        { return r.merchantOrderID }
func (r *Request) OrderItemID() string            { return r.orderItemID }
func (r *Request) UserID() string                 { return r.userID }
func (r *Request) MerchantID() string             { return r.merchantID }
func (r *Request) Type() Type                     { return r.typ }
func (r *Request) Status() Status                 { return r.status }
func (r *Request) Reason() string                 { return r.reason }
func (r *Request) ResolutionNote() string         { return r.resolutionNote }
func (r *Request) ReturnShipment() ReturnShipment { return r.returnShipment }
func (r *Request) Version() int                   { return r.version }
func (r *Request) CreatedAt() time.Time           { return r.createdAt }
func (r *Request) UpdatedAt() time.Time           { return r.updatedAt }
func (r *Request) IsNew() bool                    { return r.isNew }
func (r *Request) IsOpen() bool                   { return r.status.IsOpen() }

func (r *Request) IncrementVersionForSave() { r.version++ }
func (r *Request) ClearDirtyTracking()      { r.isNew = false }

func (r *Request) PullEvents() []shared.DomainEvent {
	events := r.events
	r.events = nil
	return events
}

// ReconstructionDTO 仓储层重建用
type ReconstructionDTO struct {
	ID              string
	MerchantOrderID string
	OrderItemID     string
	UserID          string
	MerchantID      string
	Type            Type
	Status          Status
	Reason          string
	ResolutionNote  string
	ReturnShipment  ReturnShipment
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func RebuildFromDTO(dto ReconstructionDTO) *Request {
	return &Request{
		id:              dto.ID,
		merchantOrderID: dto.MerchantOrderID,
		orderItemID:     dto.OrderItemID,
		userID:          dto.UserID,
		merchantID:      dto.MerchantID,
		typ:             dto.Type,
		status:          dto.Status,
		reason:          dto.Reason,
		resolutionNote:  dto.ResolutionNote,
		returnShipment:  dto.ReturnShipment,
		version:         dto.Version,
		createdAt:       dto.CreatedAt,
		updatedAt:       dto.UpdatedAt,
	}
}

func (r *Request) Snapshot() ReconstructionDTO {
	return ReconstructionDTO{
		ID:              r.id,
		MerchantOrderID: r.merchantOrderID,
		OrderItemID:     r.orderItemID,
		UserID:          r.userID,
		MerchantID:      r.merchantID,
		Type:            r.typ,
		Status:          r.status,
		Reason:          r.reason,
		ResolutionNote:  r.resolutionNote,
		ReturnShipment:  r.returnShipment,
		Version:         r.version,
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
	}
}

// Repository 售后申请仓储
type Repository interface {
	NextIdentity() string
	Save(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	FindByOrderID(ctx context.Context, merchantOrderID string) ([]*Request, error)

	// HasOpenForItem 订单项是否存在未结束申请
	HasOpenForItem(ctx context.Context, orderItemID string) (bool, error)

	// HasOpenForOrder 订单是否存在未结束申请
	HasOpenForOrder(ctx context.Context, merchantOrderID string) (bool, error)
}
