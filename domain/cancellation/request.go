// Package cancellation 取消申请子域
//
// 已支付订单超出直接取消窗口后，顾客只能提交取消申请，由商家（或管理员）审批。
// 同一订单同一顾客最多存在一个 PENDING 申请。
package cancellation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace/domain/shared"
)

// Status 取消申请状态
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus 解析申请状态，空字符串按 PENDING 处理
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case "":
		return StatusPending, true
	case StatusPending, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

const (
	EventRequested = "cancel_request.created"
	EventApproved  = "cancel_request.approved"
	EventRejected  = "cancel_request.rejected"
)

var (
	ErrRequestNotFound        = fmt.Errorf("cancel request not found: %w", shared.ErrNotFound)
	ErrAlreadyDecided         = fmt.Errorf("cancel request already processed: %w", shared.ErrStateConflict)
	ErrConcurrentModification = fmt.Errorf("cancel request was modified by another transaction: %w", shared.ErrConflict)
)

// Request 取消申请聚合根
type Request struct {
	id              string
	merchantOrderID string
	merchantID      string
	userID          string
	reason          string
	status          Status
	merchantNote    string
	decidedBy       string
	decidedAt       *time.Time
	version         int
	createdAt       time.Time
	updatedAt       time.Time

	events []shared.DomainEvent
	isNew  bool
}

var _ shared.AggregateRoot = (*Request)(nil)

// NewRequest 顾客提交取消申请，原因去除首尾空白
func NewRequest(id, merchantOrderID, merchantID, userID, reason string, now time.Time) *Request {
	r := &Request{
		id:              id,
		merchantOrderID: merchantOrderID,
		merchantID:      merchantID,
		userID:          userID,
		reason:          strings.TrimSpace(reason),
		status:          StatusPending,
		createdAt:       now,
		updatedAt:       now,
		isNew:           true,
	}
	r.record(EventRequested, now)
	return r
}

// Approve PENDING -> APPROVED
func (r *Request) Approve(actorID, note string, now time.Time) error {
	return r.decide(StatusApproved, EventApproved, actorID, note, now)
}

// Reject PENDING -> REJECTED；只记录决定，不影响订单
func (r *Request) Reject(actorID, note string, now time.Time) error {
	return r.decide(StatusRejected, EventRejected, actorID, note, now)
}

func (r *Request) decide(to Status, event, actorID, note string, now time.Time) error {
	if r.status != StatusPending {
		return shared.NewDomainError(ErrAlreadyDecided, "cancel_request", "cancel request "+r.id+" is already "+string(r.status))
	}
	at := now
	r.status = to
	r.merchantNote = strings.TrimSpace(note)
	r.decidedBy = actorID
	r.decidedAt = &at
	r.updatedAt = now
	r.record(event, now)
	return nil
}

func (r *Request) record(name string, now time.Time) {
	r.events = append(r.events, shared.NewEvent(name, r.id, now, map[string]any{
		"merchant_order_id": r.merchantOrderID,
		"user_id":           r.userID,
		"status":            string(r.status),
	}))
}

func (r *Request) ID() string              { return r.id }
func (r *Request) MerchantOrderID() string { return r.merchantOrderID }
func (r *Request) MerchantID() string      { return r.merchantID }
func (r *Request) UserID() string          { return r.userID }
func (r *Request) Reason() string          { return r.reason }
func (r *Request) Status() Status          { return r.status }
func (r *Request) MerchantNote() string    { return r.merchantNote }
func (r *Request) DecidedBy() string       { return r.decidedBy }
func (r *Request) DecidedAt() *time.Time   { return r.decidedAt }
func (r *Request) Version() int            { return r.version }
func (r *Request) CreatedAt() time.Time    { return r.createdAt }
func (r *Request) UpdatedAt() time.Time    { return r.updatedAt }
func (r *Request) IsNew() bool             { return r.isNew }
func (r *Request) IsPending() bool         { return r.status == StatusPending }

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
	MerchantID      string
	UserID          string
	Reason          string
	Status          Status
	MerchantNote    string
	DecidedBy       string
	DecidedAt       *time.Time
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func RebuildFromDTO(dto ReconstructionDTO) *Request {
	return &Request{
		id:              dto.ID,
		merchantOrderID: dto.MerchantOrderID,
		merchantID:      dto.MerchantID,
		userID:          dto.UserID,
		reason:          dto.Reason,
		status:          dto.Status,
		merchantNote:    dto.MerchantNote,
		decidedBy:       dto.DecidedBy,
		decidedAt:       dto.DecidedAt,
		version:         dto.Version,
		createdAt:       dto.CreatedAt,
		updatedAt:       dto.UpdatedAt,
	}
}

func (r *Request) Snapshot() ReconstructionDTO {
	return ReconstructionDTO{
		ID:              r.id,
		MerchantOrderID: r.merchantOrderID,
		MerchantID:      r.merchantID,
		UserID:          r.userID,
		Reason:          r.reason,
		Status:          r.status,
		MerchantNote:    r.merchantNote,
		DecidedBy:       r.decidedBy,
		DecidedAt:       r.decidedAt,
		Version:         r.version,
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
	}
}

// Filter 列表查询条件；MerchantID 为空表示不限商家（管理员）
type Filter struct {
	MerchantID string
	Status     Status
	Limit      int
}

// Repository 取消申请仓储
type Repository interface {
	NextIdentity() string
	Save(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)

	// FindPending 某订单某顾客的待处理申请，不存在时返回 (nil, nil)
	FindPending(ctx context.Context, merchantOrderID, userID string) (*Request, error)

	// PendingOrderIDs 给定订单中存在待处理申请的订单 ID 集合（展示状态批量查询）
	PendingOrderIDs(ctx context.Context, merchantOrderIDs []string) (map[string]bool, error)

	// List 按创建时间倒序
	List(ctx context.Context, filter Filter) ([]*Request, error)
}
