/*
Package order 订单子域 - 商户订单聚合

一次结账生成一个 OrderGroup，并按商家拆分为多个 MerchantOrder。
MerchantOrder 是状态机的承载者，订单项、收货地址快照、支付流水和发货记录
都在同一个聚合边界内，任何状态迁移及其副作用在一次保存中原子提交。

库存回补不在聚合内完成：聚合方法返回是否需要回补，由应用层调用库存台账。
*/
package order

import (
	"strings"
	"time"

	"marketplace/domain/payment"
	"marketplace/domain/shared"
)

// MerchantOrder 商户订单聚合根
type MerchantOrder struct {
	id              string
	groupID         string
	customerID      string
	merchantID      string
	status          Status
	subtotal        shared.Money
	cancelDeadline  time.Time // 下单时确定，之后不可修改
	autoCancelledAt *time.Time
	items           []*OrderItem
	shippingAddress ShippingAddress
	payment         *payment.Transaction
	shipment        *Shipment

	deleted       bool
	deletedReason string
	deletedAt     *time.Time
	deletedBy     string

	version   int
	createdAt time.Time
	updatedAt time.Time

	events []shared.DomainEvent
	isNew  bool
}

var _ shared.AggregateRoot = (*MerchantOrder)(nil)

// ============================================================================
// 过期判断
// ============================================================================

// IsExpired 未支付且已超过支付截止时间（严格大于）
func (o *MerchantOrder) IsExpired(now time.Time) bool {
	return o.status == StatusCreated && now.After(o.cancelDeadline)
}

// ExpireIfDue 过期订单的唯一修改入口：CREATED -> CANCELLED_BY_USER，并标记为系统自动取消
// 返回 true 表示本次发生了迁移，调用方需要回补库存
func (o *MerchantOrder) ExpireIfDue(now time.Time) bool {
	if !o.IsExpired(now) {
		return false
	}
	at := now
	o.status = StatusCancelledByUser
	o.autoCancelledAt = &at
	o.touch(now)
	o.record(EventOrderExpired, now, map[string]any{
		"deadline": o.cancelDeadline,
	})
	return true
}

// ============================================================================
// 取消窗口
// ============================================================================

// WindowKind 取消窗口类型
type WindowKind string

const (
	WindowPayment       WindowKind = "PAYMENT"        // 支付前：截止时间即 cancel_deadline
	WindowPostPayCancel WindowKind = "POSTPAY_CANCEL" // 支付后：支付时间 + 窗口
)

// CancelWindow 取消窗口快照
type CancelWindow struct {
	Kind      WindowKind
	Deadline  time.Time
	Remaining time.Duration
}

// RemainingSeconds 剩余秒数（向下取整，不小于 0）
func (w CancelWindow) RemainingSeconds() int64 {
	return int64(w.Remaining / time.Second)
}

// CancelWindow 计算当前取消窗口
func (o *MerchantOrder) CancelWindow(now time.Time, postPayWindow time.Duration) CancelWindow {
	w := CancelWindow{Kind: WindowPayment, Deadline: o.cancelDeadline}
	if o.status == StatusPaid && o.payment != nil {
		w = CancelWindow{Kind: WindowPostPayCancel, Deadline: o.payment.PaidAt().Add(postPayWindow)}
	}
	if remaining := w.Deadline.Sub(now); remaining > 0 {
		w.Remaining = remaining
	}
	return w
}

// ============================================================================
// 支付
// ============================================================================

// StartPayment 创建 INIT 流水；之前失败的流水会被新流水替换
func (o *MerchantOrder) StartPayment(paymentID string, method payment.Method, now time.Time) (*payment.Transaction, error) {
	if o.IsExpired(now) {
		return nil, NewPaymentWindowExpiredError(o.id)
	}
	if o.status != StatusCreated {
		return nil, NewInvalidOrderStateError(o.id, o.status, string(StatusCreated))
	}
	if o.payment != nil && o.payment.Status() != payment.StatusFailed {
		return nil, shared.NewStateConflictError("payment", "order "+o.id+" already has a "+string(o.payment.Status())+" payment")
	}
	o.payment = payment.NewTransaction(paymentID, o.id, method, o.subtotal, now)
	return o.payment, nil
}

// CompletePayment 网关扣款成功：流水 SUCCESS，订单 PAID
func (o *MerchantOrder) CompletePayment(providerTradeNo string, now time.Time) error {
	if o.payment == nil {
		return shared.NewStateConflictError("payment", "payment was not started for order "+o.id)
	}
	if err := o.payment.Succeed(providerTradeNo, now); err != nil {
		return err
	}
	o.status = StatusPaid
	o.touch(now)
	o.record(EventOrderPaid, now, map[string]any{
		"payment_id": o.payment.ID(),
		"method":     string(o.payment.Method()),
		"amount":     o.subtotal.Amount(),
		"currency":   o.subtotal.Currency(),
	})
	return nil
}

// FailPayment 网关扣款失败：流水 FAILED，订单保持 CREATED
func (o *MerchantOrder) FailPayment(now time.Time) error {
	if o.payment == nil {
		return shared.NewStateConflictError("payment", "payment was not started for order "+o.id)
	}
	if err := o.payment.Fail(now); err != nil {
		return err
	}
	o.touch(now)
	o.record(EventPaymentFailed, now, map[string]any{"payment_id": o.payment.ID()})
	return nil
}

// ============================================================================
// 取消
// ============================================================================

// CancelOutcomeKind 顾客取消的结果类型
type CancelOutcomeKind string

const (
	CancelledBeforePayment CancelOutcomeKind = "CANCELLED_BEFORE_PAYMENT"
	CancelledAfterPayment  CancelOutcomeKind = "CANCELLED_AFTER_PAYMENT"
	ApprovalRequired       CancelOutcomeKind = "APPROVAL_REQUIRED"
)

// CancelOutcome 顾客取消结果
type CancelOutcome struct {
	Kind         CancelOutcomeKind
	StatusBefore Status
	Remaining    time.Duration
	Refunded     bool
}

// RestoresStock 直接取消时需要回补库存
func (c CancelOutcome) RestoresStock() bool {
	return c.Kind == CancelledBeforePayment || c.Kind == CancelledAfterPayment
}

// CancelByCustomer 顾客取消
//   - CREATED 且未过期：直接取消
//   - PAID 且在支付后窗口内：退款并直接取消
//   - PAID 且超出窗口：不修改订单，返回 ApprovalRequired，由应用层创建取消申请
func (o *MerchantOrder) CancelByCustomer(now time.Time, postPayWindow time.Duration) (CancelOutcome, error) {
	before := o.status
	switch o.status {
	case StatusCreated:
		if o.IsExpired(now) {
			return CancelOutcome{}, NewPaymentWindowExpiredError(o.id)
		}
		o.status = StatusCancelledByUser
		o.touch(now)
		o.record(EventOrderCancelled, now, map[string]any{"by": string(shared.RoleCustomer), "status_before": string(before)})
		return CancelOutcome{Kind: CancelledBeforePayment, StatusBefore: before, Remaining: o.cancelDeadline.Sub(now)}, nil

	case StatusPaid:
		if o.payment == nil {
			return CancelOutcome{}, shared.NewStateConflictError("payment", "paid order "+o.id+" has no payment record")
		}
		deadline := o.payment.PaidAt().Add(postPayWindow)
		if now.After(deadline) {
			return CancelOutcome{Kind: ApprovalRequired, StatusBefore: before}, nil
		}
		refunded, err := o.payment.Refund(now)
		if err != nil {
			return CancelOutcome{}, err
		}
		o.status = StatusCancelledByUser
		o.touch(now)
		o.record(EventOrderCancelled, now, map[string]any{"by": string(shared.RoleCustomer), "status_before": string(before), "refunded": refunded})
		return CancelOutcome{Kind: CancelledAfterPayment, StatusBefore: before, Remaining: deadline.Sub(now), Refunded: refunded}, nil
	}
	return CancelOutcome{}, NewInvalidOrderStateError(o.id, o.status, "CREATED or PAID")
}

// cancelledStatusFor 商家操作为 CANCELLED_BY_MERCHANT，管理员为 CANCELLED_BY_ADMIN
func cancelledStatusFor(role shared.Role) Status {
	if role == shared.RoleAdmin {
		return StatusCancelledByAdmin
	}
	return StatusCancelledByMerchant
}

// VoidOutcome 作废结果
type VoidOutcome struct {
	StatusBefore Status
	StatusAfter  Status
	Refunded     bool
	RestoreStock bool
}

// ApproveCancellation 批准顾客取消申请：订单必须仍为 PAID
func (o *MerchantOrder) ApproveCancellation(role shared.Role, now time.Time) (VoidOutcome, error) {
	if o.deleted {
		return VoidOutcome{}, shared.NewStateConflictError("merchant_order", "order "+o.id+" has been removed")
	}
	if o.status != StatusPaid {
		return VoidOutcome{}, NewInvalidOrderStateError(o.id, o.status, string(StatusPaid))
	}
	return o.cancelByOperator(role, "cancel request approved", now)
}

// Void 商家或管理员作废订单
//   - CREATED/PAID：已支付则退款，回补库存
//   - SHIPPED/DELIVERED：只改状态，货物已发出，不回补库存
func (o *MerchantOrder) Void(role shared.Role, reason string, now time.Time) (VoidOutcome, error) {
	switch o.status {
	case StatusCreated, StatusPaid, StatusShipped, StatusDelivered:
		return o.cancelByOperator(role, reason, now)
	}
	return VoidOutcome{}, NewInvalidOrderStateError(o.id, o.status, "CREATED, PAID, SHIPPED or DELIVERED")
}

func (o *MerchantOrder) cancelByOperator(role shared.Role, reason string, now time.Time) (VoidOutcome, error) {
	out := VoidOutcome{
		StatusBefore: o.status,
		StatusAfter:  cancelledStatusFor(role),
		RestoreStock: o.status.HoldsReservedStock(),
	}
	if out.RestoreStock && o.payment != nil && o.payment.IsSucceeded() {
		refunded, err := o.payment.Refund(now)
		if err != nil {
			return VoidOutcome{}, err
		}
		out.Refunded = refunded
	}
	o.status = out.StatusAfter
	o.touch(now)
	o.record(EventOrderCancelled, now, map[string]any{
		"by":            string(role),
		"status_before": string(out.StatusBefore),
		"reason":        reason,
		"refunded":      out.Refunded,
	})
	return out, nil
}

// ============================================================================
// 履约
// ============================================================================

// ShipInput 发货参数
type ShipInput struct {
	ShipmentID  string // 首次发货时使用的新 ID
	CarrierName string
	TrackingNo  string
	Events      []ShipmentEvent
}

// Ship PAID -> SHIPPED；发货记录整体覆盖
func (o *MerchantOrder) Ship(in ShipInput, now time.Time) error {
	if o.status != StatusPaid {
		return NewInvalidOrderStateError(o.id, o.status, string(StatusPaid))
	}
	carrier := strings.TrimSpace(in.CarrierName)
	tracking := strings.TrimSpace(in.TrackingNo)
	if carrier == "" {
		return shared.NewValidationError("shipment", "carrier_name", "carrier name is required")
	}
	if tracking == "" {
		return shared.NewValidationError("shipment", "tracking_no", "tracking number is required")
	}

	id := in.ShipmentID
	if o.shipment != nil {
		id = o.shipment.id
	}
	events := make([]ShipmentEvent, len(in.Events))
	copy(events, in.Events)
	shippedAt := now
	o.shipment = &Shipment{
		id:          id,
		carrierName: carrier,
		trackingNo:  tracking,
		status:      ShippingInTransit,
		shippedAt:   &shippedAt,
		events:      events,
	}
	o.status = StatusShipped
	o.touch(now)
	o.record(EventOrderShipped, now, map[string]any{"carrier_name": carrier, "tracking_no": tracking})
	return nil
}

// UpdateShippingStatus 更新物流状态；DELIVERED 时订单 SHIPPED -> DELIVERED
func (o *MerchantOrder) UpdateShippingStatus(status ShippingStatus, now time.Time) error {
	if o.shipment == nil {
		return shared.NewNotFoundError("shipment", o.id)
	}
	if o.status != StatusShipped {
		return NewInvalidOrderStateError(o.id, o.status, string(StatusShipped))
	}
	o.shipment.status = status
	if status == ShippingDelivered {
		at := now
		o.shipment.deliveredAt = &at
		o.status = StatusDelivered
	}
	o.touch(now)
	o.record(EventShippingUpdated, now, map[string]any{"shipping_status": string(status), "order_status": string(o.status)})
	return nil
}

// ConfirmReceipt 顾客确认收货 DELIVERED -> COMPLETED
func (o *MerchantOrder) ConfirmReceipt(now time.Time) error {
	if o.status != StatusDelivered {
		return NewInvalidOrderStateError(o.id, o.status, string(StatusDelivered))
	}
	o.status = StatusCompleted
	o.touch(now)
	o.record(EventOrderCompleted, now, nil)
	return nil
}

// ============================================================================
// 售后
// ============================================================================

// OpenAfterSale 为订单项发起售后：订单须为 COMPLETED 或 AFTER_SALE，订单项须为 NORMAL。
// pending 为售后类型对应的订单项中间状态
func (o *MerchantOrder) OpenAfterSale(itemID string, pending ItemStatus, now time.Time) (*OrderItem, error) {
	if o.status != StatusCompleted && o.status != StatusAfterSale {
		return nil, NewInvalidOrderStateError(o.id, o.status, "COMPLETED or AFTER_SALE")
	}
	item := o.Item(itemID)
	if item == nil {
		return nil, NewItemNotFoundError(o.id, itemID)
	}
	if item.status != ItemStatusNormal {
		return nil, shared.NewStateConflictError("order_item", "item "+itemID+" is "+string(item.status))
	}
	item.status = pending
	o.status = StatusAfterSale
	o.touch(now)
	o.record(EventAfterSaleOpened, now, map[string]any{"order_item_id": itemID, "item_status": string(pending)})
	return item, nil
}

// SetItemStatus 售后决定修改订单项状态
func (o *MerchantOrder) SetItemStatus(itemID string, status ItemStatus, now time.Time) error {
	item := o.Item(itemID)
	if item == nil {
		return NewItemNotFoundError(o.id, itemID)
	}
	item.status = status
	o.touch(now)
	return nil
}

// SettleAfterSale 售后聚合：存在未结束申请时为 AFTER_SALE，否则 AFTER_SALE_ENDED。
// 只在售后相关状态下生效，管理员覆盖到其他状态的订单不受影响
func (o *MerchantOrder) SettleAfterSale(hasOpen bool, now time.Time) {
	switch o.status {
	case StatusCompleted, StatusAfterSale, StatusAfterSaleEnded:
	default:
		return
	}
	target := StatusAfterSaleEnded
	if hasOpen {
		target = StatusAfterSale
	}
	if o.status == target {
		return
	}
	o.status = target
	o.touch(now)
	o.record(EventAfterSaleSettled, now, map[string]any{"status": string(target)})
}

// RefundIfFullyReturned 所有订单项都已退款或退货时，把支付流水标记为 REFUNDED
func (o *MerchantOrder) RefundIfFullyReturned(now time.Time) (bool, error) {
	if o.payment == nil || !o.payment.IsSucceeded() || len(o.items) == 0 {
		return false, nil
	}
	for _, item := range o.items {
		if !item.status.IsMoneyBack() {
			return false, nil
		}
	}
	refunded, err := o.payment.Refund(now)
	if err != nil || !refunded {
		return false, err
	}
	o.touch(now)
	o.record(EventPaymentRefunded, now, map[string]any{"payment_id": o.payment.ID()})
	return true, nil
}

// ============================================================================
// 管理员操作
// ============================================================================

// OverrideOutcome 管理员直接改状态的结果
type OverrideOutcome struct {
	Changed      bool
	StatusBefore Status
	Refunded     bool
	RestoreStock bool
}

// OverrideStatus 管理员覆盖状态，不受流程迁移表约束。
// 目标为取消状态时：未退款则退款；原状态仍占用库存（CREATED/PAID）时回补。
// 目标与当前相同时不做任何修改。
func (o *MerchantOrder) OverrideStatus(target Status, note string, now time.Time) (OverrideOutcome, error) {
	out := OverrideOutcome{StatusBefore: o.status}
	if target == o.status {
		return out, nil
	}
	if target.IsCancelled() {
		out.RestoreStock = o.status.HoldsReservedStock()
		if o.payment != nil && o.payment.IsSucceeded() {
			refunded, err := o.payment.Refund(now)
			if err != nil {
				return OverrideOutcome{}, err
			}
			out.Refunded = refunded
		}
	}
	out.Changed = true
	o.status = target
	o.touch(now)
	o.record(EventStatusOverridden, now, map[string]any{
		"from": string(out.StatusBefore),
		"to":   string(target),
		"note": note,
	})
	return out, nil
}

// Remove 软删除：只允许取消、完成或售后结束的订单
func (o *MerchantOrder) Remove(actorID, reason string, now time.Time) error {
	if o.deleted {
		return shared.NewStateConflictError("merchant_order", "order "+o.id+" has already been removed")
	}
	if !o.status.IsCancelled() && o.status != StatusCompleted && o.status != StatusAfterSaleEnded {
		return NewInvalidOrderStateError(o.id, o.status, "a cancelled, COMPLETED or AFTER_SALE_ENDED status")
	}
	at := now
	o.deleted = true
	o.deletedReason = reason
	o.deletedAt = &at
	o.deletedBy = actorID
	o.touch(now)
	o.record(EventOrderRemoved, now, map[string]any{"reason": reason, "by": actorID})
	return nil
}

// ============================================================================
// 内部辅助
// ============================================================================

func (o *MerchantOrder) touch(now time.Time) {
	o.updatedAt = now
}

func (o *MerchantOrder) record(name string, now time.Time, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["group_id"] = o.groupID
	payload["merchant_id"] = o.merchantID
	payload["status"] = string(o.status)
	o.events = append(o.events, shared.NewEvent(name, o.id, now, payload))
}

// IncrementVersionForSave 仓储保存成功后调用
func (o *MerchantOrder) IncrementVersionForSave() {
	o.version++
}

// ClearDirtyTracking 保存成功后清理新建标记
func (o *MerchantOrder) ClearDirtyTracking() {
	o.isNew = false
}

// PullEvents 获取并清空事件
func (o *MerchantOrder) PullEvents() []shared.DomainEvent {
	events := o.events
	o.events = nil
	return events
}

// ============================================================================
// Getters
// ============================================================================

func (o *MerchantOrder) ID() string                       { return o.id }
func (o *MerchantOrder) GroupID() string                  { return o.groupID }
func (o *MerchantOrder) CustomerID() string               { return o.customerID }
func (o *MerchantOrder) MerchantID() string               { return o.merchantID }
func (o *MerchantOrder) Status() Status                   { return o.status }
func (o *MerchantOrder) Subtotal() shared.Money           { return o.subtotal }
func (o *MerchantOrder) CancelDeadline() time.Time        { return o.cancelDeadline }
func (o *MerchantOrder) AutoCancelledAt() *time.Time      { return o.autoCancelledAt }
func (o *MerchantOrder) WasAutoCancelled() bool           { return o.autoCancelledAt != nil }
func (o *MerchantOrder) ShippingAddress() ShippingAddress { return o.shippingAddress }
func (o *MerchantOrder) Payment() *payment.Transaction    { return o.payment }
func (o *MerchantOrder) Shipment() *Shipment              { return o.shipment }
func (o *MerchantOrder) IsDeleted() bool                  { return o.deleted }
func (o *MerchantOrder) DeletedReason() string            { return o.deletedReason }
func (o *MerchantOrder) DeletedAt() *time.Time            { return o.deletedAt }
func (o *MerchantOrder) DeletedBy() string                { return o.deletedBy }
func (o *MerchantOrder) Version() int                     { return o.version }
func (o *MerchantOrder) CreatedAt() time.Time             { return o.createdAt }
func (o *MerchantOrder) UpdatedAt() time.Time             { return o.updatedAt }
func (o *MerchantOrder) IsNew() bool                      { return o.isNew }

// Items 返回订单项切片副本（元素仍指向聚合内实体，只读使用）
func (o *MerchantOrder) Items() []*OrderItem {
	out := make([]*OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

// Item 按 ID 查找订单项
func (o *MerchantOrder) Item(itemID string) *OrderItem {
	for _, item := range o.items {
		if item.id == itemID {
			return item
		}
	}
	return nil
}

// OwnedByCustomer 顾客是否为订单所有者
func (o *MerchantOrder) OwnedByCustomer(customerID string) bool {
	return o.customerID == customerID
}

// OwnedByMerchant 商家是否为订单所属商家
func (o *MerchantOrder) OwnedByMerchant(merchantID string) bool {
	return o.merchantID == merchantID
}

// ============================================================================
// ReconstructionDTO - 仅供仓储层使用
// ============================================================================

// ReconstructionDTO 商户订单重建 DTO
type ReconstructionDTO struct {
	ID              string
	GroupID         string
	CustomerID      string
	MerchantID      string
	Status          Status
	Subtotal        shared.Money
	CancelDeadline  time.Time
	AutoCancelledAt *time.Time
	Items           []ItemDTO
	ShippingAddress ShippingAddress
	Payment         *payment.TransactionDTO
	Shipment        *ShipmentDTO
	Deleted         bool
	DeletedReason   string
	DeletedAt       *time.Time
	DeletedBy       string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RebuildFromDTO 从 DTO 重建商户订单
func RebuildFromDTO(dto ReconstructionDTO) *MerchantOrder {
	items := make([]*OrderItem, len(dto.Items))
	for i, it := range dto.Items {
		items[i] = rebuildItem(it)
	}
	var tx *payment.Transaction
	if dto.Payment != nil {
		tx = payment.Rebuild(*dto.Payment)
	}
	return &MerchantOrder{
		id:              dto.ID,
		groupID:         dto.GroupID,
		customerID:      dto.CustomerID,
		merchantID:      dto.MerchantID,
		status:          dto.Status,
		subtotal:        dto.Subtotal,
		cancelDeadline:  dto.CancelDeadline,
		autoCancelledAt: dto.AutoCancelledAt,
		items:           items,
		shippingAddress: dto.ShippingAddress,
		payment:         tx,
		shipment:        rebuildShipment(dto.Shipment),
		deleted:         dto.Deleted,
		deletedReason:   dto.DeletedReason,
		deletedAt:       dto.DeletedAt,
		deletedBy:       dto.DeletedBy,
		version:         dto.Version,
		createdAt:       dto.CreatedAt,
		updatedAt:       dto.UpdatedAt,
	}
}

// Snapshot 导出当前状态（仓储与内存存储使用）
func (o *MerchantOrder) Snapshot() ReconstructionDTO {
	items := make([]ItemDTO, len(o.items))
	for i, it := range o.items {
		items[i] = it.snapshot()
	}
	var tx *payment.TransactionDTO
	if o.payment != nil {
		s := o.payment.Snapshot()
		tx = &s
	}
	return ReconstructionDTO{
		ID:              o.id,
		GroupID:         o.groupID,
		CustomerID:      o.customerID,
		MerchantID:      o.merchantID,
		Status:          o.status,
		Subtotal:        o.subtotal,
		CancelDeadline:  o.cancelDeadline,
		AutoCancelledAt: o.autoCancelledAt,
		Items:           items,
		ShippingAddress: o.shippingAddress,
		Payment:         tx,
		Shipment:        o.shipment.snapshot(),
		Deleted:         o.deleted,
		DeletedReason:   o.deletedReason,
		DeletedAt:       o.deletedAt,
		DeletedBy:       o.deletedBy,
		Version:         o.version,
		CreatedAt:       o.createdAt,
		UpdatedAt:       o.updatedAt,
	}
}
