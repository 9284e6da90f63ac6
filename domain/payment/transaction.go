// Package payment 支付记录子域：模拟支付流水的状态机
// 流水与商户订单一对一，作为 MerchantOrder 聚合内的实体持久化。
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace/domain/shared"
)

// Status 支付流水状态
type Status string

const (
	StatusInit     Status = "INIT"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

// Method 支付方式
type Method string

const (
	MethodMock   Method = "MOCK"
	MethodAlipay Method = "ALIPAY"
	MethodWechat Method = "WECHAT"
	MethodCard   Method = "CARD"
)

// ParseMethod 未知或空的支付方式按 MOCK 处理
func ParseMethod(s string) Method {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodAlipay, MethodWechat, MethodCard, MethodMock:
		return m
	}
	return MethodMock
}

// Gateway 支付网关。真实网关集成不在范围内，由模拟实现返回结果。
type Gateway interface {
	// Charge 返回第三方交易号；返回错误表示扣款失败
	Charge(ctx context.Context, tx *Transaction) (providerTradeNo string, err error)
}

// ErrDeclined 网关拒绝扣款
var ErrDeclined = fmt.Errorf("payment declined: %w", shared.ErrStateConflict)

// NewDeclinedError 合并支付中任一子订单扣款失败时整批回滚并返回该错误
func NewDeclinedError(merchantOrderID string, cause error) error {
	msg := "payment for order " + merchantOrderID + " was declined"
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return shared.NewDomainError(ErrDeclined, "payment", msg)
}

// Transaction 支付流水实体
type Transaction struct {
	id              string
	merchantOrderID string
	method          Method
	amount          shared.Money
	status          Status
	providerTradeNo string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewTransaction 创建 INIT 状态的流水
func NewTransaction(id, merchantOrderID string, method Method, amount shared.Money, now time.Time) *Transaction {
	return &Transaction{
		id:              id,
		merchantOrderID: merchantOrderID,
		method:          method,
		amount:          amount,
		status:          StatusInit,
		createdAt:       now,
		updatedAt:       now,
	}
}

// Succeed INIT -> SUCCESS
func (t *Transaction) Succeed(providerTradeNo string, now time.Time) error {
	if t.status != StatusInit {
		return shared.NewStateConflictError("payment", "payment is "+string(t.status)+", expected INIT")
	}
	t.status = StatusSuccess
	t.providerTradeNo = providerTradeNo
	t.updatedAt = now
	return nil
}

// Fail INIT -> FAILED
func (t *Transaction) Fail(now time.Time) error {
	if t.status != StatusInit {
		return shared.NewStateConflictError("payment", "payment is "+string(t.status)+", expected INIT")
	}
	t.status = StatusFailed
	t.updatedAt = now
	return nil
}

// Refund SUCCESS -> REFUNDED；已退款时返回 false 且不报错
func (t *Transaction) Refund(now time.Time) (bool, error) {
	switch t.status {
	case StatusRefunded:
		return false, nil
	case StatusSuccess:
		t.status = StatusRefunded
		t.updatedAt = now
		return true, nil
	default:
		return false, shared.NewStateConflictError("payment", "cannot refund payment in status "+string(t.status))
	}
}

// PaidAt 支付时间：取 updated_at，缺失时回退 created_at
func (t *Transaction) PaidAt() time.Time {
	if !t.updatedAt.IsZero() {
		return t.updatedAt
	}
	return t.createdAt
}

func (t *Transaction) ID() string              { return t.id }
func (t *Transaction) MerchantOrderID() string { return t.merchantOrderID }
func (t *Transaction) Method() Method          { return t.method }
func (t *Transaction) Amount() shared.Money    { return t.amount }
func (t *Transaction) Status() Status          { return t.status }
func (t *Transaction) ProviderTradeNo() string { return t.providerTradeNo }
func (t *Transaction) CreatedAt() time.Time    { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time    { return t.updatedAt }
func (t *Transaction) IsSucceeded() bool       { return t.status == StatusSuccess }
func (t *Transaction) IsRefunded() bool        { return t.status == StatusRefunded }

// TransactionDTO 仓储层重建用
type TransactionDTO struct {
	ID              string
	MerchantOrderID string
	Method          Method
	Amount          shared.Money
	Status          Status
	ProviderTradeNo string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Rebuild 从 DTO 重建流水
func Rebuild(dto TransactionDTO) *Transaction {
	return &Transaction{
		id:              dto.ID,
		merchantOrderID: dto.MerchantOrderID,
		method:          dto.Method,
		amount:          dto.Amount,
		status:          dto.Status,
		providerTradeNo: dto.ProviderTradeNo,
		createdAt:       dto.CreatedAt,
		updatedAt:       dto.UpdatedAt,
	}
}

// Snapshot 导出当前状态
func (t *Transaction) Snapshot() TransactionDTO {
	return TransactionDTO{
		ID:              t.id,
		MerchantOrderID: t.merchantOrderID,
		Method:          t.method,
		Amount:          t.amount,
		Status:          t.status,
		ProviderTradeNo: t.providerTradeNo,
		CreatedAt:       t.createdAt,
		UpdatedAt:       t.updatedAt,
	}
}
