package order

import (
	"context"
	"time"

	"marketplace/domain/shared"
)

// Specification 商户订单查询规约
type Specification = shared.Specification[*MerchantOrder]

// ByCustomerSpecification filters orders by customer
type ByCustomerSpecification struct {
	CustomerID string
}

func (spec ByCustomerSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return o.CustomerID() == spec.CustomerID
}

// ByMerchantSpecification filters orders by merchant
type ByMerchantSpecification struct {
	MerchantID string
}

func (spec ByMerchantSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return o.MerchantID() == spec.MerchantID
}

// ByStatusSpecification filters orders by stored status
type ByStatusSpecification struct {
	Status Status
}

func (spec ByStatusSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return o.Status() == spec.Status
}

// NotDeletedSpecification excludes soft-deleted orders
type NotDeletedSpecification struct{}

func (spec NotDeletedSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return !o.IsDeleted()
}

// DeadlineBeforeSpecification matches orders whose payment deadline is strictly before At
type DeadlineBeforeSpecification struct {
	At time.Time
}

func (spec DeadlineBeforeSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return o.CancelDeadline().Before(spec.At)
}

// AllSpecification matches every order
type AllSpecification struct{}

func (spec AllSpecification) IsSatisfiedBy(ctx context.Context, o *MerchantOrder) bool {
	return true
}

// Visible 未删除的订单
func Visible(spec Specification) Specification {
	return shared.And[*MerchantOrder](spec, NotDeletedSpecification{})
}

// ExpiredUnpaid 已过截止时间仍未支付的订单（过期扫描使用）
func ExpiredUnpaid(now time.Time) Specification {
	return shared.And[*MerchantOrder](
		ByStatusSpecification{Status: StatusCreated},
		DeadlineBeforeSpecification{At: now},
	)
}
