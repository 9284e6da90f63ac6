package specification

import (
	"fmt"

	"marketplace/domain/order"
	"marketplace/domain/shared"

	"gorm.io/gorm"
)

// Scope GORM 查询片段
type Scope = func(*gorm.DB) *gorm.DB

// OrderTranslator converts merchant order specifications to GORM scopes
// DDD principle: Infrastructure layer handles framework-specific concerns
type OrderTranslator struct {
	// db 用来开启新的会话构造分组条件（OR / NOT）
	db *gorm.DB
}

// NewOrderTranslator creates a new GORM translator
func NewOrderTranslator(db *gorm.DB) *OrderTranslator {
	return &OrderTranslator{db: db}
}

// Translate converts a domain specification to a GORM scope.
// 未知规约返回错误，避免静默地放宽查询条件
func (t *OrderTranslator) Translate(spec order.Specification) (Scope, error) {
	if spec == nil {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}

	// Handle composite specifications
	switch s := spec.(type) {
	case shared.AndSpecification[*order.MerchantOrder]:
		return t.translateAnd(s)
	case shared.OrSpecification[*order.MerchantOrder]:
		return t.translateOr(s)
	case shared.NotSpecification[*order.MerchantOrder]:
		return t.translateNot(s)
	}

	return t.translateConcrete(spec)
}

func (t *OrderTranslator) translateAnd(spec shared.AndSpecification[*order.MerchantOrder]) (Scope, error) {
	left, err := t.Translate(spec.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Translate(spec.Right)
	if err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		return right(left(db))
	}, nil
}

// translateOr 两侧各自在新会话里构造条件，再作为分组条件合并
func (t *OrderTranslator) translateOr(spec shared.OrSpecification[*order.MerchantOrder]) (Scope, error) {
	left, err := t.Translate(spec.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Translate(spec.Right)
	if err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(left(t.group()).Or(right(t.group())))
	}, nil
}

func (t *OrderTranslator) translateNot(spec shared.NotSpecification[*order.MerchantOrder]) (Scope, error) {
	inner, err := t.Translate(spec.Spec)
	if err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Not(inner(t.group()))
	}, nil
}

func (t *OrderTranslator) group() *gorm.DB {
	return t.db.Session(&gorm.Session{NewDB: true})
}

// translateConcrete translates concrete domain specifications
func (t *OrderTranslator) translateConcrete(spec order.Specification) (Scope, error) {
	switch s := spec.(type) {
	case order.ByCustomerSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("customer_id = ?", s.CustomerID)
		}, nil
	case order.ByMerchantSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("merchant_id = ?", s.MerchantID)
		}, nil
	case order.ByStatusSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", string(s.Status))
		}, nil
	case order.NotDeletedSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("removed = ?", false)
		}, nil
	case order.DeadlineBeforeSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("cancel_deadline < ?", s.At)
		}, nil
	case order.AllSpecification:
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}

	return nil, fmt.Errorf("unsupported order specification %T", spec)
}
