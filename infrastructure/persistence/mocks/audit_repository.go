package mocks

import (
	"context"
	"errors"

	"marketplace/domain/audit"
)

// MockAuditRepository 内存审计记录；Fail 为 true 时模拟写入失败
type MockAuditRepository struct {
	store *Store
	Fail  bool
}

func NewMockAuditRepository(store *Store) *MockAuditRepository {
	return &MockAuditRepository{store: store}
}

func (r *MockAuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	if r.Fail {
		return errors.New("audit storage unavailable")
	}
	r.store.with(ctx, func() {
		r.store.auditLog = append(r.store.auditLog, entry)
	})
	return nil
}

var _ audit.Repository = (*MockAuditRepository)(nil)
