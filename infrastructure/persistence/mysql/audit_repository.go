package mysql

import (
	"context"

	"marketplace/domain/audit"
	"marketplace/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

// AuditRepository 审计记录在业务事务提交之后写入，使用独立连接
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	row, err := po.FromAuditEntry(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(row).Error
}

var _ audit.Repository = (*AuditRepository)(nil)
