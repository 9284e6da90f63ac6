package mysql

import (
	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence/retry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWorkFactory 每个业务操作一个 UnitOfWork，聚合注册表不在并发请求间共享
type UnitOfWorkFactory struct {
	db          *gorm.DB
	outbox      *OutboxRepository
	retryConfig retry.Config
	log         *zap.Logger
}

func NewUnitOfWorkFactory(db *gorm.DB, retryConfig retry.Config, log *zap.Logger) *UnitOfWorkFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnitOfWorkFactory{
		db:          db,
		outbox:      NewOutboxRepository(db),
		retryConfig: retryConfig,
		log:         log.Named("uow"),
	}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return NewUnitOfWork(f.db, f.outbox, f.retryConfig, f.log)
}

var _ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
