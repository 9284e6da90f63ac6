package mysql

import (
	"context"
	"fmt"

	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence"
	"marketplace/infrastructure/persistence/retry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork GORM 事务边界。
// Execute 开启事务并把 tx 放进 context，仓储从 context 取 tx；
// 提交前把注册聚合的领域事件写入 outbox 表，与业务数据同一事务提交。
// 乐观锁冲突、死锁、锁等待超时按 retry.Config 重试整个 fn，所以 fn 必须在内部重新加载聚合。
type UnitOfWork struct {
	db          *gorm.DB
	outbox      *OutboxRepository
	retryConfig retry.Config
	log         *zap.Logger
	aggregates  []shared.AggregateRoot
}

// NewUnitOfWork creates a new UnitOfWork instance
func NewUnitOfWork(db *gorm.DB, outbox *OutboxRepository, retryConfig retry.Config, log *zap.Logger) *UnitOfWork {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnitOfWork{
		db:          db,
		outbox:      outbox,
		retryConfig: retryConfig,
		log:         log,
	}
}

// Execute runs fn inside a database transaction, retrying on retryable errors
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	// 已在事务内：并入外层事务，由外层负责提交与重试
	if persistence.TxFromContext(ctx) != nil {
		u.aggregates = nil
		if err := fn(ctx); err != nil {
			return err
		}
		return u.flushEvents(ctx)
	}

	attempt := 0
	executeOnce := func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			u.log.Debug("retrying unit of work",
				zap.Int("attempt", attempt),
				zap.String("request_id", persistence.RequestIDFromContext(ctx)))
		}
		u.aggregates = nil

		return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txCtx := persistence.ContextWithTx(ctx, tx)
			if err := fn(txCtx); err != nil {
				return err
			}
			return u.flushEvents(txCtx)
		})
	}

	return retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce)
}

// flushEvents 把注册聚合的事件写入 outbox
func (u *UnitOfWork) flushEvents(ctx context.Context) error {
	for _, agg := range u.aggregates {
		for _, event := range agg.PullEvents() {
			if err := u.outbox.SaveEvent(ctx, event); err != nil {
				return fmt.Errorf("failed to save event to outbox: %w", err)
			}
		}
	}
	u.aggregates = nil
	return nil
}

// RegisterNew registers a newly created aggregate root for event collection
func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// RegisterDirty registers a modified aggregate root for event collection
func (u *UnitOfWork) RegisterDirty(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// RegisterRemoved registers a deleted aggregate root for event collection
func (u *UnitOfWork) RegisterRemoved(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
