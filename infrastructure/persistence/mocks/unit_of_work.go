package mocks

import (
	"context"

	"marketplace/domain/shared"
)

// MockUnitOfWork 内存事务：持有存储锁执行 fn，失败时回滚快照，成功时把聚合事件写入内存 outbox
type MockUnitOfWork struct {
	store      *Store
	aggregates []shared.AggregateRoot
}

// NewMockUnitOfWork creates a new MockUnitOfWork instance
func NewMockUnitOfWork(store *Store) *MockUnitOfWork {
	return &MockUnitOfWork{store: store}
}

// Execute runs fn atomically against the in-memory store
func (u *MockUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	u.aggregates = nil

	if inTx(ctx) {
		// 嵌套调用并入外层事务
		if err := fn(ctx); err != nil {
			return err
		}
		u.collectEvents()
		return nil
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	saved := u.store.snapshot()
	txCtx := context.WithValue(ctx, txMarker{}, true)
	if err := fn(txCtx); err != nil {
		u.store.restore(saved)
		return err
	}
	u.collectEvents()
	return nil
}

func (u *MockUnitOfWork) collectEvents() {
	for _, agg := range u.aggregates {
		for _, event := range agg.PullEvents() {
			rec := OutboxEvent{
				ID:          newID(),
				AggregateID: agg.ID(),
				EventType:   event.EventName(),
				OccurredAt:  event.OccurredOn(),
				Status:      OutboxPending,
			}
			if pe, ok := event.(shared.PayloadEvent); ok {
				rec.Payload = pe.Payload()
			}
			u.store.outbox = append(u.store.outbox, rec)
		}
	}
	u.aggregates = nil
}

// RegisterNew registers a newly created aggregate root for event collection
func (u *MockUnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// RegisterDirty registers a modified aggregate root for event collection
func (u *MockUnitOfWork) RegisterDirty(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// RegisterRemoved registers a deleted aggregate root for event collection
func (u *MockUnitOfWork) RegisterRemoved(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

var _ shared.UnitOfWork = (*MockUnitOfWork)(nil)

// MockUnitOfWorkFactory 每次创建独立的 MockUnitOfWork
type MockUnitOfWorkFactory struct {
	store *Store
}

func NewMockUnitOfWorkFactory(store *Store) *MockUnitOfWorkFactory {
	return &MockUnitOfWorkFactory{store: store}
}

func (f *MockUnitOfWorkFactory) New() shared.UnitOfWork {
	return NewMockUnitOfWork(f.store)
}

var _ shared.UnitOfWorkFactory = (*MockUnitOfWorkFactory)(nil)
