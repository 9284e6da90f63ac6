package mocks

import (
	"context"
	"maps"
	"sync"
	"time"

	"marketplace/domain/aftersale"
	"marketplace/domain/audit"
	"marketplace/domain/cancellation"
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/order"

	"github.com/google/uuid"
)

// OutboxEvent 内存 outbox 记录，测试用来断言事件
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     map[string]any
	OccurredAt  time.Time
	Status      string
	RetryCount  int
}

// Store 内存存储：database.type=memory 时的默认实现，也是测试的持久化替身。
// 所有读写在同一把锁下进行；UnitOfWork 在整个 Execute 期间持锁，
// 失败时把数据恢复到执行前的快照，与数据库事务的原子语义一致。
// 存储的是 DTO 值，仓储每次读取都重建聚合，和数据库一样不共享内存对象。
type Store struct {
	mu sync.Mutex

	groups       map[string]order.GroupDTO
	orders       map[string]order.ReconstructionDTO
	cancelReqs   map[string]cancellation.ReconstructionDTO
	afterSales   map[string]aftersale.ReconstructionDTO
	products     map[string]inventory.ProductDTO
	reservations map[string]inventory.Reservation
	carts        map[string][]cart.Line
	auditLog     []audit.Entry
	outbox       []OutboxEvent
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		groups:       make(map[string]order.GroupDTO),
		orders:       make(map[string]order.ReconstructionDTO),
		cancelReqs:   make(map[string]cancellation.ReconstructionDTO),
		afterSales:   make(map[string]aftersale.ReconstructionDTO),
		products:     make(map[string]inventory.ProductDTO),
		reservations: make(map[string]inventory.Reservation),
		carts:        make(map[string][]cart.Line),
	}
}

type storeState struct {
	groups       map[string]order.GroupDTO
	orders       map[string]order.ReconstructionDTO
	cancelReqs   map[string]cancellation.ReconstructionDTO
	afterSales   map[string]aftersale.ReconstructionDTO
	products     map[string]inventory.ProductDTO
	reservations map[string]inventory.Reservation
	carts        map[string][]cart.Line
	auditLen     int
	outboxLen    int
}

// 值都是不可变快照（写入时整体替换），浅拷贝 map 即可回滚
func (s *Store) snapshot() storeState {
	return storeState{
		groups:       maps.Clone(s.groups),
		orders:       maps.Clone(s.orders),
		cancelReqs:   maps.Clone(s.cancelReqs),
		afterSales:   maps.Clone(s.afterSales),
		products:     maps.Clone(s.products),
		reservations: maps.Clone(s.reservations),
		carts:        maps.Clone(s.carts),
		auditLen:     len(s.auditLog),
		outboxLen:    len(s.outbox),
	}
}

func (s *Store) restore(st storeState) {
	s.groups = st.groups
	s.orders = st.orders
	s.cancelReqs = st.cancelReqs
	s.afterSales = st.afterSales
	s.products = st.products
	s.reservations = st.reservations
	s.carts = st.carts
	s.auditLog = s.auditLog[:st.auditLen]
	s.outbox = s.outbox[:st.outboxLen]
}

type txMarker struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// with 在事务外访问时加锁；事务内 UnitOfWork 已持锁
func (s *Store) with(ctx context.Context, fn func()) {
	if inTx(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// OutboxEvents 返回已提交的 outbox 事件副本
func (s *Store) OutboxEvents() []OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboxEvent, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// AuditEntries 返回审计记录副本
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

// SeedProduct 直接写入商品（测试与演示数据）
func (s *Store) SeedProduct(p inventory.ProductDTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	s.products[p.ID] = p
}

// Stock 读取商品当前库存，商品不存在时返回 -1
func (s *Store) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return -1
	}
	return p.Stock
}

// DeleteProduct 删除商品（模拟下架后的数据漂移）
func (s *Store) DeleteProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productID)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
