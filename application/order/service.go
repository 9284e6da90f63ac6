/*
Package order 应用层 - 订单生命周期编排

应用层职责:
 1. 接收控制器请求，校验操作者能力（shared.Actor）
 2. 在一个工作单元内加载聚合、调用聚合方法、保存并登记事件
 3. 事务提交后记录审计
 4. 返回 DTO

应用服务不直接发布事件：UoW 在提交前把聚合事件写入 outbox，
由 outbox worker 异步投递。

懒过期：任何触达 CREATED 订单的操作先在独立工作单元里执行过期检查，
自动取消提交后才返回 ExpiryRace，因此调用方看到的状态永远不是过期前的 CREATED。
*/
package order

import (
	"context"
	"time"

	appaudit "marketplace/application/audit"
	"marketplace/domain/aftersale"
	"marketplace/domain/audit"
	"marketplace/domain/cancellation"
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/payment"
	"marketplace/domain/shared"

	"go.uber.org/zap"
)

// DefaultCancelWindow 支付窗口与支付后直接取消窗口的默认值
const DefaultCancelWindow = 5 * time.Minute

// IdempotencyStore 结账幂等键存储
type IdempotencyStore interface {
	// Get 返回键对应的结果；键被占用但尚未完成时 done 为 false
	Get(ctx context.Context, key string) (result string, found bool, done bool, err error)

	// Claim 原子占用键，已被占用时返回 false
	Claim(ctx context.Context, key string) (bool, error)

	// Complete 写入结果
	Complete(ctx context.Context, key, result string) error

	// Release 失败时释放占用
	Release(ctx context.Context, key string) error
}

// Deps 应用服务依赖
type Deps struct {
	UnitOfWork     shared.UnitOfWorkFactory
	Orders         order.Repository
	CancelRequests cancellation.Repository
	AfterSales     aftersale.Repository
	Inventory      inventory.Repository
	Cart           cart.Repository
	Gateway        payment.Gateway
	Audit          *appaudit.Recorder
	Idempotency    IdempotencyStore // 可为 nil，此时忽略 Idempotency-Key
	Clock          shared.Clock
	CancelWindow   time.Duration
	Logger         *zap.Logger
}

// ApplicationService 订单应用服务
type ApplicationService struct {
	uowFactory     shared.UnitOfWorkFactory
	orders         order.Repository
	cancelRequests cancellation.Repository
	afterSales     aftersale.Repository
	inventory      inventory.Repository
	ledger         *inventory.Ledger
	cart           cart.Repository
	gateway        payment.Gateway
	audit          *appaudit.Recorder
	idempotency    IdempotencyStore
	clock          shared.Clock
	window         time.Duration
	log            *zap.Logger
}

// NewApplicationService 创建订单应用服务
func NewApplicationService(deps Deps) *ApplicationService {
	window := deps.CancelWindow
	if window <= 0 {
		window = DefaultCancelWindow
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ApplicationService{
		uowFactory:     deps.UnitOfWork,
		orders:         deps.Orders,
		cancelRequests: deps.CancelRequests,
		afterSales:     deps.AfterSales,
		inventory:      deps.Inventory,
		ledger:         inventory.NewLedger(deps.Inventory),
		cart:           deps.Cart,
		gateway:        deps.Gateway,
		audit:          deps.Audit,
		idempotency:    deps.Idempotency,
		clock:          deps.Clock,
		window:         window,
		log:            log.Named("order"),
	}
}

// CancelWindow 当前配置的取消窗口
func (s *ApplicationService) CancelWindow() time.Duration {
	return s.window
}

// ============================================================================
// 内部辅助
// ============================================================================

// execute 在一个新的工作单元里执行 fn
func (s *ApplicationService) execute(ctx context.Context, fn func(ctx context.Context, uow shared.UnitOfWork) error) error {
	uow := s.uowFactory.New()
	return uow.Execute(ctx, func(ctx context.Context) error {
		return fn(ctx, uow)
	})
}

// loadOrder 加载订单；软删除的订单对非管理员不可见
func (s *ApplicationService) loadOrder(ctx context.Context, actor shared.Actor, orderID string) (*order.MerchantOrder, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsDeleted() && !actor.IsAdmin() {
		return nil, order.NewOrderNotFoundError(orderID)
	}
	return o, nil
}

// authorizeCustomer 顾客只能操作自己的订单
func authorizeCustomer(actor shared.Actor, o *order.MerchantOrder) error {
	if !o.OwnedByCustomer(actor.ID) {
		return shared.NewForbiddenError("merchant_order", "order "+o.ID()+" does not belong to the customer")
	}
	return nil
}

// authorizeOperator 商家只能操作自己的订单，管理员不受限
func authorizeOperator(actor shared.Actor, merchantID string, entity, id string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsMerchant() && actor.ID == merchantID {
		return nil
	}
	return shared.NewForbiddenError(entity, entity+" "+id+" does not belong to the merchant")
}

// authorizeViewer 查看权限：顾客本人、所属商家或管理员
func authorizeViewer(actor shared.Actor, o *order.MerchantOrder) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsCustomer() && o.OwnedByCustomer(actor.ID):
		return nil
	case actor.IsMerchant() && o.OwnedByMerchant(actor.ID):
		return nil
	}
	return shared.NewForbiddenError("merchant_order", "order "+o.ID()+" is not visible to the actor")
}

// reportRestock 台账回补缺失商品时记录漂移：WARN 日志 + INVENTORY_RESTOCK_DRIFT 审计
func (s *ApplicationService) reportRestock(ctx context.Context, actor shared.Actor, orderID string, restock inventory.Restock) {
	if !restock.HasDrift() {
		return
	}
	missing := make([]map[string]any, 0, len(restock.Missing))
	for _, c := range restock.Missing {
		missing = append(missing, map[string]any{
			"product_id":    c.ProductID,
			"order_item_id": c.OrderItemID,
			"quantity":      c.Quantity,
		})
		s.log.Warn("stock credit skipped, product no longer exists",
			zap.String("merchant_order_id", orderID),
			zap.String("product_id", c.ProductID),
			zap.Int("quantity", c.Quantity))
	}
	s.audit.Record(ctx, actor, audit.ActionInventoryRestockDrift, audit.TargetMerchantOrder, orderID, map[string]any{"missing": missing})
}
