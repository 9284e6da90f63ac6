package cmd

import (
	"context"
	"errors"
	"fmt"

	"marketplace/api"
	"marketplace/api/catalog"
	"marketplace/api/health"
	apiorder "marketplace/api/order"
	appaudit "marketplace/application/audit"
	catalogapp "marketplace/application/catalog"
	orderapp "marketplace/application/order"
	"marketplace/config"
	"marketplace/domain/aftersale"
	"marketplace/domain/audit"
	"marketplace/domain/cancellation"
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"
	"marketplace/infrastructure/cache"
	"marketplace/infrastructure/messaging"
	"marketplace/infrastructure/payment"
	"marketplace/infrastructure/persistence/mocks"
	"marketplace/infrastructure/persistence/mysql"
	"marketplace/infrastructure/persistence/retry"
	"marketplace/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container 组装好的依赖。HTTP 进程和 worker 进程共用同一套构建逻辑。
type Container struct {
	Config *config.Config

	DB    *gorm.DB      // memory 模式下为 nil
	Redis *redis.Client // 未启用时为 nil

	Outbox  messaging.OutboxSource
	Gateway *payment.SimulatedGateway

	OrderService   *orderapp.ApplicationService
	CatalogService *catalogapp.ApplicationService

	healthChecks map[string]health.CheckFunc
	closers      []func() error
}

type repositories struct {
	uow            shared.UnitOfWorkFactory
	orders         order.Repository
	cancelRequests cancellation.Repository
	afterSales     aftersale.Repository
	inventory      inventory.Repository
	cart           cart.Repository
	audit          audit.Repository
	outbox         messaging.OutboxSource
}

// Build 按配置选择存储实现并创建应用服务
func Build(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg, healthChecks: map[string]health.CheckFunc{}}
	log := logger.With(zap.String("component", "builder"))

	var repos repositories
	switch cfg.Database.Type {
	case "mysql":
		db, err := NewMySQLConfig(cfg).Connect()
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.closers = append(c.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		if err := mysql.Ping(context.Background(), db); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to ping MySQL: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := mysql.Migrate(db); err != nil {
				_ = c.Close()
				return nil, err
			}
		}
		c.healthChecks["database"] = func(ctx context.Context) error { return mysql.Ping(ctx, db) }
		repos = mysqlRepositories(db, retry.FromAppConfig(cfg))
		log.Info("Using MySQL/GORM persistence layer", zap.String("database", cfg.Database.Database))
	default:
		repos = memoryRepositories(mocks.NewStore())
		log.Info("Using in-memory persistence layer")
	}
	c.Outbox = repos.outbox

	idempotency, err := c.buildIdempotencyStore()
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	majorEvents, closeMajor, err := logger.NewMajorEventsLogger(cfg.Audit.MajorEventsFile)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeMajor)

	clock := shared.Clock(shared.SystemClock)
	recorder := appaudit.NewRecorder(appaudit.RecorderDeps{
		Repository:  repos.audit,
		Logger:      logger.With(zap.String("component", "audit")),
		MajorEvents: majorEvents,
		Clock:       clock,
	})
	c.Gateway = payment.NewSimulatedGateway(logger.With(zap.String("component", "payment")))

	c.OrderService = orderapp.NewApplicationService(orderapp.Deps{
		UnitOfWork:     repos.uow,
		Orders:         repos.orders,
		CancelRequests: repos.cancelRequests,
		AfterSales:     repos.afterSales,
		Inventory:      repos.inventory,
		Cart:           repos.cart,
		Gateway:        c.Gateway,
		Audit:          recorder,
		Idempotency:    idempotency,
		Clock:          clock,
		CancelWindow:   cfg.Order.CancelWindow,
		Logger:         logger.With(zap.String("component", "application")),
	})
	c.CatalogService = catalogapp.NewApplicationService(catalogapp.Deps{
		UnitOfWork: repos.uow,
		Inventory:  repos.inventory,
		Cart:       repos.cart,
		Audit:      recorder,
		Clock:      clock,
		Logger:     logger.With(zap.String("component", "application")),
	})

	return c, nil
}

func mysqlRepositories(db *gorm.DB, retryConfig retry.Config) repositories {
	return repositories{
		uow:            mysql.NewUnitOfWorkFactory(db, retryConfig, logger.With(zap.String("component", "uow"))),
		orders:         mysql.NewOrderRepository(db),
		cancelRequests: mysql.NewCancelRequestRepository(db),
		afterSales:     mysql.NewAfterSaleRepository(db),
		inventory:      mysql.NewInventoryRepository(db),
		cart:           mysql.NewCartRepository(db),
		audit:          mysql.NewAuditRepository(db),
		outbox:         mysql.NewOutboxRepository(db),
	}
}

func memoryRepositories(store *mocks.Store) repositories {
	return repositories{
		uow:            mocks.NewMockUnitOfWorkFactory(store),
		orders:         mocks.NewMockOrderRepository(store),
		cancelRequests: mocks.NewMockCancelRequestRepository(store),
		afterSales:     mocks.NewMockAfterSaleRepository(store),
		inventory:      mocks.NewMockInventoryRepository(store),
		cart:           mocks.NewMockCartRepository(store),
		audit:          mocks.NewMockAuditRepository(store),
		outbox:         mocks.NewMockOutbox(store),
	}
}

// buildIdempotencyStore Redis 启用时跨实例共享幂等键，否则退回进程内存储
func (c *Container) buildIdempotencyStore() (orderapp.IdempotencyStore, error) {
	cfg := c.Config.Redis
	if !cfg.Enabled {
		return cache.NewMemoryIdempotencyStore(cfg.IdempotencyTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store := cache.NewRedisIdempotencyStore(client, cfg.IdempotencyTTL)
	if err := store.Ping(context.Background()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)
	c.healthChecks["redis"] = store.Ping
	return store, nil
}

// NewPublisher 根据 worker.publisher 选择 outbox 投递目标
func (c *Container) NewPublisher() (messaging.Publisher, error) {
	switch c.Config.Worker.Publisher {
	case "kafka":
		p, err := messaging.NewKafkaPublisher(c.Config.Kafka.Brokers, c.Config.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, p.Close)
		return p, nil
	default:
		return messaging.NewLoggingPublisher(logger.With(zap.String("component", "outbox"))), nil
	}
}

// NewRouter 创建 HTTP 路由
func (c *Container) NewRouter() *api.Router {
	router := api.NewRouter(
		c.Config,
		health.NewController(c.Config, c.healthChecks),
		apiorder.NewController(c.OrderService),
		apiorder.NewMerchantController(c.OrderService),
		apiorder.NewAdminController(c.OrderService),
		catalog.NewController(c.CatalogService),
	)
	router.SetupRoutes()
	return router
}

// Close 按创建的逆序释放资源
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
