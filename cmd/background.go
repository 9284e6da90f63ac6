package cmd

import (
	"context"
	"errors"
	"time"

	orderapp "marketplace/application/order"
	"marketplace/infrastructure/messaging"
	"marketplace/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExpirySweeper 定时主动取消过期未支付订单。惰性过期保证正确性，扫描只让库存更早回补。
type ExpirySweeper struct {
	service   *orderapp.ApplicationService
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewExpirySweeper(service *orderapp.ApplicationService, interval time.Duration, batchSize int, log *zap.Logger) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpirySweeper{service: service, interval: interval, batchSize: batchSize, log: log.Named("expiry_sweeper")}
}

// Run 轮询直到 ctx 取消。一轮取满一批时立即继续下一轮。
func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := s.service.SweepExpired(ctx, s.batchSize)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						s.log.Error("Expiry sweep failed", zap.Error(err))
					}
					break
				}
				if n > 0 {
					s.log.Info("Expired orders cancelled", zap.Int("count", n))
				}
				if n < s.batchSize {
					break
				}
			}
		}
	}
}

// RunBackground 运行 outbox 投递与过期扫描，任一任务返回非取消错误时整体退出
func RunBackground(ctx context.Context, c *Container) error {
	cfg := c.Config
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Worker.Enabled {
		publisher, err := c.NewPublisher()
		if err != nil {
			return err
		}
		worker, err := messaging.NewOutboxWorker(
			c.Outbox,
			publisher,
			cfg.Worker.PollInterval,
			cfg.Worker.BatchSize,
			cfg.Worker.MaxRetries,
			logger.Get(),
		)
		if err != nil {
			return err
		}
		logger.Info("Outbox worker started",
			zap.String("publisher", cfg.Worker.Publisher),
			zap.Duration("poll_interval", cfg.Worker.PollInterval),
			zap.Int("batch_size", cfg.Worker.BatchSize),
			zap.Int("max_retries", cfg.Worker.MaxRetries))
		g.Go(func() error { return ignoreCanceled(worker.Run(ctx)) })
	}

	if cfg.Order.ExpirySweep.Enabled {
		sweeper := NewExpirySweeper(c.OrderService, cfg.Order.ExpirySweep.Interval, cfg.Order.ExpirySweep.BatchSize, logger.Get())
		logger.Info("Expiry sweeper started",
			zap.Duration("interval", cfg.Order.ExpirySweep.Interval),
			zap.Int("batch_size", cfg.Order.ExpirySweep.BatchSize))
		g.Go(func() error { return ignoreCanceled(sweeper.Run(ctx)) })
	}

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
