package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OutboxSource outbox 表的读取与状态推进。
// MarkEventProcessing 必须是条件更新（只从 PENDING 翻转），多个 worker 实例并存时靠它避免重复投递。
type OutboxSource interface {
	GetPendingEvents(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkEventProcessing(ctx context.Context, eventID string) error
	MarkEventPublished(ctx context.Context, eventID string) error
	MarkEventFailed(ctx context.Context, eventID string, maxRetries int) error
}

type OutboxWorker struct {
	source       OutboxSource
	publisher    Publisher
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	log          *zap.Logger
}

func NewOutboxWorker(
	source OutboxSource,
	publisher Publisher,
	pollInterval time.Duration,
	batchSize int,
	maxRetries int,
	log *zap.Logger,
) (*OutboxWorker, error) {
	if source == nil {
		return nil, fmt.Errorf("outbox source is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if maxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &OutboxWorker{
		source:       source,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		log:          log.Named("outbox"),
	}, nil
}

// Run 轮询直到 ctx 取消
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.log.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch 处理一批待投递事件，返回成功投递的数量
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	events, err := w.source.GetPendingEvents(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := w.source.MarkEventProcessing(ctx, event.ID); err != nil {
			w.log.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		if err := w.publisher.Publish(ctx, event); err != nil {
			w.log.Warn("Outbox publish failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Int("retry_count", event.RetryCount),
				zap.Error(err),
			)
			if failErr := w.source.MarkEventFailed(ctx, event.ID, w.maxRetries); failErr != nil {
				w.log.Error("Failed to mark outbox event as failed",
					zap.String("event_id", event.ID),
					zap.Error(failErr),
				)
			}
			continue
		}

		if err := w.source.MarkEventPublished(ctx, event.ID); err != nil {
			w.log.Error("Failed to mark outbox event as published",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	return published, nil
}
