package mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace/infrastructure/messaging"
)

const (
	OutboxPending    = "PENDING"
	OutboxProcessing = "PROCESSING"
	OutboxPublished  = "PUBLISHED"
	OutboxFailed     = "FAILED"
)

// MockOutbox 内存 outbox，供 memory 模式下的 outbox worker 使用
type MockOutbox struct {
	store *Store
}

func NewMockOutbox(store *Store) *MockOutbox {
	return &MockOutbox{store: store}
}

func (o *MockOutbox) GetPendingEvents(ctx context.Context, limit int) ([]messaging.OutboxRecord, error) {
	var out []messaging.OutboxRecord
	var err error
	o.store.with(ctx, func() {
		for _, e := range o.store.outbox {
			if len(out) >= limit {
				return
			}
			if e.Status != OutboxPending {
				continue
			}
			payload, marshalErr := json.Marshal(e.Payload)
			if marshalErr != nil {
				err = marshalErr
				return
			}
			out = append(out, messaging.OutboxRecord{
				ID:          e.ID,
				AggregateID: e.AggregateID,
				EventType:   e.EventType,
				Payload:     string(payload),
				RetryCount:  e.RetryCount,
				CreatedAt:   e.OccurredAt,
			})
		}
	})
	return out, err
}

func (o *MockOutbox) MarkEventProcessing(ctx context.Context, eventID string) error {
	return o.update(ctx, eventID, func(e *OutboxEvent) error {
		if e.Status != OutboxPending {
			return fmt.Errorf("event not found or already being processed: %s", eventID)
		}
		e.Status = OutboxProcessing
		return nil
	})
}

func (o *MockOutbox) MarkEventPublished(ctx context.Context, eventID string) error {
	return o.update(ctx, eventID, func(e *OutboxEvent) error {
		e.Status = OutboxPublished
		return nil
	})
}

func (o *MockOutbox) MarkEventFailed(ctx context.Context, eventID string, maxRetries int) error {
	return o.update(ctx, eventID, func(e *OutboxEvent) error {
		e.RetryCount++
		e.Status = OutboxFailed
		if e.RetryCount < maxRetries {
			e.Status = OutboxPending
		}
		return nil
	})
}

func (o *MockOutbox) update(ctx context.Context, eventID string, fn func(e *OutboxEvent) error) error {
	var err error
	o.store.with(ctx, func() {
		for i := range o.store.outbox {
			if o.store.outbox[i].ID == eventID {
				err = fn(&o.store.outbox[i])
				return
			}
		}
		err = fmt.Errorf("event not found: %s", eventID)
	})
	return err
}

var _ messaging.OutboxSource = (*MockOutbox)(nil)
