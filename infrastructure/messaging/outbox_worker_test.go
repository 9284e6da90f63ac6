package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu         sync.Mutex
	pending    []OutboxRecord
	locked     map[string]bool
	published  []string
	failed     map[string]int
	contention map[string]bool
}

func newFakeSource(records ...OutboxRecord) *fakeSource {
	return &fakeSource{
		pending:    records,
		locked:     map[string]bool{},
		failed:     map[string]int{},
		contention: map[string]bool{},
	}
}

func (s *fakeSource) GetPendingEvents(ctx context.Context, limit int) ([]OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxRecord
	for _, r := range s.pending {
		if s.locked[r.ID] {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSource) MarkEventProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contention[id] || s.locked[id] {
		return errors.New("event already claimed")
	}
	s.locked[id] = true
	return nil
}

func (s *fakeSource) MarkEventPublished(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, id)
	return nil
}

func (s *fakeSource) MarkEventFailed(ctx context.Context, id string, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id]++
	if s.failed[id] < maxRetries {
		delete(s.locked, id)
	}
	return nil
}

func (s *fakeSource) publishedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.published...)
}

type fakePublisher struct {
	mu   sync.Mutex
	fail map[string]bool
	seen []string
}

func (p *fakePublisher) Publish(ctx context.Context, record OutboxRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, record.ID)
	if p.fail[record.ID] {
		return errors.New("broker unavailable")
	}
	return nil
}

func records(ids ...string) []OutboxRecord {
	out := make([]OutboxRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, OutboxRecord{ID: id, AggregateID: "o-" + id, EventType: "merchant_order.paid", Payload: `{"status":"PAID"}`})
	}
	return out
}

func TestNewOutboxWorker_Validation(t *testing.T) {
	src, pub := newFakeSource(), &fakePublisher{}
	_, err := NewOutboxWorker(nil, pub, time.Second, 10, 3, nil)
	assert.Error(t, err)
	_, err = NewOutboxWorker(src, nil, time.Second, 10, 3, nil)
	assert.Error(t, err)
	_, err = NewOutboxWorker(src, pub, 0, 10, 3, nil)
	assert.Error(t, err)
	_, err = NewOutboxWorker(src, pub, time.Second, 0, 3, nil)
	assert.Error(t, err)
	_, err = NewOutboxWorker(src, pub, time.Second, 10, 0, nil)
	assert.Error(t, err)
}

func TestProcessBatch(t *testing.T) {
	src := newFakeSource(records("e1", "e2", "e3", "e4")...)
	src.contention["e4"] = true
	pub := &fakePublisher{fail: map[string]bool{"e2": true}}
	core, logs := observer.New(zapcore.DebugLevel)

	w, err := NewOutboxWorker(src, pub, time.Second, 10, 2, zap.New(core))
	require.NoError(t, err)

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"e1", "e3"}, src.publishedIDs())
	assert.Equal(t, 1, src.failed["e2"])
	assert.Equal(t, 1, logs.FilterMessage("Outbox publish failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Skip outbox event due to lock contention").Len())

	// 第二轮：e2 仍失败并达到重试上限
	n, err = w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, src.failed["e2"])

	n, err = w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, src.failed["e2"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := newFakeSource(records("e1")...)
	w, err := NewOutboxWorker(src, &fakePublisher{}, 5*time.Millisecond, 10, 3, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(src.publishedIDs()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "orders")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw, topic: "orders"}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := OutboxRecord{ID: "e1", AggregateID: "o-1", EventType: "merchant_order.cancelled", Payload: `{"by":"CUSTOMER"}`, CreatedAt: at}

	require.NoError(t, p.Publish(context.Background(), rec))
	require.Len(t, fw.msgs, 1)
	msg := fw.msgs[0]
	assert.Equal(t, "o-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("merchant_order.cancelled")})

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "e1", env.ID)
	assert.JSONEq(t, `{"by":"CUSTOMER"}`, string(env.Payload))

	fw.err = errors.New("leader not available")
	assert.ErrorContains(t, p.Publish(context.Background(), rec), "write to topic orders")

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestNewEnvelope_WrapsInvalidPayload(t *testing.T) {
	env := NewEnvelope(OutboxRecord{ID: "e1", Payload: "not json"})
	assert.JSONEq(t, `"not json"`, string(env.Payload))
}

func TestLoggingPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLoggingPublisher(zap.New(core))
	require.NoError(t, p.Publish(context.Background(), records("e1")[0]))
	entries := logs.FilterMessage("Outbox event published").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "merchant_order.paid", entries[0].ContextMap()["event_type"])
}
