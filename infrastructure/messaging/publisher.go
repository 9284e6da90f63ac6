// Package messaging outbox 中继：把事务内写入 outbox 的领域事件投递到外部消息系统
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OutboxRecord 一条待投递的 outbox 事件
type OutboxRecord struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     string // JSON
	RetryCount  int
	CreatedAt   time.Time
}

// Publisher 投递单条事件；返回错误时由 worker 记录重试次数
type Publisher interface {
	Publish(ctx context.Context, record OutboxRecord) error
}

// Envelope 写入 Kafka 的消息体
type Envelope struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope 由 outbox 记录构造消息体；非法 JSON 负载按字符串包装
func NewEnvelope(record OutboxRecord) Envelope {
	payload := json.RawMessage(record.Payload)
	if !json.Valid(payload) {
		quoted, _ := json.Marshal(record.Payload)
		payload = quoted
	}
	return Envelope{
		ID:          record.ID,
		AggregateID: record.AggregateID,
		EventType:   record.EventType,
		OccurredAt:  record.CreatedAt,
		Payload:     payload,
	}
}

// ============================================================================
// Logging publisher
// ============================================================================

// LoggingPublisher 只打日志，worker.publisher=logging 时使用
type LoggingPublisher struct {
	log *zap.Logger
}

func NewLoggingPublisher(log *zap.Logger) *LoggingPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingPublisher{log: log}
}

func (p *LoggingPublisher) Publish(ctx context.Context, record OutboxRecord) error {
	p.log.Info("Outbox event published",
		zap.String("event_id", record.ID),
		zap.String("aggregate_id", record.AggregateID),
		zap.String("event_type", record.EventType),
		zap.String("payload", record.Payload),
	)
	return nil
}

// ============================================================================
// Kafka publisher
// ============================================================================

// messageWriter kafka.Writer 中用到的部分，测试可替换
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 同步写入 Kafka：outbox 只有在 broker 确认后才能标记为已发布，
// 所以不使用 Async 模式。消息 key 为聚合 ID，同一订单的事件落在同一分区保持顺序。
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, record OutboxRecord) error {
	value, err := json.Marshal(NewEnvelope(record))
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(record.AggregateID),
		Value: value,
		Time:  record.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(record.EventType)},
			{Key: "event_id", Value: []byte(record.ID)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to topic %s: %w", p.topic, err)
	}
	return nil
}

// Close 刷新并关闭底层 writer
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

var (
	_ Publisher = (*LoggingPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
)
