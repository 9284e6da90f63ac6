package shared

import (
	"fmt"
	"time"
)

// DomainEvent 领域事件接口
// 聚合根记录事件，UnitOfWork 在同一事务内把事件写入 outbox 表
type DomainEvent interface {
	EventName() string
	OccurredOn() time.Time
	GetAggregateID() string
}

// PayloadEvent 能提供结构化负载的事件，outbox 序列化时优先使用
type PayloadEvent interface {
	DomainEvent
	Payload() map[string]any
}

// Event 通用领域事件实现，各子域通过 NewEvent 构造具名事件
type Event struct {
	name        string
	aggregateID string
	occurredOn  time.Time
	payload     map[string]any
}

// NewEvent 创建领域事件
func NewEvent(name, aggregateID string, occurredOn time.Time, payload map[string]any) *Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Event{
		name:        name,
		aggregateID: aggregateID,
		occurredOn:  occurredOn,
		payload:     payload,
	}
}

func (e *Event) EventName() string       { return e.name }
func (e *Event) OccurredOn() time.Time   { return e.occurredOn }
func (e *Event) GetAggregateID() string  { return e.aggregateID }
func (e *Event) Payload() map[string]any { return e.payload }

// ValidateEvent 校验事件的必要字段
func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}
	if event.GetAggregateID() == "" {
		return fmt.Errorf("aggregate ID cannot be empty")
	}
	if event.OccurredOn().IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}
	return nil
}
