package po

import (
	"encoding/json"
	"time"

	"marketplace/domain/audit"
	"marketplace/domain/shared"
	"marketplace/infrastructure/messaging"

	"github.com/google/uuid"
)

// OutboxEventPO Outbox event persistence object
// Implements transactional outbox pattern for reliable event publishing
type OutboxEventPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	AggregateID string    `gorm:"size:64;index;not null"`
	EventType   string    `gorm:"size:100;index;not null"`          // e.g. "order.paid", "after_sale.decided"
	Payload     string    `gorm:"type:json;not null"`               // JSON serialized event data
	Status      string    `gorm:"size:20;default:PENDING;not null"` // PENDING, PROCESSING, PUBLISHED, FAILED
	RetryCount  int       `gorm:"default:0;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName Specify table name
func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

// EventStatus Outbox event status enum
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

// FromDomainEvent Convert domain event to outbox persistence object
func FromDomainEvent(event shared.DomainEvent) (*OutboxEventPO, error) {
	payload, err := serializeEventToJSON(event)
	if err != nil {
		return nil, err
	}

	return &OutboxEventPO{
		ID:          uuid.New().String(),
		AggregateID: event.GetAggregateID(),
		EventType:   event.EventName(),
		Payload:     payload,
		Status:      string(EventStatusPending),
		CreatedAt:   event.OccurredOn(),
		UpdatedAt:   event.OccurredOn(),
	}, nil
}

// serializeEventToJSON 事件元数据加上结构化负载
func serializeEventToJSON(event shared.DomainEvent) (string, error) {
	eventData := map[string]any{
		"event_name":   event.EventName(),
		"aggregate_id": event.GetAggregateID(),
		"occurred_on":  event.OccurredOn(),
	}
	if pe, ok := event.(shared.PayloadEvent); ok {
		for k, v := range pe.Payload() {
			if _, reserved := eventData[k]; !reserved {
				eventData[k] = v
			}
		}
	}

	data, err := json.Marshal(eventData)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToRecord 转为 outbox worker 使用的记录
func (po *OutboxEventPO) ToRecord() messaging.OutboxRecord {
	return messaging.OutboxRecord{
		ID:          po.ID,
		AggregateID: po.AggregateID,
		EventType:   po.EventType,
		Payload:     po.Payload,
		RetryCount:  po.RetryCount,
		CreatedAt:   po.CreatedAt,
	}
}

// AuditLogPO 审计记录
type AuditLogPO struct {
	ID         string    `gorm:"primaryKey;size:64"`
	ActorID    string    `gorm:"size:64;index;not null"`
	ActorRole  string    `gorm:"size:16;not null"`
	Action     string    `gorm:"size:64;index;not null"`
	TargetType string    `gorm:"size:32;not null"`
	TargetID   string    `gorm:"size:64;index;not null"`
	Payload    string    `gorm:"type:json"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index;not null"`
}

func (AuditLogPO) TableName() string {
	return "audit_logs"
}

func FromAuditEntry(e audit.Entry) (*AuditLogPO, error) {
	payload := "{}"
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		payload = string(data)
	}
	return &AuditLogPO{
		ID:         e.ID,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		Action:     string(e.Action),
		TargetType: string(e.TargetType),
		TargetID:   e.TargetID,
		Payload:    payload,
		CreatedAt:  e.CreatedAt,
	}, nil
}
