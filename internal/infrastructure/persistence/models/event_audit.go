package models

import (
	"encoding/json"
	"time"

	"github.com/erp/platform/internal/domain/event"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventAuditModel is the persistence model for the append-only event audit
// log. Rows are never updated after insert.
type EventAuditModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type         string    `gorm:"type:varchar(200);not null;index:idx_event_audit_type"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index:idx_event_audit_tenant"`
	EntityType   string    `gorm:"type:varchar(100);index:idx_event_audit_entity,priority:1"`
	EntityID     string    `gorm:"type:varchar(100);index:idx_event_audit_entity,priority:2"`
	PayloadJSON  string    `gorm:"column:payload;type:jsonb;default:'{}'"`
	MetadataJSON string    `gorm:"column:metadata;type:jsonb;default:'{}'"`
	OccurredAt   time.Time `gorm:"not null;index"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM
func (EventAuditModel) TableName() string {
	return "event_audit_log"
}

// ToDomain converts the persistence model to a domain Event.
func (m *EventAuditModel) ToDomain() *event.Event {
	evt := &event.Event{
		ID:         m.ID,
		Type:       m.Type,
		TenantID:   m.TenantID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Payload:    make(map[string]any),
	}

	if m.PayloadJSON != "" && m.PayloadJSON != "{}" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
			modelLogger.Warn("failed to parse event payload JSON",
				zap.String("event_id", m.ID.String()),
				zap.Error(err))
		} else {
			evt.Payload = payload
		}
	}

	if m.MetadataJSON != "" && m.MetadataJSON != "{}" {
		var meta event.Metadata
		if err := json.Unmarshal([]byte(m.MetadataJSON), &meta); err != nil {
			modelLogger.Warn("failed to parse event metadata JSON",
				zap.String("event_id", m.ID.String()),
				zap.Error(err))
		} else {
			evt.Metadata = meta
		}
	}
	if evt.Metadata.Timestamp.IsZero() {
		evt.Metadata.Timestamp = m.OccurredAt
	}

	return evt
}

// FromDomain populates the persistence model from a domain Event.
func (m *EventAuditModel) FromDomain(evt *event.Event) {
	m.ID = evt.ID
	m.Type = evt.Type
	m.TenantID = evt.TenantID
	m.EntityType = evt.EntityType
	m.EntityID = evt.EntityID
	m.OccurredAt = evt.Metadata.Timestamp

	if len(evt.Payload) > 0 {
		if jsonBytes, err := json.Marshal(evt.Payload); err == nil {
			m.PayloadJSON = string(jsonBytes)
		} else {
			m.PayloadJSON = "{}"
		}
	} else {
		m.PayloadJSON = "{}"
	}

	if jsonBytes, err := json.Marshal(evt.Metadata); err == nil {
		m.MetadataJSON = string(jsonBytes)
	} else {
		m.MetadataJSON = "{}"
	}
}

// EventAuditModelFromDomain creates a new persistence model from a domain Event.
func EventAuditModelFromDomain(evt *event.Event) *EventAuditModel {
	m := &EventAuditModel{}
	m.FromDomain(evt)
	return m
}
