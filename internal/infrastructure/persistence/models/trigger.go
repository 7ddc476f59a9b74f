package models

import (
	"encoding/json"
	"time"

	"github.com/erp/platform/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerModel is the persistence model for tenant automation triggers.
type TriggerModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index:idx_trigger_lookup,priority:1"`
	Name           string    `gorm:"type:varchar(200);not null"`
	EventType      string    `gorm:"type:varchar(200);not null;index:idx_trigger_lookup,priority:2"`
	Enabled        bool      `gorm:"not null;index:idx_trigger_lookup,priority:3"`
	ConditionsJSON string    `gorm:"column:conditions;type:jsonb;default:'{}'"`
	ActionsJSON    string    `gorm:"column:actions;type:jsonb;default:'[]'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (TriggerModel) TableName() string {
	return "workflow_triggers"
}

// ToDomain converts the persistence model to a domain Trigger.
func (m *TriggerModel) ToDomain() *workflow.Trigger {
	t := &workflow.Trigger{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		EventType: m.EventType,
		Enabled:   m.Enabled,
		Actions:   make([]workflow.ActionConfig, 0),
	}

	if m.ConditionsJSON != "" && m.ConditionsJSON != "{}" {
		var conditions map[string]any
		if err := json.Unmarshal([]byte(m.ConditionsJSON), &conditions); err != nil {
			modelLogger.Warn("failed to parse trigger conditions JSON",
				zap.String("trigger_id", m.ID.String()),
				zap.Error(err))
		} else {
			t.Conditions = conditions
		}
	}

	if m.ActionsJSON != "" && m.ActionsJSON != "[]" {
		var actions []workflow.ActionConfig
		if err := json.Unmarshal([]byte(m.ActionsJSON), &actions); err != nil {
			modelLogger.Warn("failed to parse trigger actions JSON",
				zap.String("trigger_id", m.ID.String()),
				zap.Error(err))
		} else {
			t.Actions = actions
		}
	}

	return t
}

// FromDomain populates the persistence model from a domain Trigger.
func (m *TriggerModel) FromDomain(t *workflow.Trigger) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.Name = t.Name
	m.EventType = t.EventType
	m.Enabled = t.Enabled

	if len(t.Conditions) > 0 {
		if jsonBytes, err := json.Marshal(t.Conditions); err == nil {
			m.ConditionsJSON = string(jsonBytes)
		} else {
			m.ConditionsJSON = "{}"
		}
	} else {
		m.ConditionsJSON = "{}"
	}

	if len(t.Actions) > 0 {
		if jsonBytes, err := json.Marshal(t.Actions); err == nil {
			m.ActionsJSON = string(jsonBytes)
		} else {
			m.ActionsJSON = "[]"
		}
	} else {
		m.ActionsJSON = "[]"
	}
}

// TriggerModelFromDomain creates a new persistence model from a domain Trigger.
func TriggerModelFromDomain(t *workflow.Trigger) *TriggerModel {
	m := &TriggerModel{}
	m.FromDomain(t)
	return m
}

// TriggerExecutionModel is the persistence model for trigger execution
// records. Rows are append-only.
type TriggerExecutionModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primaryKey"`
	TriggerID  uuid.UUID                `gorm:"type:uuid;not null;index"`
	TenantID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	EventID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status     workflow.ExecutionStatus `gorm:"type:varchar(20);not null"`
	Error      string                   `gorm:"type:text"`
	ExecutedAt time.Time                `gorm:"not null;index"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (TriggerExecutionModel) TableName() string {
	return "workflow_trigger_executions"
}

// ToDomain converts the persistence model to a domain Execution.
func (m *TriggerExecutionModel) ToDomain() *workflow.Execution {
	return &workflow.Execution{
		ID:         m.ID,
		TriggerID:  m.TriggerID,
		TenantID:   m.TenantID,
		EventID:    m.EventID,
		Status:     m.Status,
		Error:      m.Error,
		ExecutedAt: m.ExecutedAt,
	}
}

// FromDomain populates the persistence model from a domain Execution.
func (m *TriggerExecutionModel) FromDomain(e *workflow.Execution) {
	m.ID = e.ID
	m.TriggerID = e.TriggerID
	m.TenantID = e.TenantID
	m.EventID = e.EventID
	m.Status = e.Status
	m.Error = e.Error
	m.ExecutedAt = e.ExecutedAt
}

// TriggerExecutionModelFromDomain creates a new persistence model from a
// domain Execution.
func TriggerExecutionModelFromDomain(e *workflow.Execution) *TriggerExecutionModel {
	m := &TriggerExecutionModel{}
	m.FromDomain(e)
	return m
}
