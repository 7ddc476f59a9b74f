// Package workflow defines tenant-configured automation triggers: rules
// that run actions when a matching domain event occurs. Trigger storage is
// owned by a collaborator; the kernel evaluates them.
package workflow

import (
	"context"
	"time"

	"github.com/erp/platform/internal/domain/event"
	"github.com/google/uuid"
)

// ActionKind is the tagged variant of a trigger action.
type ActionKind string

const (
	ActionSendEmail   ActionKind = "send_email"
	ActionSendSMS     ActionKind = "send_sms"
	ActionWebhook     ActionKind = "webhook"
	ActionUpdateField ActionKind = "update_field"
)

// ActionConfig is one configured action of a trigger.
type ActionConfig struct {
	Kind   ActionKind     `json:"kind"`
	Config map[string]any `json:"config"`
}

// Trigger is a tenant-scoped automation rule bound to an event type.
type Trigger struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	Name       string         `json:"name"`
	EventType  string         `json:"event_type"`
	Enabled    bool           `json:"enabled"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Actions    []ActionConfig `json:"actions"`
}

// ExecutionStatus is the recorded outcome of one trigger run.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// Execution records the outcome of evaluating one trigger for one event.
type Execution struct {
	ID         uuid.UUID       `json:"id"`
	TriggerID  uuid.UUID       `json:"trigger_id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	EventID    uuid.UUID       `json:"event_id"`
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// NewExecution creates an execution record for a trigger/event pair.
func NewExecution(trigger *Trigger, eventID uuid.UUID, status ExecutionStatus, errDetail string) *Execution {
	return &Execution{
		ID:         uuid.New(),
		TriggerID:  trigger.ID,
		TenantID:   trigger.TenantID,
		EventID:    eventID,
		Status:     status,
		Error:      errDetail,
		ExecutedAt: time.Now(),
	}
}

// Repository is the workflow collaborator's storage contract.
type Repository interface {
	FindEnabledTriggers(ctx context.Context, tenantID uuid.UUID, eventType string) ([]*Trigger, error)
	RecordExecution(ctx context.Context, execution *Execution) error
}

// ConditionEvaluator decides whether a trigger's conditions hold for an
// event. It is an injected predicate, not a rule DSL.
type ConditionEvaluator func(ctx context.Context, trigger *Trigger, evt *event.Event) (bool, error)

// AlwaysTrue is the default evaluator: a trigger with no conditions fires
// unconditionally.
func AlwaysTrue(_ context.Context, _ *Trigger, _ *event.Event) (bool, error) {
	return true, nil
}

// EmailSender delivers a send_email action.
type EmailSender interface {
	SendEmail(ctx context.Context, config map[string]any, evt *event.Event) error
}

// SMSSender delivers a send_sms action.
type SMSSender interface {
	SendSMS(ctx context.Context, config map[string]any, evt *event.Event) error
}

// WebhookCaller delivers a webhook action.
type WebhookCaller interface {
	CallWebhook(ctx context.Context, config map[string]any, evt *event.Event) error
}

// FieldUpdater delivers an update_field action.
type FieldUpdater interface {
	UpdateField(ctx context.Context, config map[string]any, evt *event.Event) error
}
