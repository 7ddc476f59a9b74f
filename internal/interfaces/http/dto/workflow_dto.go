package dto

import (
	"github.com/erp/platform/internal/domain/workflow"
	"github.com/google/uuid"
)

// TriggerActionRequest is one configured action of a trigger.
type TriggerActionRequest struct {
	Kind   string         `json:"kind" binding:"required,oneof=send_email send_sms webhook update_field"`
	Config map[string]any `json:"config"`
}

// SaveTriggerRequest creates or replaces an automation trigger. Enabled
// defaults to true when omitted.
type SaveTriggerRequest struct {
	Name       string                 `json:"name" binding:"required"`
	EventType  string                 `json:"event_type" binding:"required,eventtype"`
	Enabled    *bool                  `json:"enabled"`
	Conditions map[string]any         `json:"conditions"`
	Actions    []TriggerActionRequest `json:"actions" binding:"required,min=1,dive"`
}

// ToDomain converts the request into a trigger owned by the given tenant.
func (r *SaveTriggerRequest) ToDomain(tenantID uuid.UUID) *workflow.Trigger {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	actions := make([]workflow.ActionConfig, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, workflow.ActionConfig{
			Kind:   workflow.ActionKind(a.Kind),
			Config: a.Config,
		})
	}

	return &workflow.Trigger{
		TenantID:   tenantID,
		Name:       r.Name,
		EventType:  r.EventType,
		Enabled:    enabled,
		Conditions: r.Conditions,
		Actions:    actions,
	}
}

// ExecutionListRequest bounds an execution history page.
type ExecutionListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}
