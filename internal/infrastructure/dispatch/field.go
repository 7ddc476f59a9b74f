package dispatch

import (
	"context"
	"fmt"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/domain/workflow"
)

// Emitter publishes a follow-up event. It is the same contract the module
// service uses for lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, evt *event.Event) error
}

// EventFieldUpdater delivers update_field actions by publishing a
// field-update request event. The kernel does not own the modules' record
// tables, so the owning module applies the write through its own
// subscription to "platform.record.update_requested".
type EventFieldUpdater struct {
	emitter Emitter
}

func NewEventFieldUpdater(emitter Emitter) *EventFieldUpdater {
	return &EventFieldUpdater{emitter: emitter}
}

// UpdateField requires "field" and "value" config entries and targets the
// entity the triggering event refers to.
func (u *EventFieldUpdater) UpdateField(ctx context.Context, config map[string]any, evt *event.Event) error {
	field, _ := config["field"].(string)
	if field == "" {
		return fmt.Errorf("update_field action requires a 'field'")
	}
	if evt.EntityType == "" || evt.EntityID == "" {
		return fmt.Errorf("update_field action needs an event with an entity reference")
	}

	update := event.New("platform.record.update_requested", evt.TenantID, evt.EntityType, evt.EntityID, map[string]any{
		"field": field,
		"value": config["value"],
	})
	update.WithCorrelation(evt.ID.String(), evt.ID.String())

	return u.emitter.Emit(ctx, update)
}

var _ workflow.FieldUpdater = (*EventFieldUpdater)(nil)
