// Package event defines the domain event model and the collaborator
// contracts of the event bus: subscriptions, the audit store and the
// distributed transport.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Metadata carries the context an event was produced in.
type Metadata struct {
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Version       int            `json:"version"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	CausationID   string         `json:"causation_id,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
}

// Event is an immutable record of something that happened, identified by a
// dot-namespaced type such as "order.created".
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	Metadata   Metadata       `json:"metadata"`
}

// New creates an event with a fresh ID and timestamp.
func New(eventType string, tenantID uuid.UUID, entityType, entityID string, payload map[string]any) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		Metadata: Metadata{
			Timestamp: time.Now(),
			Version:   1,
		},
	}
}

// WithUser returns the event with the acting user recorded in metadata.
func (e *Event) WithUser(userID uuid.UUID) *Event {
	e.Metadata.UserID = &userID
	return e
}

// WithCorrelation returns the event with correlation/causation IDs set.
func (e *Event) WithCorrelation(correlationID, causationID string) *Event {
	e.Metadata.CorrelationID = correlationID
	e.Metadata.CausationID = causationID
	return e
}

// Encode serializes the event for the distributed channel and audit store.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode deserializes an event received from the distributed channel.
func Decode(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
