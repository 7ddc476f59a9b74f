package event

import (
	"context"

	"github.com/google/uuid"
)

// DefaultHistoryLimit caps history queries that do not specify a limit.
const DefaultHistoryLimit = 100

// HistoryQuery filters the audit log. Zero-valued fields are not applied.
type HistoryQuery struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   string
	EventType  string
	Limit      int
}

// AuditStore is the durable, append-only event log. Append is best-effort
// from the bus's point of view: a failing store must never fail the
// business action that produced the event.
type AuditStore interface {
	Append(ctx context.Context, evt *Event) error
	// Query returns matching events, newest first
	Query(ctx context.Context, q HistoryQuery) ([]*Event, error)
}

// Transport is the distributed pub/sub channel connecting instances.
// Publish is best-effort; Subscribe is called once at start-up and invokes
// onMessage for every message until ctx is cancelled.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, onMessage func(payload []byte)) error
	Close() error
}
