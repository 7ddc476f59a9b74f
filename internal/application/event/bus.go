// Package event implements the platform event bus: publishing a domain
// event fans out to the audit log, local subscribers, the distributed
// channel and the workflow automation engine, each an isolated failure
// domain.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/erp/platform/internal/domain/event"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// dedupTTL bounds how long an event ID is remembered for remote
// de-duplication.
const dedupTTL = 24 * time.Hour

// TriggerEvaluator runs workflow triggers for an event. Failures are the
// evaluator's to isolate; the bus only hands the event over.
type TriggerEvaluator interface {
	EvaluateTriggers(ctx context.Context, evt *event.Event)
}

// Deduplicator remembers processed event IDs so at-least-once delivery on
// the distributed channel does not double-fire local subscribers. The bus
// scopes every key to its own instance ID: the marker store is shared by
// all instances, and each of them must dispatch a fanned-out event once.
type Deduplicator interface {
	// MarkProcessed returns true if the event was newly marked
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// wireMessage is the envelope published on the distributed channel.
// Origin lets an instance skip messages it published itself.
type wireMessage struct {
	Origin string       `json:"origin"`
	Event  *event.Event `json:"event"`
}

// Bus publishes domain events. Emit performs, in order: audit append,
// synchronous local dispatch, distributed publish, workflow trigger
// evaluation. Only local dispatch is guaranteed to have finished when Emit
// returns; the other three are best-effort and never fail the caller.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []*event.Subscription

	audit     event.AuditStore
	transport event.Transport
	triggers  TriggerEvaluator
	dedup     Deduplicator

	channel    string
	instanceID string
	logger     *zap.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithTransport attaches the distributed pub/sub channel.
func WithTransport(transport event.Transport, channel string) Option {
	return func(b *Bus) {
		b.transport = transport
		b.channel = channel
	}
}

// WithTriggerEvaluator attaches the workflow automation engine.
func WithTriggerEvaluator(triggers TriggerEvaluator) Option {
	return func(b *Bus) {
		b.triggers = triggers
	}
}

// WithDeduplicator attaches a processed-event marker for remote messages.
func WithDeduplicator(dedup Deduplicator) Option {
	return func(b *Bus) {
		b.dedup = dedup
	}
}

// NewBus creates an event bus. The audit store is required; transport,
// trigger evaluation and de-duplication are optional collaborators.
func NewBus(audit event.AuditStore, logger *zap.Logger, opts ...Option) *Bus {
	b := &Bus{
		subscriptions: make([]*event.Subscription, 0),
		audit:         audit,
		channel:       "platform:events",
		instanceID:    uuid.NewString(),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a local handler for an event type pattern: an exact
// type, a namespace wildcard like "order.*", or "*" for everything.
// Dispatch order is subscription order.
func (b *Bus) Subscribe(name, pattern string, handler event.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions = append(b.subscriptions, &event.Subscription{
		Name:    name,
		Pattern: event.ParsePattern(pattern),
		Handler: handler,
	})
	b.logger.Debug("subscriber registered",
		zap.String("subscriber", name),
		zap.String("pattern", pattern),
	)
}

// SetTriggerEvaluator attaches the workflow engine after construction.
// The engine needs the bus for update_field actions, so the two are wired
// in two steps.
func (b *Bus) SetTriggerEvaluator(triggers TriggerEvaluator) {
	b.triggers = triggers
}

// Emit publishes a domain event. All four side effects are attempted
// unconditionally; a failure in one never short-circuits the others, and
// only a panic escaping local dispatch could surface to the caller.
func (b *Bus) Emit(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("cannot emit nil event")
	}

	ctx, span := otel.Tracer("platform/event-bus").Start(ctx, "event.emit",
		oteltrace.WithAttributes(
			attribute.String("event.type", evt.Type),
			attribute.String("event.id", evt.ID.String()),
			attribute.String("tenant.id", evt.TenantID.String()),
		))
	defer span.End()

	// 1. Audit persist: publication must not fail on a dead audit store
	if err := b.audit.Append(ctx, evt); err != nil {
		b.logger.Error("audit append failed",
			zap.String("event_type", evt.Type),
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
	}

	// 2. Local dispatch, synchronous
	b.dispatchLocal(ctx, evt)

	// 3. Distributed publish
	b.publishRemote(ctx, evt)

	// 4. Workflow trigger evaluation
	if b.triggers != nil {
		b.triggers.EvaluateTriggers(ctx, evt)
	}

	return nil
}

// EmitNew builds an event from its parts and emits it.
func (b *Bus) EmitNew(ctx context.Context, eventType string, tenantID uuid.UUID, entityType, entityID string, payload map[string]any) (*event.Event, error) {
	evt := event.New(eventType, tenantID, entityType, entityID, payload)
	if err := b.Emit(ctx, evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// GetHistory reads the audit log, newest first. A missing limit defaults
// to DefaultHistoryLimit.
func (b *Bus) GetHistory(ctx context.Context, q event.HistoryQuery) ([]*event.Event, error) {
	if q.Limit <= 0 {
		q.Limit = event.DefaultHistoryLimit
	}
	return b.audit.Query(ctx, q)
}

// Start subscribes to the distributed channel. Messages from other
// instances re-enter local dispatch exactly like locally emitted events.
func (b *Bus) Start(ctx context.Context) error {
	if b.transport == nil {
		b.logger.Info("event bus started without distributed transport")
		return nil
	}
	if err := b.transport.Subscribe(ctx, b.channel, func(payload []byte) {
		b.onRemoteMessage(ctx, payload)
	}); err != nil {
		return fmt.Errorf("subscribing to channel '%s': %w", b.channel, err)
	}
	b.logger.Info("event bus started",
		zap.String("channel", b.channel),
		zap.String("instance_id", b.instanceID),
	)
	return nil
}

// Stop closes the distributed transport.
func (b *Bus) Stop(_ context.Context) error {
	if b.transport == nil {
		return nil
	}
	return b.transport.Close()
}

// dispatchLocal notifies every matching subscriber in registration order.
// One subscriber failing or panicking never prevents the others from
// running.
func (b *Bus) dispatchLocal(ctx context.Context, evt *event.Event) {
	b.mu.RLock()
	subscriptions := append([]*event.Subscription(nil), b.subscriptions...)
	b.mu.RUnlock()

	for _, sub := range subscriptions {
		if !sub.Pattern.Matches(evt.Type) {
			continue
		}
		if err := b.invokeSubscriber(ctx, sub, evt); err != nil {
			b.logger.Error("subscriber failed",
				zap.String("subscriber", sub.Name),
				zap.String("event_type", evt.Type),
				zap.String("event_id", evt.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// invokeSubscriber runs one handler, converting a panic into an error.
func (b *Bus) invokeSubscriber(ctx context.Context, sub *event.Subscription, evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber '%s' panicked: %v", sub.Name, r)
		}
	}()
	return sub.Handler(ctx, evt)
}

// publishRemote serializes the event onto the shared channel. Local
// handlers keep working when the transport is down.
func (b *Bus) publishRemote(ctx context.Context, evt *event.Event) {
	if b.transport == nil {
		return
	}
	payload, err := json.Marshal(wireMessage{Origin: b.instanceID, Event: evt})
	if err != nil {
		b.logger.Error("event serialization failed",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := b.transport.Publish(ctx, b.channel, payload); err != nil {
		b.logger.Error("distributed publish failed",
			zap.String("event_type", evt.Type),
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
	}
}

// onRemoteMessage handles a message from the distributed channel: skip our
// own echoes, de-duplicate, then dispatch to local subscribers.
func (b *Bus) onRemoteMessage(ctx context.Context, payload []byte) {
	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("discarding malformed channel message", zap.Error(err))
		return
	}
	if msg.Event == nil || msg.Origin == b.instanceID {
		return
	}
	if b.dedup != nil {
		fresh, err := b.dedup.MarkProcessed(ctx, b.dedupKey(msg.Event), dedupTTL)
		if err != nil {
			b.logger.Warn("dedup check failed, dispatching anyway",
				zap.String("event_id", msg.Event.ID.String()),
				zap.Error(err),
			)
		} else if !fresh {
			return
		}
	}
	b.dispatchLocal(ctx, msg.Event)
}

// dedupKey scopes a processed marker to this instance. Own echoes are
// already skipped by the origin check, so emitted events are never marked.
func (b *Bus) dedupKey(evt *event.Event) string {
	return b.instanceID + ":" + evt.ID.String()
}
