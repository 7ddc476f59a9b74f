package event

import (
	"context"
	"strings"
)

// Handler processes a domain event delivered by local dispatch.
type Handler func(ctx context.Context, evt *Event) error

// patternKind is the tagged variant of a subscription key: an exact event
// type, a namespace wildcard like "order.*", or the all-matching "*".
type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternAll
)

// Pattern matches event types. Build one with ParsePattern.
type Pattern struct {
	kind   patternKind
	raw    string
	prefix string
}

// ParsePattern interprets a subscription pattern. "*" matches every event;
// "order.*" matches everything in the order namespace; anything else is an
// exact event type.
func ParsePattern(raw string) Pattern {
	switch {
	case raw == "*":
		return Pattern{kind: patternAll, raw: raw}
	case strings.HasSuffix(raw, ".*"):
		return Pattern{kind: patternPrefix, raw: raw, prefix: strings.TrimSuffix(raw, "*")}
	default:
		return Pattern{kind: patternExact, raw: raw}
	}
}

// Matches reports whether the pattern covers the given event type.
func (p Pattern) Matches(eventType string) bool {
	switch p.kind {
	case patternAll:
		return true
	case patternPrefix:
		return strings.HasPrefix(eventType, p.prefix)
	default:
		return eventType == p.raw
	}
}

// String returns the pattern as subscribed.
func (p Pattern) String() string {
	return p.raw
}

// Subscription pairs a pattern with a handler. Name identifies the
// subscriber in logs.
type Subscription struct {
	Name    string
	Pattern Pattern
	Handler Handler
}
