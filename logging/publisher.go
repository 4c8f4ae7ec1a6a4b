package logging

import (
	"context"
	"time"
)

// EventType names a structured event, namespaced by domain
// (e.g. "invasion.phase_changed").
type EventType string

// Severity orders events for filtering.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// EntityKind classifies the actor or target of an event.
type EntityKind string

const (
	EntityKindUnknown  EntityKind = "unknown"
	EntityKindPlayer   EntityKind = "player"
	EntityKindInvasion EntityKind = "invasion"
	EntityKindShop     EntityKind = "shop"
	EntityKindWorld    EntityKind = "world"
)

// Event categories.
const (
	CategoryInvasion = "invasion"
	CategoryEconomy  = "economy"
	CategorySystem   = "system"
)

// EntityRef identifies the subject of an event.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Event is one structured record flowing through the router.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Publisher accepts events for routing. Implementations must never block the
// caller; the hub publishes from inside its tick.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, event Event)

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher returns a Publisher that discards everything.
func NopPublisher() Publisher {
	return nopPublisher{}
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}
