package invasion

import (
	"context"

	"emberfall/server/logging"
)

const (
	// EventStarted is emitted when the scheduler opens a new invasion.
	EventStarted logging.EventType = "invasion.started"
	// EventPhaseChanged is emitted on every phase transition.
	EventPhaseChanged logging.EventType = "invasion.phase_changed"
	// EventBossSpawned is emitted once per invasion when the boss phase begins.
	EventBossSpawned logging.EventType = "invasion.boss_spawned"
	// EventEnded is emitted when an invasion completes and rewards settle.
	EventEnded logging.EventType = "invasion.ended"
)

// StartedPayload describes a freshly started invasion.
type StartedPayload struct {
	Archetype string  `json:"archetype"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// PhaseChangedPayload describes a phase transition.
type PhaseChangedPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// EndedPayload summarizes a completed invasion.
type EndedPayload struct {
	Archetype    string `json:"archetype"`
	TotalKills   int    `json:"totalKills"`
	Contributors int    `json:"contributors"`
	Forced       bool   `json:"forced,omitempty"`
}

// Started publishes an invasion start event.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, invasionID string, payload StartedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventStarted,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: invasionID, Kind: logging.EntityKindInvasion},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// PhaseChanged publishes a phase transition event.
func PhaseChanged(ctx context.Context, pub logging.Publisher, tick uint64, invasionID string, payload PhaseChangedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPhaseChanged,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: invasionID, Kind: logging.EntityKindInvasion},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// BossSpawned publishes the one-time boss spawn event.
func BossSpawned(ctx context.Context, pub logging.Publisher, tick uint64, invasionID string) {
	publish(ctx, pub, logging.Event{
		Type:     EventBossSpawned,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: invasionID, Kind: logging.EntityKindInvasion},
		Severity: logging.SeverityInfo,
	})
}

// Ended publishes an end-of-invasion event.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, invasionID string, payload EndedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventEnded,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: invasionID, Kind: logging.EntityKindInvasion},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryInvasion
	pub.Publish(ctx, event)
}
