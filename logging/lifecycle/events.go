package lifecycle

import (
	"context"

	"emberfall/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player id is assigned.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player leaves or times out.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
)

// DisconnectedPayload carries the reason a player left.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// PlayerJoined publishes a join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, playerID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
	})
}

// PlayerDisconnected publishes a disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, playerID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDisconnected,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  DisconnectedPayload{Reason: reason},
	})
}
