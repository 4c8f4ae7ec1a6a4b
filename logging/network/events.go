package network

import (
	"context"

	"emberfall/server/logging"
)

// EventPayloadRejected is emitted when an inbound frame cannot be decoded.
const EventPayloadRejected logging.EventType = "network.payload_rejected"

// PayloadRejectedPayload describes the rejected frame.
type PayloadRejectedPayload struct {
	Reason string `json:"reason"`
}

// PayloadRejected publishes a rejected-frame event.
func PayloadRejected(ctx context.Context, pub logging.Publisher, tick uint64, playerID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPayloadRejected,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  PayloadRejectedPayload{Reason: reason},
	})
}
