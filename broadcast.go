package server

import (
	"time"

	"github.com/gorilla/websocket"

	"emberfall/server/internal/net/proto"
)

// Frame builders append encoded payloads to the hub's outbox while the mutex
// is held; flushOutbox delivers them afterwards. Keeping the writes outside
// the locked section means a slow client cannot stall a tick.

func (h *Hub) queueBroadcastLocked(data []byte, err error) {
	if err != nil {
		h.logger.Printf("failed to encode broadcast frame: %v", err)
		return
	}
	h.pending = append(h.pending, outboundFrame{data: data})
}

func (h *Hub) queuePrivateLocked(playerID string, data []byte, err error) {
	if err != nil {
		h.logger.Printf("failed to encode frame for %s: %v", playerID, err)
		return
	}
	h.pending = append(h.pending, outboundFrame{playerID: playerID, data: data})
}

func (h *Hub) queueInvasionStartedLocked(def InvasionDefinition, now time.Time) {
	inv := h.invasion
	data, err := proto.EncodeInvasionStarted(proto.InvasionStartedV1{
		InvasionID: inv.ID,
		Archetype:  string(def.ID),
		Name:       def.Name,
		Modifier:   def.Modifier,
		X:          inv.X,
		Y:          inv.Y,
		ServerTime: now.UnixMilli(),
	})
	h.queueBroadcastLocked(data, err)
}

func (h *Hub) queuePhaseChangedLocked(now time.Time) {
	inv := h.invasion
	data, err := proto.EncodePhaseChanged(proto.PhaseChangedV1{
		InvasionID: inv.ID,
		Phase:      string(inv.Phase),
		ServerTime: now.UnixMilli(),
	})
	h.queueBroadcastLocked(data, err)
}

func (h *Hub) queueInvasionEndedLocked(now time.Time, contributors int) {
	inv := h.invasion
	data, err := proto.EncodeInvasionEnded(proto.InvasionEndedV1{
		InvasionID:   inv.ID,
		Archetype:    string(inv.Archetype),
		TotalKills:   inv.TotalKills,
		Contributors: contributors,
		ServerTime:   now.UnixMilli(),
	})
	h.queueBroadcastLocked(data, err)
}

func (h *Hub) queueProgressLocked(now time.Time) {
	inv := h.invasion
	if inv == nil {
		return
	}
	remaining := h.cfg.Duration - now.Sub(inv.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	data, err := proto.EncodeProgress(proto.ProgressV1{
		InvasionID:      inv.ID,
		Phase:           string(inv.Phase),
		TotalKills:      inv.TotalKills,
		PhaseProgress:   h.phaseProgressLocked(now),
		RemainingMillis: remaining.Milliseconds(),
	})
	h.queueBroadcastLocked(data, err)
}

func (h *Hub) queueRewardLocked(playerID string, tokens, gold, exp, balance int) {
	data, err := proto.EncodeReward(proto.RewardV1{
		Tokens:  tokens,
		Gold:    gold,
		Exp:     exp,
		Balance: balance,
	})
	h.queuePrivateLocked(playerID, data, err)
}

func (h *Hub) queuePurchaseResultLocked(playerID string, result ShopPurchaseResult) {
	data, err := proto.EncodePurchaseResult(proto.PurchaseResultV1{
		Item:    result.ItemName,
		Success: result.Success,
		Message: result.Message,
		Balance: result.Balance,
	})
	h.queuePrivateLocked(playerID, data, err)
}

// phaseProgressLocked estimates how far the current phase has advanced
// toward whichever gate will fire first, clamped to [0, 1]. A client-facing
// hint only; the machine itself works from the raw counters and clocks.
func (h *Hub) phaseProgressLocked(now time.Time) float64 {
	inv := h.invasion
	if inv == nil {
		return 0
	}
	elapsed := now.Sub(inv.StartedAt)

	var gate time.Duration
	switch inv.Phase {
	case PhaseScouts:
		gate = h.cfg.ScoutsUntil
	case PhaseMainForce:
		gate = h.cfg.MainForceUntil
	default:
		gate = h.cfg.Duration
	}

	timeFraction := 0.0
	if gate > 0 {
		timeFraction = float64(elapsed) / float64(gate)
	}
	killFraction := 0.0
	if h.cfg.PhaseKillThreshold > 0 {
		killFraction = float64(inv.PhaseKills) / float64(h.cfg.PhaseKillThreshold)
	}

	fraction := timeFraction
	if killFraction > fraction {
		fraction = killFraction
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	return fraction
}

// flushOutbox delivers every queued frame. Broadcast frames go to all
// subscribers; private frames to a single player. A failed write drops that
// player's connection, mirroring the heartbeat path.
func (h *Hub) flushOutbox() {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return
	}
	frames := h.pending
	h.pending = nil
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for _, frame := range frames {
		if frame.playerID != "" {
			sub, ok := subs[frame.playerID]
			if !ok {
				continue
			}
			if err := sub.WriteMessage(websocket.TextMessage, frame.data); err != nil {
				h.logger.Printf("failed to send frame to %s: %v", frame.playerID, err)
				h.Disconnect(frame.playerID, "write failure")
				delete(subs, frame.playerID)
				continue
			}
			h.telemetry.RecordBroadcast(len(frame.data))
			continue
		}

		for id, sub := range subs {
			if err := sub.WriteMessage(websocket.TextMessage, frame.data); err != nil {
				h.logger.Printf("failed to send update to %s: %v", id, err)
				h.Disconnect(id, "write failure")
				delete(subs, id)
				continue
			}
			h.telemetry.RecordBroadcast(len(frame.data))
		}
	}
}
