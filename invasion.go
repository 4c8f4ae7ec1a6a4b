package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	logginvasion "emberfall/server/logging/invasion"
)

// InvasionPhase is one stage of an invasion's lifecycle. Transitions are
// one-directional: scouts, main force, boss, complete. No phase is revisited.
type InvasionPhase string

const (
	PhaseScouts    InvasionPhase = "scouts"
	PhaseMainForce InvasionPhase = "main_force"
	PhaseBoss      InvasionPhase = "boss"
	PhaseComplete  InvasionPhase = "complete"
)

// activeInvasion is the single running invasion. At most one exists
// process-wide; the hub holds it and discards it once rewards settle.
type activeInvasion struct {
	ID             string
	Archetype      ArchetypeID
	Phase          InvasionPhase
	X              float64
	Y              float64
	StartedAt      time.Time
	PhaseStartedAt time.Time
	TotalKills     int
	PhaseKills     int
	BossSpawned    bool
}

// startInvasionLocked opens a new invasion. Starting while one is already
// running is a no-op; the guard keeps concurrent tick paths from ever
// double-starting.
func (h *Hub) startInvasionLocked(now time.Time) {
	if h.invasion != nil {
		return
	}

	def := h.sched.pickArchetype(h.catalog.Archetypes())
	x, y := h.sched.pickSite(h.cfg.WorldWidth, h.cfg.WorldHeight)

	h.invasion = &activeInvasion{
		ID:             uuid.NewString(),
		Archetype:      def.ID,
		Phase:          PhaseScouts,
		X:              x,
		Y:              y,
		StartedAt:      now,
		PhaseStartedAt: now,
	}
	h.ledger.resetContributions()
	h.lastProgress = now
	h.telemetry.IncrementInvasionsStarted()

	logginvasion.Started(context.Background(), h.publisher, h.tick.Load(), h.invasion.ID, logginvasion.StartedPayload{
		Archetype: string(def.ID),
		Name:      def.Name,
		X:         x,
		Y:         y,
	})
	h.queueInvasionStartedLocked(def, now)
}

// advanceInvasionLocked evaluates the phase machine for one tick. The hard
// duration ceiling is checked first and overrides normal progression; below
// it, the kill gate and the time gate are evaluated for the current phase,
// whichever fires first. At most one transition happens per tick.
func (h *Hub) advanceInvasionLocked(now time.Time) {
	inv := h.invasion
	if inv == nil {
		return
	}

	elapsed := now.Sub(inv.StartedAt)
	if elapsed >= h.cfg.Duration {
		h.endInvasionLocked(now, true)
		return
	}

	killGate := inv.PhaseKills >= h.cfg.PhaseKillThreshold
	switch inv.Phase {
	case PhaseScouts:
		if killGate {
			h.enterPhaseLocked(now, PhaseMainForce, "kill threshold")
		} else if elapsed >= h.cfg.ScoutsUntil {
			h.enterPhaseLocked(now, PhaseMainForce, "time gate")
		}
	case PhaseMainForce:
		if killGate {
			h.enterPhaseLocked(now, PhaseBoss, "kill threshold")
		} else if elapsed >= h.cfg.MainForceUntil {
			h.enterPhaseLocked(now, PhaseBoss, "time gate")
		}
	case PhaseBoss:
		// The boss wave has no time gate of its own; clearing its kill
		// threshold finishes the invasion early, otherwise the duration
		// ceiling ends it.
		if killGate {
			h.endInvasionLocked(now, false)
		}
	}
}

// enterPhaseLocked transitions the invasion into the given phase, resetting
// the phase clock and phase-local kill counter.
func (h *Hub) enterPhaseLocked(now time.Time, phase InvasionPhase, reason string) {
	inv := h.invasion
	from := inv.Phase
	inv.Phase = phase
	inv.PhaseStartedAt = now
	inv.PhaseKills = 0

	if phase == PhaseBoss && !inv.BossSpawned {
		inv.BossSpawned = true
		logginvasion.BossSpawned(context.Background(), h.publisher, h.tick.Load(), inv.ID)
	}

	logginvasion.PhaseChanged(context.Background(), h.publisher, h.tick.Load(), inv.ID, logginvasion.PhaseChangedPayload{
		From:   string(from),
		To:     string(phase),
		Reason: reason,
	})
	h.queuePhaseChangedLocked(now)
	h.queueProgressLocked(now)
	h.lastProgress = now
}

// endInvasionLocked completes the invasion: rewards are distributed exactly
// once, the summary is broadcast, state is discarded, and the scheduler is
// re-armed. forced marks an end driven by the duration ceiling rather than
// phase progression.
func (h *Hub) endInvasionLocked(now time.Time, forced bool) {
	inv := h.invasion
	if inv == nil {
		return
	}
	inv.Phase = PhaseComplete

	contributors := 0
	for _, contribution := range h.ledger.contributions {
		if contribution > 0 {
			contributors++
		}
	}

	h.distributeRewardsLocked()

	def, err := h.catalog.Archetype(inv.Archetype)
	if err != nil {
		// The archetype was resolved from the catalog at start; losing it
		// mid-invasion is a programming error.
		h.logger.Printf("FATAL invariant violated: %v", err)
	}

	logginvasion.Ended(context.Background(), h.publisher, h.tick.Load(), inv.ID, logginvasion.EndedPayload{
		Archetype:    string(def.ID),
		TotalKills:   inv.TotalKills,
		Contributors: contributors,
		Forced:       forced,
	})
	h.queueInvasionEndedLocked(now, contributors)

	h.invasion = nil
	h.sched.scheduleNext(now)
	h.telemetry.IncrementInvasionsCompleted()
}
