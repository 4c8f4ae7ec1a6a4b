package server

import (
	"math/rand"
	"time"
)

// scheduler decides when the next invasion begins and supplies the randomness
// for archetype and site selection. It never starts an invasion itself; the
// hub consults it from the tick and owns the start.
type scheduler struct {
	rng         *rand.Rand
	minInterval time.Duration
	maxInterval time.Duration
	next        time.Time
}

func newScheduler(cfg Config, now time.Time) *scheduler {
	seed := cfg.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	s := &scheduler{
		rng:         rand.New(rand.NewSource(seed)),
		minInterval: cfg.MinInterval,
		maxInterval: cfg.MaxInterval,
	}
	s.scheduleNext(now)
	return s
}

// scheduleNext re-arms the scheduler, placing the next invasion uniformly
// within [minInterval, maxInterval] of now.
func (s *scheduler) scheduleNext(now time.Time) time.Time {
	delay := s.minInterval
	if window := s.maxInterval - s.minInterval; window > 0 {
		delay += time.Duration(s.rng.Int63n(int64(window) + 1))
	}
	s.next = now.Add(delay)
	return s.next
}

// due reports whether an invasion should start at the given instant.
func (s *scheduler) due(now time.Time) bool {
	return !now.Before(s.next)
}

// nextAt exposes the scheduled start for diagnostics.
func (s *scheduler) nextAt() time.Time {
	return s.next
}

// pickArchetype selects uniformly from the catalog's archetype table.
func (s *scheduler) pickArchetype(defs []InvasionDefinition) InvasionDefinition {
	return defs[s.rng.Intn(len(defs))]
}

// pickSite selects a random world coordinate within the configured bounds.
func (s *scheduler) pickSite(width, height float64) (float64, float64) {
	return s.rng.Float64() * width, s.rng.Float64() * height
}
