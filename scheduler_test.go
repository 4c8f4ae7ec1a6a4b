package server

import (
	"testing"
	"time"
)

func TestSchedulerWindowBounds(t *testing.T) {
	cfg := Config{MinInterval: 10 * time.Minute, MaxInterval: 20 * time.Minute, Seed: 42}
	now := testEpoch
	s := newScheduler(cfg, now)

	for i := 0; i < 1000; i++ {
		next := s.scheduleNext(now)
		delay := next.Sub(now)
		if delay < cfg.MinInterval || delay > cfg.MaxInterval {
			t.Fatalf("scheduled delay %v outside [%v, %v]", delay, cfg.MinInterval, cfg.MaxInterval)
		}
	}
}

func TestSchedulerDegenerateWindow(t *testing.T) {
	cfg := Config{MinInterval: time.Minute, MaxInterval: time.Minute, Seed: 1}
	s := newScheduler(cfg, testEpoch)

	if got := s.nextAt(); !got.Equal(testEpoch.Add(time.Minute)) {
		t.Fatalf("degenerate window scheduled at %v, want %v", got, testEpoch.Add(time.Minute))
	}
}

func TestSchedulerDue(t *testing.T) {
	cfg := Config{MinInterval: time.Minute, MaxInterval: time.Minute, Seed: 1}
	s := newScheduler(cfg, testEpoch)

	if s.due(testEpoch.Add(time.Minute - time.Nanosecond)) {
		t.Fatalf("due before the scheduled time")
	}
	if !s.due(testEpoch.Add(time.Minute)) {
		t.Fatalf("not due at the scheduled time")
	}
	if !s.due(testEpoch.Add(2 * time.Minute)) {
		t.Fatalf("not due after the scheduled time")
	}
}

func TestSchedulerDeterministicWithSeed(t *testing.T) {
	cfg := Config{MinInterval: 10 * time.Minute, MaxInterval: 20 * time.Minute, Seed: 99}

	a := newScheduler(cfg, testEpoch)
	b := newScheduler(cfg, testEpoch)
	for i := 0; i < 10; i++ {
		if !a.scheduleNext(testEpoch).Equal(b.scheduleNext(testEpoch)) {
			t.Fatalf("same seed diverged on draw %d", i)
		}
	}
}

func TestSchedulerPickArchetype(t *testing.T) {
	cfg := Config{MinInterval: time.Minute, MaxInterval: time.Minute, Seed: 5}
	s := newScheduler(cfg, testEpoch)
	defs := DefaultCatalog().Archetypes()

	seen := make(map[ArchetypeID]bool)
	for i := 0; i < 200; i++ {
		def := s.pickArchetype(defs)
		found := false
		for _, candidate := range defs {
			if candidate.ID == def.ID {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("picked archetype %q not in the table", def.ID)
		}
		seen[def.ID] = true
	}
	// With 200 uniform draws over four archetypes, every archetype shows up.
	if len(seen) != len(defs) {
		t.Fatalf("selection never hit %d of %d archetypes", len(defs)-len(seen), len(defs))
	}
}

func TestSchedulerPickSiteWithinBounds(t *testing.T) {
	cfg := Config{MinInterval: time.Minute, MaxInterval: time.Minute, Seed: 5}
	s := newScheduler(cfg, testEpoch)

	for i := 0; i < 200; i++ {
		x, y := s.pickSite(800, 600)
		if x < 0 || x >= 800 || y < 0 || y >= 600 {
			t.Fatalf("site (%f, %f) outside 800x600", x, y)
		}
	}
}
