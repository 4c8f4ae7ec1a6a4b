package server

import (
	"testing"
	"time"

	logginvasion "emberfall/server/logging/invasion"
)

// startTestInvasion arms a hub with a one-second scheduler window and ticks
// past it, returning the hub with a running invasion.
func startTestInvasion(t *testing.T, pub *capturePublisher) (*Hub, *fakeClock) {
	t.Helper()
	clock := newFakeClock(testEpoch)
	cfg := HubConfig{Config: testConfig()}
	if pub != nil {
		cfg.Publisher = pub
	}
	h := newTestHub(cfg, clock)

	stepTo(h, clock, testEpoch.Add(time.Second))
	if !h.IsInvasionActive() {
		t.Fatalf("invasion did not start once the scheduled time passed")
	}
	return h, clock
}

func TestInvasionStartsWhenScheduled(t *testing.T) {
	clock := newFakeClock(testEpoch)
	h := newTestHub(HubConfig{Config: testConfig()}, clock)

	// Half a second in, the window has not elapsed yet.
	stepTo(h, clock, testEpoch.Add(500*time.Millisecond))
	if h.IsInvasionActive() {
		t.Fatalf("invasion started before the scheduled time")
	}

	stepTo(h, clock, testEpoch.Add(time.Second))
	status, ok := h.Status()
	if !ok {
		t.Fatalf("invasion did not start at the scheduled time")
	}
	if status.Phase != PhaseScouts {
		t.Fatalf("new invasion should open in scouts, got %s", status.Phase)
	}
	if status.ID == "" {
		t.Fatalf("invasion started without an id")
	}
	if status.X < 0 || status.X > 1024 || status.Y < 0 || status.Y > 1024 {
		t.Fatalf("invasion site (%f, %f) outside world bounds", status.X, status.Y)
	}
	if _, err := DefaultCatalog().Archetype(status.Archetype); err != nil {
		t.Fatalf("invasion archetype %q not in catalog: %v", status.Archetype, err)
	}
}

func TestSingleInvasionAtATime(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	first, _ := h.Status()

	// Ticks keep arriving well past another full scheduler window.
	for i := 1; i <= 5; i++ {
		stepTo(h, clock, testEpoch.Add(time.Second+time.Duration(i)*time.Second))
	}

	second, ok := h.Status()
	if !ok {
		t.Fatalf("invasion ended prematurely")
	}
	if second.ID != first.ID {
		t.Fatalf("a second invasion replaced the running one: %s -> %s", first.ID, second.ID)
	}
}

func TestTimeGatePhaseProgression(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	// Just before the scouts gate nothing changes.
	stepTo(h, clock, started.Add(cfg.ScoutsUntil-time.Millisecond))
	if phase, _ := h.CurrentPhase(); phase != PhaseScouts {
		t.Fatalf("left scouts before the time gate, now %s", phase)
	}

	stepTo(h, clock, started.Add(cfg.ScoutsUntil))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("expected main force at the scouts gate, got %s", phase)
	}

	stepTo(h, clock, started.Add(cfg.MainForceUntil))
	if phase, _ := h.CurrentPhase(); phase != PhaseBoss {
		t.Fatalf("expected boss at the main force gate, got %s", phase)
	}

	stepTo(h, clock, started.Add(cfg.Duration))
	if h.IsInvasionActive() {
		t.Fatalf("invasion survived past the duration ceiling")
	}
}

func TestKillThresholdAdvancesPhaseEarly(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	for i := 0; i < cfg.PhaseKillThreshold; i++ {
		h.RecordKill("player-1", TierTrivial)
	}

	// Well before the scouts time gate.
	stepTo(h, clock, started.Add(10*time.Second))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("kill threshold did not advance scouts, phase is %s", phase)
	}
}

func TestPhaseKillCounterResetsOnTransition(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	for i := 0; i < cfg.PhaseKillThreshold; i++ {
		h.RecordKill("player-1", TierTrivial)
	}
	stepTo(h, clock, started.Add(10*time.Second))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("setup failed, phase is %s", phase)
	}

	// One more kill must not immediately clear the next phase's threshold.
	h.RecordKill("player-1", TierTrivial)
	stepTo(h, clock, started.Add(11*time.Second))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("phase kill counter leaked across the transition, phase is %s", phase)
	}

	status, _ := h.Status()
	if status.TotalKills != cfg.PhaseKillThreshold+1 {
		t.Fatalf("total kills lost on transition: got %d, want %d",
			status.TotalKills, cfg.PhaseKillThreshold+1)
	}
}

func TestOneTransitionPerTick(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	// Enough kills to clear two thresholds at once.
	for i := 0; i < 3*cfg.PhaseKillThreshold; i++ {
		h.RecordKill("player-1", TierTrivial)
	}

	stepTo(h, clock, started.Add(5*time.Second))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("expected exactly one transition per tick, phase is %s", phase)
	}

	stepTo(h, clock, started.Add(6*time.Second))
	if phase, _ := h.CurrentPhase(); phase != PhaseMainForce {
		t.Fatalf("phase advanced without new kills in main force, phase is %s", phase)
	}
}

func TestBossKillGateEndsInvasion(t *testing.T) {
	pub := &capturePublisher{}
	h, clock := startTestInvasion(t, pub)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	step := 2 * time.Second
	for i := 1; i <= 3; i++ {
		for k := 0; k < cfg.PhaseKillThreshold; k++ {
			h.RecordKill("player-1", TierTrivial)
		}
		stepTo(h, clock, started.Add(time.Duration(i)*step))
	}

	if h.IsInvasionActive() {
		phase, _ := h.CurrentPhase()
		t.Fatalf("clearing the boss threshold did not end the invasion, phase is %v", phase)
	}
	if got := pub.countType(logginvasion.EventEnded); got != 1 {
		t.Fatalf("expected one ended event, got %d", got)
	}
}

func TestDurationCeilingForcesEndMidPhase(t *testing.T) {
	pub := &capturePublisher{}
	h, clock := startTestInvasion(t, pub)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	// Reach the boss phase via time gates, then stall below the threshold.
	stepTo(h, clock, started.Add(cfg.ScoutsUntil))
	stepTo(h, clock, started.Add(cfg.MainForceUntil))
	h.RecordKill("player-1", TierTrivial)

	stepTo(h, clock, started.Add(cfg.Duration))
	if h.IsInvasionActive() {
		t.Fatalf("duration ceiling did not end the invasion")
	}
	if got := pub.countType(logginvasion.EventEnded); got != 1 {
		t.Fatalf("expected one ended event, got %d", got)
	}
}

func TestBossSpawnedExactlyOnce(t *testing.T) {
	pub := &capturePublisher{}
	h, clock := startTestInvasion(t, pub)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	stepTo(h, clock, started.Add(cfg.ScoutsUntil))
	stepTo(h, clock, started.Add(cfg.MainForceUntil))
	stepTo(h, clock, started.Add(cfg.MainForceUntil+time.Second))
	stepTo(h, clock, started.Add(cfg.MainForceUntil+2*time.Second))

	if got := pub.countType(logginvasion.EventBossSpawned); got != 1 {
		t.Fatalf("boss spawn recorded %d times, want exactly once", got)
	}
}

func TestKillsIgnoredWithoutActiveInvasion(t *testing.T) {
	clock := newFakeClock(testEpoch)
	h := newTestHub(HubConfig{Config: testConfig()}, clock)

	h.RecordKill("player-1", TierBoss)

	if got := h.TelemetrySnapshot().KillsProcessed; got != 0 {
		t.Fatalf("kill outside an invasion was counted: %d", got)
	}

	stepTo(h, clock, testEpoch.Add(time.Second))
	status, ok := h.Status()
	if !ok {
		t.Fatalf("invasion did not start")
	}
	if status.TotalKills != 0 {
		t.Fatalf("pre-invasion kill leaked into the new invasion: %d", status.TotalKills)
	}
}

func TestSchedulerRearmsAfterInvasionEnds(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	stepTo(h, clock, started.Add(cfg.Duration))
	if h.IsInvasionActive() {
		t.Fatalf("invasion should be over")
	}

	// The next window opens one second after the previous invasion ended.
	ended := started.Add(cfg.Duration)
	stepTo(h, clock, ended.Add(time.Second))
	status, ok := h.Status()
	if !ok {
		t.Fatalf("scheduler did not re-arm after the invasion ended")
	}
	if status.Phase != PhaseScouts {
		t.Fatalf("follow-up invasion opened in %s", status.Phase)
	}
	if status.TotalKills != 0 {
		t.Fatalf("kill counter carried into the next invasion: %d", status.TotalKills)
	}
}

func TestProgressBroadcastCadence(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	started := testEpoch.Add(time.Second)

	id, conn := joinSubscribed(t, h)

	// Four ticks inside one second, then one tick a full second later.
	for i := 1; i <= 4; i++ {
		stepTo(h, clock, started.Add(time.Duration(i)*100*time.Millisecond), id)
	}
	before := countFrames(t, conn, "progress")
	if before != 0 {
		t.Fatalf("progress broadcast more often than the configured cadence: %d frames", before)
	}

	stepTo(h, clock, started.Add(time.Second), id)
	if got := countFrames(t, conn, "progress"); got != 1 {
		t.Fatalf("expected one progress frame after a full interval, got %d", got)
	}
}

func countFrames(t *testing.T, conn *fakeConn, frameType string) int {
	t.Helper()
	count := 0
	for _, typ := range conn.frameTypes(t) {
		if typ == frameType {
			count++
		}
	}
	return count
}

func TestPhaseChangeBroadcast(t *testing.T) {
	h, clock := startTestInvasion(t, nil)
	cfg := testConfig()
	started := testEpoch.Add(time.Second)

	id, conn := joinSubscribed(t, h)
	stepTo(h, clock, started.Add(cfg.ScoutsUntil), id)

	if got := countFrames(t, conn, "phaseChanged"); got != 1 {
		t.Fatalf("expected one phaseChanged frame, got %d; frames: %v", got, conn.frameTypes(t))
	}
}
