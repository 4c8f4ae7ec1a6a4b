package logging_test

import (
	"context"
	"testing"
	"time"

	"emberfall/server/logging"
	"emberfall/server/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.Memory) {
	t.Helper()
	memory := sinks.NewMemory()
	clock := logging.ClockFunc(func() time.Time {
		return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	})
	router, err := logging.NewRouter(clock, cfg, map[string]logging.Sink{"memory": memory})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}
	return router, memory
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("router close failed: %v", err)
	}
}

func TestRouterDeliversToSinks(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())

	for i := 0; i < 5; i++ {
		router.Publish(context.Background(), logging.Event{
			Type:     "invasion.started",
			Tick:     uint64(i),
			Severity: logging.SeverityInfo,
		})
	}
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 5 {
		t.Fatalf("delivered %d events, want 5", len(events))
	}
	for _, event := range events {
		if event.Time.IsZero() {
			t.Fatalf("router forwarded an event without a timestamp")
		}
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "economy.purchase", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "economy.reward_skipped", Severity: logging.SeverityWarn})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("severity filter passed %d events, want 1", len(events))
	}
	if events[0].Type != "economy.reward_skipped" {
		t.Fatalf("wrong event survived the filter: %s", events[0].Type)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	closeRouter(t, router)

	if got := len(memory.Events()); got != 0 {
		t.Fatalf("untyped event was routed: %d events", got)
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"region": "eu-1"}
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "invasion.ended",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"forced": true},
	})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("delivered %d events, want 1", len(events))
	}
	extra := events[0].Extra
	if extra["region"] != "eu-1" {
		t.Fatalf("configured field missing from event extra: %v", extra)
	}
	if forced, ok := extra["forced"]; !ok || forced != true {
		t.Fatalf("event's own extra lost in the merge: %v", extra)
	}
}

func TestRouterPublishAfterCloseIsNoop(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())
	closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{Type: "invasion.started", Severity: logging.SeverityInfo})

	if got := len(memory.Events()); got != 0 {
		t.Fatalf("closed router still routed %d events", got)
	}
	// A second close must be safe.
	closeRouter(t, router)
}

func TestRouterStatsCountEvents(t *testing.T) {
	router, _ := newTestRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Type: "invasion.started", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "invasion.ended", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	stats := router.Stats()
	if stats.EventsTotal != 2 {
		t.Fatalf("events total %d, want 2", stats.EventsTotal)
	}
	if stats.DroppedTotal != 0 {
		t.Fatalf("dropped total %d, want 0", stats.DroppedTotal)
	}
}
