package server

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	broadcastBytes     atomic.Uint64
	broadcastFrames    atomic.Uint64
	tickDurationMillis atomic.Int64
	killsProcessed     atomic.Uint64
	invasionsStarted   atomic.Uint64
	invasionsCompleted atomic.Uint64
	purchases          atomic.Uint64
	purchasesRejected  atomic.Uint64
	rewardsGranted     atomic.Uint64
	tokensGranted      atomic.Uint64
	debug              bool
}

// TelemetrySnapshot exposes counter values for the diagnostics endpoint.
type TelemetrySnapshot struct {
	BroadcastBytes     uint64 `json:"broadcastBytes"`
	BroadcastFrames    uint64 `json:"broadcastFrames"`
	TickDuration       int64  `json:"tickDurationMillis"`
	KillsProcessed     uint64 `json:"killsProcessed"`
	InvasionsStarted   uint64 `json:"invasionsStarted"`
	InvasionsCompleted uint64 `json:"invasionsCompleted"`
	Purchases          uint64 `json:"purchases"`
	PurchasesRejected  uint64 `json:"purchasesRejected"`
	RewardsGranted     uint64 `json:"rewardsGranted"`
	TokensGranted      uint64 `json:"tokensGranted"`
}

func newTelemetryCounters() *telemetryCounters {
	t := &telemetryCounters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

func (t *telemetryCounters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	t.broadcastBytes.Add(uint64(bytes))
	t.broadcastFrames.Add(1)
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms kills=%d invasions=%d/%d bytes=%d\n",
			millis,
			t.killsProcessed.Load(),
			t.invasionsStarted.Load(),
			t.invasionsCompleted.Load(),
			t.broadcastBytes.Load(),
		)
	}
}

func (t *telemetryCounters) IncrementKills() {
	t.killsProcessed.Add(1)
}

func (t *telemetryCounters) IncrementInvasionsStarted() {
	t.invasionsStarted.Add(1)
}

func (t *telemetryCounters) IncrementInvasionsCompleted() {
	t.invasionsCompleted.Add(1)
}

func (t *telemetryCounters) IncrementPurchases() {
	t.purchases.Add(1)
}

func (t *telemetryCounters) IncrementPurchasesRejected() {
	t.purchasesRejected.Add(1)
}

func (t *telemetryCounters) RecordReward(tokens int) {
	t.rewardsGranted.Add(1)
	if tokens > 0 {
		t.tokensGranted.Add(uint64(tokens))
	}
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		BroadcastBytes:     t.broadcastBytes.Load(),
		BroadcastFrames:    t.broadcastFrames.Load(),
		TickDuration:       t.tickDurationMillis.Load(),
		KillsProcessed:     t.killsProcessed.Load(),
		InvasionsStarted:   t.invasionsStarted.Load(),
		InvasionsCompleted: t.invasionsCompleted.Load(),
		Purchases:          t.purchases.Load(),
		PurchasesRejected:  t.purchasesRejected.Load(),
		RewardsGranted:     t.rewardsGranted.Load(),
		TokensGranted:      t.tokensGranted.Load(),
	}
}
