package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"emberfall/server/internal/telemetry"
	"emberfall/server/logging"
	logglifecycle "emberfall/server/logging/lifecycle"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
)

// Conn is the transport connection the hub writes to. *websocket.Conn
// satisfies it; tests substitute an in-memory fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber serializes writes to one player's connection.
type Subscriber struct {
	conn Conn
	mu   sync.Mutex
}

// WriteMessage writes a single frame with the standard write deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close()
}

type playerState struct {
	ID            string
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type outboundFrame struct {
	playerID string // empty means broadcast to every subscriber
	data     []byte
}

// HubConfig bundles the hub's collaborators. Every field except Catalog has
// a working default.
type HubConfig struct {
	Config    Config
	Catalog   *Catalog
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Stats     StatsSink
	Store     LedgerStore
	Clock     func() time.Time
}

// Hub is the authoritative process for the invasion engine. It owns all
// invasion, ledger, and shop state; clients only send requests and receive
// broadcasts. One tick or one request handler runs to completion under the
// mutex before the next begins.
type Hub struct {
	mu           sync.Mutex
	cfg          Config
	catalog      *Catalog
	publisher    logging.Publisher
	logger       telemetry.Logger
	telemetry    *telemetryCounters
	stats        StatsSink
	clock        func() time.Time
	players      map[string]*playerState
	subscribers  map[string]*Subscriber
	nextID       atomic.Uint64
	tick         atomic.Uint64
	sched        *scheduler
	invasion     *activeInvasion
	ledger       *ledger
	lastProgress time.Time
	pending      []outboundFrame
}

// NewHub constructs a hub with the catalog frozen and the scheduler armed.
func NewHub(cfg HubConfig) *Hub {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewLoggingStatsSink(logger)
	}

	normalized := cfg.Config.normalized()
	hub := &Hub{
		cfg:         normalized,
		catalog:     catalog,
		publisher:   publisher,
		logger:      logger,
		telemetry:   newTelemetryCounters(),
		stats:       stats,
		clock:       clock,
		players:     make(map[string]*playerState),
		subscribers: make(map[string]*Subscriber),
		sched:       newScheduler(normalized, clock()),
		ledger:      newLedger(cfg.Store, logger),
	}
	return hub
}

// LoadLedger hydrates the in-memory ledger from the persistence collaborator.
// Called once during startup, before the simulation runs.
func (h *Hub) LoadLedger(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ledger.loadFromStore(ctx)
}

// JoinInfo is returned to a freshly joined player.
type JoinInfo struct {
	ID             string
	Shop           []ShopItem
	Invasion       *InvasionStatus
	Tokens         int
	Participations int
}

// Join registers a new player and returns its id plus current state.
func (h *Hub) Join() JoinInfo {
	id := h.nextID.Add(1)
	playerID := fmt.Sprintf("player-%d", id)
	now := h.clock()

	h.mu.Lock()
	h.players[playerID] = &playerState{ID: playerID, lastHeartbeat: now}
	info := JoinInfo{
		ID:             playerID,
		Shop:           h.catalog.ShopItems(),
		Invasion:       h.invasionStatusLocked(now),
		Tokens:         h.ledger.tokenBalance(playerID),
		Participations: h.ledger.participationCount(playerID),
	}
	h.mu.Unlock()

	logglifecycle.PlayerJoined(context.Background(), h.publisher, h.tick.Load(), playerID)
	return info
}

// Subscribe associates a connection with an existing player. An existing
// subscription for the same player is replaced and its connection closed.
func (h *Hub) Subscribe(playerID string, conn Conn) (*Subscriber, bool) {
	h.mu.Lock()

	state, ok := h.players[playerID]
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	state.lastHeartbeat = h.clock()

	existing := h.subscribers[playerID]
	sub := &Subscriber{conn: conn}
	h.subscribers[playerID] = sub
	h.mu.Unlock()

	if existing != nil {
		existing.close()
	}
	return sub, true
}

// Disconnect removes a player and closes any active subscription.
func (h *Hub) Disconnect(playerID, reason string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[playerID]
	if subOK {
		delete(h.subscribers, playerID)
	}
	_, playerOK := h.players[playerID]
	if playerOK {
		delete(h.players, playerID)
	}
	h.mu.Unlock()

	if subOK {
		sub.close()
	}
	if playerOK {
		logglifecycle.PlayerDisconnected(context.Background(), h.publisher, h.tick.Load(), playerID, reason)
	}
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a player.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	return state.lastRTT, true
}

// RecordKill applies one resolved kill fact from the combat system. Kills
// reported while no invasion is active are silently ignored; combat goes on
// outside invasions. The raw counters track events while the contribution
// map tracks weighted score, deliberately decoupling phase pacing from the
// reward economy.
func (h *Hub) RecordKill(playerID string, tier MonsterTier) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inv := h.invasion
	if inv == nil {
		return
	}

	weight := h.catalog.TierWeight(tier)
	h.ledger.addWeightedKill(playerID, weight)
	inv.TotalKills++
	inv.PhaseKills++
	h.telemetry.IncrementKills()
}

// advance runs one scheduler-and-phase step. Phase transitions happen only
// here, at tick boundaries; a kill burst that crosses a threshold mid-tick
// is acted on at the next tick.
func (h *Hub) advance(now time.Time) {
	h.tick.Add(1)

	h.mu.Lock()
	toClose := make([]*Subscriber, 0)
	stale := make([]string, 0)
	for id, state := range h.players {
		if now.Sub(state.lastHeartbeat) > disconnectAfter {
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
				delete(h.subscribers, id)
			}
			delete(h.players, id)
			stale = append(stale, id)
		}
	}

	if h.invasion == nil && h.sched.due(now) {
		h.startInvasionLocked(now)
	} else if h.invasion != nil {
		h.advanceInvasionLocked(now)
	}

	if h.invasion != nil && now.Sub(h.lastProgress) >= h.cfg.ProgressInterval {
		h.queueProgressLocked(now)
		h.lastProgress = now
	}
	h.mu.Unlock()

	for _, sub := range toClose {
		sub.close()
	}
	for _, id := range stale {
		logglifecycle.PlayerDisconnected(context.Background(), h.publisher, h.tick.Load(), id, "heartbeat timeout")
	}
	h.flushOutbox()
}

// RunSimulation drives the fixed-rate tick loop until the stop channel closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			started := time.Now()
			h.advance(now)
			h.telemetry.RecordTickDuration(time.Since(started))
		}
	}
}

// InvasionStatus is a read-only view of the active invasion.
type InvasionStatus struct {
	ID         string        `json:"id"`
	Archetype  ArchetypeID   `json:"archetype"`
	Name       string        `json:"name"`
	Phase      InvasionPhase `json:"phase"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	TotalKills int           `json:"totalKills"`
	Remaining  time.Duration `json:"-"`
}

func (h *Hub) invasionStatusLocked(now time.Time) *InvasionStatus {
	inv := h.invasion
	if inv == nil {
		return nil
	}
	name := string(inv.Archetype)
	if def, err := h.catalog.Archetype(inv.Archetype); err == nil {
		name = def.Name
	}
	remaining := h.cfg.Duration - now.Sub(inv.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	return &InvasionStatus{
		ID:         inv.ID,
		Archetype:  inv.Archetype,
		Name:       name,
		Phase:      inv.Phase,
		X:          inv.X,
		Y:          inv.Y,
		TotalKills: inv.TotalKills,
		Remaining:  remaining,
	}
}

// Status reports the active invasion, if any.
func (h *Hub) Status() (InvasionStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := h.invasionStatusLocked(h.clock())
	if status == nil {
		return InvasionStatus{}, false
	}
	return *status, true
}

// IsInvasionActive reports whether an invasion is currently running.
func (h *Hub) IsInvasionActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invasion != nil
}

// CurrentPhase returns the active invasion's phase.
func (h *Hub) CurrentPhase() (InvasionPhase, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.invasion == nil {
		return "", false
	}
	return h.invasion.Phase, true
}

// CurrentArchetype returns the active invasion's catalog definition.
func (h *Hub) CurrentArchetype() (InvasionDefinition, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.invasion == nil {
		return InvasionDefinition{}, false
	}
	def, err := h.catalog.Archetype(h.invasion.Archetype)
	if err != nil {
		return InvasionDefinition{}, false
	}
	return def, true
}

// RemainingTime returns how long the active invasion can still run before
// the duration ceiling forces it to end.
func (h *Hub) RemainingTime() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.invasion == nil {
		return 0, false
	}
	remaining := h.cfg.Duration - h.clock().Sub(h.invasion.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// TokenBalance returns a player's durable token balance.
func (h *Hub) TokenBalance(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ledger.tokenBalance(playerID)
}

// ParticipationCount returns a player's lifetime participation counter.
func (h *Hub) ParticipationCount(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ledger.participationCount(playerID)
}

// ShopCatalog returns the shop table in display order.
func (h *Hub) ShopCatalog() []ShopItem {
	return h.catalog.ShopItems()
}

// EndInvasion force-completes the active invasion, distributing rewards and
// re-arming the scheduler. A no-op when nothing is running.
func (h *Hub) EndInvasion() {
	now := h.clock()
	h.mu.Lock()
	h.endInvasionLocked(now, true)
	h.mu.Unlock()
	h.flushOutbox()
}

// DiagnosticsPlayer describes one connected player for diagnostics.
type DiagnosticsPlayer struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]DiagnosticsPlayer, 0, len(h.players))
	for _, state := range h.players {
		players = append(players, DiagnosticsPlayer{
			ID:            state.ID,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
	}
	return players
}

// TelemetrySnapshot exposes the hub counters for diagnostics.
func (h *Hub) TelemetrySnapshot() TelemetrySnapshot {
	return h.telemetry.Snapshot()
}

// Publisher exposes the structured event publisher for the transport layer.
func (h *Hub) Publisher() logging.Publisher {
	return h.publisher
}

// Tick returns the current simulation tick.
func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// TickRate exposes the configured tick rate for diagnostics.
func (h *Hub) TickRate() int {
	return h.cfg.TickRate
}

// HeartbeatInterval exposes the expected client heartbeat cadence.
func (h *Hub) HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
