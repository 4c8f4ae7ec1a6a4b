package server

import (
	"context"
	"fmt"

	"emberfall/server/internal/telemetry"
)

// PlayerLedgerRecord is a player's durable economy state. It survives across
// invasions for the lifetime of the process, and across restarts when a
// LedgerStore is attached.
type PlayerLedgerRecord struct {
	Tokens         int `json:"tokens"`
	Participations int `json:"participations"`
}

// LedgerStore is the external persistence collaborator for ledger records.
// The in-memory ledger stays authoritative while the process runs; the store
// is loaded once at startup and written through on every mutation.
type LedgerStore interface {
	Load(ctx context.Context) (map[string]PlayerLedgerRecord, error)
	Save(ctx context.Context, playerID string, record PlayerLedgerRecord) error
}

// ledger tracks per-player contribution for the active invasion plus the
// durable token balances and participation counters. All methods run under
// the hub mutex; the ledger itself does no locking.
type ledger struct {
	contributions map[string]int
	records       map[string]PlayerLedgerRecord
	store         LedgerStore
	logger        telemetry.Logger
}

func newLedger(store LedgerStore, logger telemetry.Logger) *ledger {
	return &ledger{
		contributions: make(map[string]int),
		records:       make(map[string]PlayerLedgerRecord),
		store:         store,
		logger:        logger,
	}
}

// loadFromStore replaces the in-memory records with the persisted set.
func (l *ledger) loadFromStore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	records, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger records: %w", err)
	}
	l.records = make(map[string]PlayerLedgerRecord, len(records))
	for id, record := range records {
		l.records[id] = record
	}
	return nil
}

// addWeightedKill accumulates weighted contribution for the active invasion,
// creating the entry lazily on the player's first kill.
func (l *ledger) addWeightedKill(playerID string, weight int) {
	l.contributions[playerID] += weight
}

// resetContributions replaces the active-invasion contribution map. Called
// when a new invasion starts; contribution never carries forward.
func (l *ledger) resetContributions() {
	l.contributions = make(map[string]int)
}

func (l *ledger) contribution(playerID string) int {
	return l.contributions[playerID]
}

// creditTokens adds to a player's durable balance.
func (l *ledger) creditTokens(playerID string, amount int) {
	if amount <= 0 {
		return
	}
	record := l.records[playerID]
	record.Tokens += amount
	l.records[playerID] = record
	l.persist(playerID, record)
}

// debitTokens subtracts from a player's balance. Returns false and mutates
// nothing when the balance cannot cover the amount; balances never go
// negative.
func (l *ledger) debitTokens(playerID string, amount int) bool {
	if amount < 0 {
		return false
	}
	record := l.records[playerID]
	if amount > record.Tokens {
		return false
	}
	record.Tokens -= amount
	l.records[playerID] = record
	l.persist(playerID, record)
	return true
}

// incrementParticipation bumps the lifetime participation counter. Called at
// reward time, once per invasion, only for players whose contribution was
// greater than zero.
func (l *ledger) incrementParticipation(playerID string) {
	record := l.records[playerID]
	record.Participations++
	l.records[playerID] = record
	l.persist(playerID, record)
}

func (l *ledger) tokenBalance(playerID string) int {
	return l.records[playerID].Tokens
}

func (l *ledger) participationCount(playerID string) int {
	return l.records[playerID].Participations
}

// persist writes a record through to the store. Store failures are logged
// and otherwise ignored; memory remains the authority while running.
func (l *ledger) persist(playerID string, record PlayerLedgerRecord) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(context.Background(), playerID, record); err != nil && l.logger != nil {
		l.logger.Printf("failed to persist ledger record for %s: %v", playerID, err)
	}
}
