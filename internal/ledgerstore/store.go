// Package ledgerstore persists player ledger records in SQLite. It is the
// external persistence collaborator for the hub's ledger: loaded once at
// startup, written through on every mutation, never read on the hot path.
package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	server "emberfall/server"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_ledger (
	player_id      TEXT PRIMARY KEY,
	tokens         INTEGER NOT NULL DEFAULT 0 CHECK (tokens >= 0),
	participations INTEGER NOT NULL DEFAULT 0 CHECK (participations >= 0)
);
`

// Store is a SQLite-backed server.LedgerStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger store path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements server.LedgerStore.
func (s *Store) Load(ctx context.Context) (map[string]server.PlayerLedgerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id, tokens, participations FROM player_ledger`)
	if err != nil {
		return nil, fmt.Errorf("query ledger records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]server.PlayerLedgerRecord)
	for rows.Next() {
		var playerID string
		var record server.PlayerLedgerRecord
		if err := rows.Scan(&playerID, &record.Tokens, &record.Participations); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		records[playerID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger records: %w", err)
	}
	return records, nil
}

// Save implements server.LedgerStore.
func (s *Store) Save(ctx context.Context, playerID string, record server.PlayerLedgerRecord) error {
	if strings.TrimSpace(playerID) == "" {
		return fmt.Errorf("player id is required")
	}
	if record.Tokens < 0 || record.Participations < 0 {
		return fmt.Errorf("refusing to persist negative ledger record for %s", playerID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_ledger (player_id, tokens, participations)
		 VALUES (?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET
		   tokens = excluded.tokens,
		   participations = excluded.participations`,
		playerID, record.Tokens, record.Participations,
	)
	if err != nil {
		return fmt.Errorf("upsert ledger record for %s: %w", playerID, err)
	}
	return nil
}
