// Package state persists the reconciliation engine's durable facts: the
// auto-print enabled flag, the activation timestamp, and the processed-order
// ledger. Everything else (the pending queue included) is transient and
// re-derived after a restart.
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS autoprint_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_orders (
    order_id    INTEGER PRIMARY KEY,
    recorded_at TEXT NOT NULL
);
`

const (
	keyEnabled     = "enabled"
	keyActivatedAt = "activated_at"
)

// Store is the SQLite-backed state store. SQLite only supports one writer at
// a time, so the pool is pinned to a single connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the state database at path. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to state db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply state schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Epoch returns the persisted activation epoch. A missing row means
// auto-print was never enabled.
func (s *Store) Epoch() (enabled bool, activatedAt time.Time, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT value FROM autoprint_state WHERE key = ?`, keyEnabled).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	enabled = raw == "true"

	err = s.db.QueryRow(`SELECT value FROM autoprint_state WHERE key = ?`, keyActivatedAt).Scan(&raw)
	if err == sql.ErrNoRows {
		return enabled, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	activatedAt, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("corrupt activated_at %q: %w", raw, err)
	}
	return enabled, activatedAt, nil
}

// SetEpoch persists the enabled flag and activation timestamp together.
func (s *Store) SetEpoch(enabled bool, activatedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	value := "false"
	if enabled {
		value = "true"
	}
	if _, err := tx.Exec(`INSERT INTO autoprint_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, keyEnabled, value); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO autoprint_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		keyActivatedAt, activatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkProcessed records an order id in the idempotency ledger. Recording the
// same id twice is a no-op, which is what lets redundant detectors race
// safely.
func (s *Store) MarkProcessed(orderID int64, at time.Time) error {
	_, err := s.db.Exec(`INSERT INTO processed_orders (order_id, recorded_at) VALUES (?, ?)
		ON CONFLICT(order_id) DO NOTHING`, orderID, at.UTC().Format(time.RFC3339Nano))
	return err
}

// Processed returns the full set of processed order ids for this epoch.
func (s *Store) Processed() (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT order_id FROM processed_orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ClearProcessed empties the processed ledger. Called when a new activation
// epoch starts.
func (s *Store) ClearProcessed() error {
	_, err := s.db.Exec(`DELETE FROM processed_orders`)
	return err
}

// Reset clears every persisted key: epoch and ledger. This is the operator's
// explicit "start over" action.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM autoprint_state`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM processed_orders`); err != nil {
		return err
	}
	return tx.Commit()
}
