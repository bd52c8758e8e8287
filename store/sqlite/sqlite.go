/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements batch.Store (the host key/value boundary) and batch.Sink (the
  event log) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  batch.Store: Contract state (admin, counters, entities)
  batch.Sink:  Append-only event log

KEY TABLES:
  kv:     One row per (contract, scope, key); values are opaque JSON blobs
          written by the state layer
  events: Immutable log of engine and contract events

APPEND-ONLY ENFORCEMENT:
  The events table is never updated or deleted outside Reset. Emitting is
  fire-and-forget per the Sink contract, so insert failures are swallowed;
  consumers needing delivery guarantees should use a dedicated sink.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/batches.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := transfer.NewService(store, authn, nil, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - batch/store.go: Interface definition
  - batch/store/memory.go: In-memory implementation for testing
  - batch/events.go: Event shape and sink contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/batch-engine/batch"
)

// Store implements batch.Store and batch.Sink using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Contract state (one row per key)
	CREATE TABLE IF NOT EXISTS kv (
		contract TEXT NOT NULL,
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (contract, scope, key)
	);

	-- For entity listings per contract
	CREATE INDEX IF NOT EXISTS idx_kv_contract_scope
		ON kv(contract, scope);

	-- Events (append-only log)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		batch_id INTEGER NOT NULL,
		payload_json TEXT,
		at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_category_batch
		ON events(category, batch_id);
	CREATE INDEX IF NOT EXISTS idx_events_action
		ON events(action);
	CREATE INDEX IF NOT EXISTS idx_events_created_at
		ON events(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// KEY/VALUE STORE (batch.Store interface)
// =============================================================================

// Get returns the value for key and whether it exists.
func (s *Store) Get(ctx context.Context, contract string, scope batch.Scope, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE contract = ? AND scope = ? AND key = ?",
		contract, string(scope), key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s/%s: %w", contract, scope, key, err)
	}
	return value, true, nil
}

// Set writes the value for key, overwriting any previous value.
func (s *Store) Set(ctx context.Context, contract string, scope batch.Scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO kv (contract, scope, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contract, scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		contract, string(scope), key, value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s/%s: %w", contract, scope, key, err)
	}
	return nil
}

// Has reports whether key exists without loading the value.
func (s *Store) Has(ctx context.Context, contract string, scope batch.Scope, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM kv WHERE contract = ? AND scope = ? AND key = ?",
		contract, string(scope), key,
	).Scan(&count)

	return count > 0, err
}

// Keys returns all keys for a contract and scope, sorted. Useful for
// admin views; the engine itself never lists keys.
func (s *Store) Keys(ctx context.Context, contract string, scope batch.Scope) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE contract = ? AND scope = ? ORDER BY key",
		contract, string(scope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// =============================================================================
// EVENT LOG (batch.Sink interface)
// =============================================================================

// Emit appends an event to the log. Fire-and-forget: failures are
// dropped, matching the Sink contract.
func (s *Store) Emit(e batch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payloadJSON []byte
	if e.Payload != nil {
		payloadJSON, _ = json.Marshal(e.Payload)
	}

	query := `
		INSERT INTO events (id, category, action, batch_id, payload_json, at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	s.db.Exec(query,
		e.ID, e.Category, e.Action, e.BatchID,
		string(payloadJSON),
		e.At.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
}

// EventsByBatch returns all events one batch produced, oldest first.
func (s *Store) EventsByBatch(ctx context.Context, category string, batchID uint64) ([]batch.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, category, action, batch_id, payload_json, at
		FROM events
		WHERE category = ? AND batch_id = ?
		ORDER BY created_at ASC
	`

	return s.queryEvents(ctx, query, category, batchID)
}

// RecentEvents returns the newest events across all contracts.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]batch.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, category, action, batch_id, payload_json, at
		FROM events
		ORDER BY created_at DESC
		LIMIT ?
	`

	return s.queryEvents(ctx, query, limit)
}

// EventsByAction returns events with the given action, oldest first.
func (s *Store) EventsByAction(ctx context.Context, category, action string) ([]batch.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, category, action, batch_id, payload_json, at
		FROM events
		WHERE category = ? AND action = ?
		ORDER BY created_at ASC
	`

	return s.queryEvents(ctx, query, category, action)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]batch.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []batch.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (batch.Event, error) {
	var (
		e           batch.Event
		payloadJSON sql.NullString
		at          string
	)

	if err := rows.Scan(&e.ID, &e.Category, &e.Action, &e.BatchID, &payloadJSON, &at); err != nil {
		return e, fmt.Errorf("failed to scan event: %w", err)
	}

	e.At, _ = time.Parse(time.RFC3339Nano, at)
	if payloadJSON.Valid && payloadJSON.String != "" {
		json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
	}

	return e, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"kv", "events"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
