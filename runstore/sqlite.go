package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/astro-run/constellation-runtime/constellation"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file SQLite-backed Store, grounded on the
// teacher's graph/store/sqlite.go (WAL mode, busy timeout, auto-migrated
// schema), narrowed to the single `runs` table the §4.2 contract needs
// instead of the teacher's step/checkpoint/idempotency/outbox tables.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures the runs table exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports one writer at a time.

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("runstore: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			constellation_id TEXT NOT NULL,
			status TEXT NOT NULL,
			record TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("runstore: create runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_runs_constellation ON runs(constellation_id)"); err != nil {
		return fmt.Errorf("runstore: create constellation index: %w", err)
	}
	return nil
}

// UpsertRun implements Store.
func (s *SQLiteStore) UpsertRun(ctx context.Context, record *constellation.Run) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("runstore: marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const stmt = `
		INSERT INTO runs (id, constellation_id, status, record, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			constellation_id = excluded.constellation_id,
			status = excluded.status,
			record = excluded.record,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, stmt, record.ID, record.ConstellationID, string(record.Status), string(body)); err != nil {
		return fmt.Errorf("runstore: upsert run: %w", err)
	}
	return nil
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*constellation.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, "SELECT record FROM runs WHERE id = ?", id)
	var body string
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("runstore: get run: %w", err)
	}

	var record constellation.Run
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, fmt.Errorf("runstore: unmarshal run: %w", err)
	}
	return &record, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
