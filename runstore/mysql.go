package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/astro-run/constellation-runtime/constellation"
)

// MySQLStore is a MySQL-backed Store for deployments that already run a
// MySQL cluster for other services, grounded on the teacher's
// graph/store/mysql.go, narrowed to the single `runs` table the §4.2
// contract needs.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn (in the form the
// go-sql-driver/mysql package expects, e.g.
// "user:pass@tcp(127.0.0.1:3306)/dbname?parseTime=true") and ensures the
// runs table exists.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(64) PRIMARY KEY,
			constellation_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			record JSON NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_runs_constellation (constellation_id)
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("runstore: create runs table: %w", err)
	}
	return nil
}

// UpsertRun implements Store.
func (s *MySQLStore) UpsertRun(ctx context.Context, record *constellation.Run) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("runstore: marshal run: %w", err)
	}

	const stmt = `
		INSERT INTO runs (id, constellation_id, status, record)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			constellation_id = VALUES(constellation_id),
			status = VALUES(status),
			record = VALUES(record)
	`
	if _, err := s.db.ExecContext(ctx, stmt, record.ID, record.ConstellationID, string(record.Status), string(body)); err != nil {
		return fmt.Errorf("runstore: upsert run: %w", err)
	}
	return nil
}

// GetRun implements Store.
func (s *MySQLStore) GetRun(ctx context.Context, id string) (*constellation.Run, error) {
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

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
