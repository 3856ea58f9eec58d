package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"laddersim/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SnapshotKey is the row key the simulator state is saved under.
const SnapshotKey = "tradingSimulatorData"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Compile-time interface check.
var _ SnapshotStore = (*SQLiteSnapshotStore)(nil)

// SQLiteSnapshotStore implements SnapshotStore as a single JSON row in a
// SQLite database.
type SQLiteSnapshotStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteSnapshotStore opens (or creates) a SQLite database at dbPath and
// ensures the schema exists.
func NewSQLiteSnapshotStore(dbPath string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteSnapshotStore{db: db, key: SnapshotKey}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

// Load returns the saved snapshot.
func (s *SQLiteSnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save replaces the saved snapshot.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Clear deletes the saved snapshot.
func (s *SQLiteSnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}
