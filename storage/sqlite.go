// Package storage provides SQLite checkpoint storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/govsummary/model"
)

// SqliteStore implements CheckpointStore using SQLite.
// Each run is one row holding the JSON encoded state.
type SqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection would open its own empty database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db, now: time.Now}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			cursor INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_updated
		ON runs(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores the state, replacing any earlier checkpoint of the run.
func (s *SqliteStore) Save(ctx context.Context, state *model.ExecutionState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, input, cursor, steps, errors, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			cursor = excluded.cursor,
			steps = excluded.steps,
			errors = excluded.errors,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		state.RunID, state.Input, state.Cursor, len(state.Plan.Steps), len(state.Errors), string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint of a run.
func (s *SqliteStore) Load(ctx context.Context, runID string) (*model.ExecutionState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM runs WHERE run_id = ?", runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decodeState([]byte(data))
}

// List returns every stored run, most recently updated first.
func (s *SqliteStore) List(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, input, cursor, steps, errors, updated_at
		FROM runs
		ORDER BY updated_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var info RunInfo
		var updated int64
		if err := rows.Scan(&info.RunID, &info.Input, &info.Cursor, &info.Steps, &info.Errors, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updated)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run.
func (s *SqliteStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// Verify SqliteStore implements CheckpointStore
var _ CheckpointStore = (*SqliteStore)(nil)
