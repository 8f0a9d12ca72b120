//go:build sqlite

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run records as JSON payloads in a single table. Trace
// files stay under baseDir/runs/<id>/ so the trace writer is shared with
// FSStore.
type SQLiteStore struct {
	baseDir string
	path    string

	mu sync.RWMutex
	db *sql.DB
}

func newSQLiteStore(baseDir, path string) (Store, error) {
	s := NewSQLiteStore(baseDir, path)
	if err := s.Init(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func NewSQLiteStore(baseDir, path string) *SQLiteStore {
	return &SQLiteStore{baseDir: baseDir, path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			finished_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(record *RunRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
		INSERT INTO runs (id, finished_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			payload = excluded.payload
	`, record.ID, record.Timestamp.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("save run %s: %w", record.ID, err)
	}
	slog.Debug("Run saved", "runID", record.ID, "path", s.path)
	return nil
}

func (s *SQLiteStore) LoadRun(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(context.Background(), `SELECT payload FROM runs WHERE id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, err
	}

	var record RunRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &record, nil
}

func (s *SQLiteStore) ListRuns() ([]RunInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(context.Background(), `SELECT id, payload FROM runs ORDER BY finished_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := []RunInfo{}
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var record RunRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			slog.Warn("Failed to decode run for listing", "runID", id, "error", err)
			continue
		}
		infos = append(infos, record.ToInfo())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *SQLiteStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(context.Background(), `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}

	if err := os.RemoveAll(RunDir(s.baseDir, runID)); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}
	slog.Debug("Run deleted", "runID", runID)
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
