package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	run_id     TEXT NOT NULL,
	task_id    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, task_id)
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// SQLite persists accepted results to an SQLite database, one row per
// (run, task). WAL mode is enabled for concurrent reads while a run writes.
type SQLite struct {
	conn  *sql.DB
	runID string
	mu    sync.Mutex
}

// DefaultDBPath returns the default results database location.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "concord", "results.db")
}

// OpenSQLite opens (and if needed creates) the results database at path and
// scopes subsequent writes to the given run ID.
func OpenSQLite(path, runID string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec(resultsSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{conn: conn, runID: runID}, nil
}

// Accept implements Sink.
func (s *SQLite) Accept(ctx context.Context, taskID, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (run_id, task_id, content, created_at) VALUES (?, ?, ?, ?)`,
		s.runID, taskID, result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store result for %s: %w", taskID, err)
	}
	return nil
}

// Results returns all stored results for this sink's run, keyed by task ID.
func (s *SQLite) Results(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT task_id, content FROM results WHERE run_id = ?`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]string)
	for rows.Next() {
		var taskID, content string
		if err := rows.Scan(&taskID, &content); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results[taskID] = content
	}
	return results, rows.Err()
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	RunID      string
	Results    int
	FinishedAt time.Time
}

// Runs lists every run in the database, newest first.
func (s *SQLite) Runs(ctx context.Context) ([]RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT run_id, COUNT(*), MAX(created_at) FROM results GROUP BY run_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var finished string
		if err := rows.Scan(&info.RunID, &info.Results, &finished); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		// MAX() strips the column's TIMESTAMP decltype, so the driver
		// returns the stored text form rather than a time.Time.
		t, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", finished)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		info.FinishedAt = t
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// ResultsForRun returns stored results for an arbitrary run ID, keyed by
// task ID. Unlike Results it ignores the sink's own run scope.
func (s *SQLite) ResultsForRun(ctx context.Context, runID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT task_id, content FROM results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]string)
	for rows.Next() {
		var taskID, content string
		if err := rows.Scan(&taskID, &content); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results[taskID] = content
	}
	return results, rows.Err()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
