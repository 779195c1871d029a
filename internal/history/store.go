package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"stockpile/internal/config"
	"stockpile/internal/work"
)

// Store persists completed runs and their per-item results in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run summarizes one invocation of the retrieval pool.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Finished   bool
	ItemCount  int
	Succeeded  int
	Failed     int
}

// ResultRecord is one item outcome within a run.
type ResultRecord struct {
	RunID            string
	ItemID           string
	Success          bool
	Method           string
	ErrorMessage     string
	BytesTransferred int64
	Duration         time.Duration
	Attempts         int
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath connects to the history database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time, itemCount int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, item_count) VALUES (?, ?, ?)",
		id, startedAt.UTC().Format(time.RFC3339Nano), itemCount,
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records the run's outcome and all item results in one
// transaction.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, results []work.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	failed := len(results) - succeeded

	if _, err := tx.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?",
		finishedAt.UTC().Format(time.RFC3339Nano), succeeded, failed, id,
	); err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}

	for _, result := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results
			   (run_id, item_id, success, method, error_message, bytes_transferred, duration_ms, attempts)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, result.ID, boolToInt(result.Success), result.Method, result.ErrorMessage,
			result.Metrics.BytesTransferred, result.Metrics.Duration.Milliseconds(), result.Metrics.Attempts,
		); err != nil {
			return fmt.Errorf("record result for %s: %w", result.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish tx: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), item_count, succeeded, failed
		   FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &started, &finished, &run.ItemCount, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run start time: %w", err)
		}
		if finished != "" {
			if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
				return nil, fmt.Errorf("parse run finish time: %w", err)
			}
			run.Finished = true
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunResults returns all item results recorded for a run.
func (s *Store) RunResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, item_id, success, method, error_message, bytes_transferred, duration_ms, attempts
		   FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var record ResultRecord
		var success int
		var durationMS int64
		if err := rows.Scan(&record.RunID, &record.ItemID, &success, &record.Method,
			&record.ErrorMessage, &record.BytesTransferred, &durationMS, &record.Attempts); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		record.Success = success != 0
		record.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, record)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
