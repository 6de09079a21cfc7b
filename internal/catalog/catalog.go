// Package catalog persists a run ledger — one row per TaskResult a
// Scheduler produces — in DuckDB, queryable with plain SQL once a run
// finishes. Adapted from internal/db's singleton-connection pattern
// (same spatial+parquet extension loading), repurposed from a tile
// metadata store into a job/task history store.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/geopyramid/internal/task"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config points the catalog at a data directory and database file.
type Config struct {
	DataDir string
	DBName  string
}

// Open returns the singleton DuckDB connection backing the catalog,
// creating the schema on first use.
func Open(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create catalog directory: %w", err)
			return
		}

		dbPath := filepath.Join(dir, cfg.DBName+".duckdb")
		instance, initErr = sql.Open("duckdb", dbPath)
		if initErr != nil {
			return
		}

		for _, ext := range []string{"spatial", "parquet"} {
			// Extensions may already be bundled; ignore install errors.
			_, _ = instance.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext))
		}

		initErr = migrate(instance)
	})
	return instance, initErr
}

// Close closes the catalog's database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id      VARCHAR PRIMARY KEY,
			process     VARCHAR,
			mode        VARCHAR,
			started_at  TIMESTAMP,
			finished_at TIMESTAMP,
			cancelled   BOOLEAN
		);
		CREATE TABLE IF NOT EXISTS task_results (
			run_id    VARCHAR,
			task_id   VARCHAR,
			zoom      INTEGER,
			row       INTEGER,
			col       INTEGER,
			processed BOOLEAN,
			message   VARCHAR
		);
	`)
	return err
}

// Ledger records a Scheduler run's TaskResults against a run id.
type Ledger struct {
	db *sql.DB
}

// NewLedger wraps an already-opened catalog connection.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// StartRun inserts a run row, returning once it is recorded.
func (l *Ledger) StartRun(runID, process, mode string) error {
	_, err := l.db.Exec(
		`INSERT INTO runs (run_id, process, mode, started_at, cancelled) VALUES (?, ?, ?, now(), false)`,
		runID, process, mode,
	)
	return err
}

// FinishRun marks a run as complete, recording whether it was cancelled.
func (l *Ledger) FinishRun(runID string, cancelled bool) error {
	_, err := l.db.Exec(
		`UPDATE runs SET finished_at = now(), cancelled = ? WHERE run_id = ?`,
		cancelled, runID,
	)
	return err
}

// RecordResult appends one TaskResult row for runID.
func (l *Ledger) RecordResult(runID string, r task.TaskResult) error {
	var zoom, row, col any
	if r.Tile != nil {
		zoom, row, col = r.Tile.Zoom, r.Tile.Row, r.Tile.Col
	}
	_, err := l.db.Exec(
		`INSERT INTO task_results (run_id, task_id, zoom, row, col, processed, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, r.TaskID, zoom, row, col, r.Processed, r.Message,
	)
	return err
}

// RunSummary is the aggregate row catalog.Summarize returns for a run id.
type RunSummary struct {
	RunID     string
	Process   string
	Mode      string
	Cancelled bool
	Total     int
	Processed int
}

// Summarize aggregates a run's task_results rows plus its runs row.
func (l *Ledger) Summarize(runID string) (RunSummary, error) {
	s := RunSummary{RunID: runID}
	row := l.db.QueryRow(`SELECT process, mode, cancelled FROM runs WHERE run_id = ?`, runID)
	if err := row.Scan(&s.Process, &s.Mode, &s.Cancelled); err != nil {
		return s, fmt.Errorf("run %s not found: %w", runID, err)
	}

	counts := l.db.QueryRow(
		`SELECT count(*), count(*) FILTER (WHERE processed) FROM task_results WHERE run_id = ?`,
		runID,
	)
	if err := counts.Scan(&s.Total, &s.Processed); err != nil {
		return s, err
	}
	return s, nil
}
