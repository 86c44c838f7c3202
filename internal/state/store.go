// Package state persists run outcomes to SQLite so operators can audit
// what the workflow core did on behalf of users. The core only depends
// on the coordinate.Recorder interface; this is the stock implementation.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brightdesk/workflow/pkg/models"
)

// Store records runs and subtask outcomes in an SQLite database.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the run database location under the XDG data dir.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "brightdesk", "runs.db")
}

// Open opens (creating if needed) the run database at path with WAL mode
// and foreign keys enabled, and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
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
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Steps},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT,
	tenant TEXT NOT NULL DEFAULT '',
	request TEXT NOT NULL,
	success INTEGER NOT NULL,
	message TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	retries INTEGER NOT NULL DEFAULT 0,
	quality_score REAL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_plan_id ON runs(plan_id);
CREATE INDEX IF NOT EXISTS idx_runs_tenant ON runs(tenant);
`

const migrationV2Steps = `
CREATE TABLE IF NOT EXISTS run_steps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	subtask_id TEXT NOT NULL,
	name TEXT NOT NULL,
	capability TEXT NOT NULL,
	status TEXT NOT NULL,
	retries INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);
`

// RecordRun stores one run and, when a plan is present, its per-step
// outcomes. Fast-path runs arrive with a nil plan.
func (s *Store) RecordRun(ctx context.Context, request string, p *models.ExecutionPlan, res *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}

	planID := ""
	tenant := ""
	if p != nil {
		planID = p.ID
		tenant = p.Tenant
	}
	var score any
	if res.Quality != nil {
		score = res.Quality.Score
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (plan_id, tenant, request, success, message, duration_ms,
			completed, failed, skipped, retries, quality_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		planID, tenant, request, boolToInt(res.Success), res.Message,
		res.Duration.Milliseconds(), len(res.Completed), len(res.Failed),
		len(res.Skipped), res.TotalRetries, score, time.Now().UTC())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	if p != nil {
		runID, err := result.LastInsertId()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("run id: %w", err)
		}
		for _, t := range p.SubTasks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_steps (run_id, subtask_id, name, capability, status, retries, error)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, t.ID, t.Name, t.Capability, string(t.Status), t.RetryCount, t.Error); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert run step: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RunSummary is one recorded run, newest first in listings.
type RunSummary struct {
	// ID is the row id of the run.
	ID int64
	// PlanID is empty for fast-path runs.
	PlanID string
	// Tenant is the workspace the run belonged to.
	Tenant string
	// Request is the original user request.
	Request string
	// Success mirrors the execution result.
	Success bool
	// Message is the user-facing outcome message.
	Message string
	// Duration is the wall-clock run time.
	Duration time.Duration
	// Completed, Failed, and Skipped are step counts.
	Completed, Failed, Skipped int
	// CreatedAt is when the run was recorded.
	CreatedAt time.Time
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, plan_id, tenant, request, success, message, duration_ms,
			completed, failed, skipped, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.PlanID, &r.Tenant, &r.Request, &success,
			&r.Message, &durationMS, &r.Completed, &r.Failed, &r.Skipped, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Success = success != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
