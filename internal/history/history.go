// Package history records dashboard refresh runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/ai4p/usagedash/internal/history/migrations"
	"github.com/ai4p/usagedash/internal/logging"
)

// Run statuses.
const (
	StatusOK          = "ok"
	StatusEmpty       = "empty"
	StatusScrapeError = "scrape_error"
	StatusRenderError = "render_error"
)

// Run triggers.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// Run is one dashboard refresh attempt.
type Run struct {
	ID          string    `json:"id"`
	Trigger     string    `json:"trigger"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	RowsMatched int       `json:"rows_matched"`
	OrgUsage    string    `json:"org_usage,omitempty"`
	Uploaded    bool      `json:"uploaded"`
	UploadError string    `json:"upload_error,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Store persists runs behind a single serialized connection.
type Store struct {
	db       *sql.DB
	keepRuns int
}

// Open creates the SQLite database, runs migrations, and returns a
// Store that retains the most recent keepRuns runs (0 keeps all).
func Open(path string, keepRuns int) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't handle concurrent writers well; serialize all
	// access through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Infof("Run history database ready at %s", path)
	return &Store{db: db, keepRuns: keepRuns}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a finished run and prunes old ones. Assigns an ID if
// the run doesn't have one yet.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	uploaded := 0
	if run.Uploaded {
		uploaded = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, started_at, finished_at, rows_matched, org_usage, uploaded, upload_error, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.Status,
		run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.RowsMatched, run.OrgUsage, uploaded, run.UploadError, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return s.prune(ctx)
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, started_at, finished_at, rows_matched, org_usage, uploaded, upload_error, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Last returns the most recent run, or nil when none exist.
func (s *Store) Last(ctx context.Context) (*Run, error) {
	return s.one(ctx,
		`SELECT id, source, status, started_at, finished_at, rows_matched, org_usage, uploaded, upload_error, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
}

// LastSuccess returns the most recent run that produced a dashboard.
func (s *Store) LastSuccess(ctx context.Context) (*Run, error) {
	return s.one(ctx,
		`SELECT id, source, status, started_at, finished_at, rows_matched, org_usage, uploaded, upload_error, error
		 FROM runs WHERE status = ? ORDER BY started_at DESC, id DESC LIMIT 1`, StatusOK)
}

func (s *Store) one(ctx context.Context, query string, args ...any) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) prune(ctx context.Context) error {
	if s.keepRuns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN
		 (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`, s.keepRuns)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var r Run
	var started, finished int64
	var uploaded int
	if err := s.Scan(&r.ID, &r.Trigger, &r.Status, &started, &finished,
		&r.RowsMatched, &r.OrgUsage, &uploaded, &r.UploadError, &r.Error); err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(started, 0)
	if finished > 0 {
		r.FinishedAt = time.Unix(finished, 0)
	}
	r.Uploaded = uploaded != 0
	return r, nil
}
