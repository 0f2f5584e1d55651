// Package manifest records capture runs in SQLite so a visual-QA pipeline
// can audit what was captured, when, and where the artifacts went.
package manifest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one capture invocation.
type Run struct {
	ID        string
	URL       string
	Strategy  string // full_page, paginated, viewport, element
	Selector  string // scrolling element selector, when Strategy is element
	Pages     int
	Bytes     int64
	Format    string
	Keys      string // comma-joined artifact keys or file paths
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Store wraps the manifest database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the manifest database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open db: %w", err)
	}

	// Production-safe pragmas, applied via EXEC to stay driver-agnostic.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("manifest: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS capture_runs (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    selector    TEXT NOT NULL DEFAULT '',
    pages       INTEGER NOT NULL DEFAULT 0,
    bytes       INTEGER NOT NULL DEFAULT 0,
    format      TEXT NOT NULL DEFAULT 'png',
    keys        TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_capture_runs_started ON capture_runs(started_at DESC);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Record inserts a run. A missing ID is generated.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = newRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capture_runs (
			id, url, strategy, selector, pages, bytes, format, keys,
			started_at, duration_ms, error
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.URL, run.Strategy, run.Selector, run.Pages, run.Bytes,
		run.Format, run.Keys, run.StartedAt.Unix(),
		run.Duration.Milliseconds(), run.Error)
	if err != nil {
		return "", fmt.Errorf("manifest: record run: %w", err)
	}
	return run.ID, nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, strategy, selector, pages, bytes, format, keys,
		       started_at, duration_ms, error
		FROM capture_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("manifest: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.Strategy, &r.Selector, &r.Pages,
			&r.Bytes, &r.Format, &r.Keys, &startedAt, &durationMS, &r.Error); err != nil {
			return nil, fmt.Errorf("manifest: scan run: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func newRunID() string {
	var b [8]byte
	rand.Read(b[:])
	return "run_" + hex.EncodeToString(b[:])
}
