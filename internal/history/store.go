// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of pipeline runs: which theme each
// run drew, the post it created, and whether it failed.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// DefaultPath is the ledger location used when none is configured.
const DefaultPath = "data/history.db"

const defaultRecentLimit = 20

// Store is the run ledger.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the ledger at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			theme_id INTEGER NOT NULL,
			theme_title TEXT NOT NULL,
			post_id INTEGER NOT NULL DEFAULT 0,
			post_status TEXT NOT NULL DEFAULT '',
			post_link TEXT NOT NULL DEFAULT '',
			media_id INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_theme_id ON runs(theme_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts r, replacing any earlier row with the same ID.
func (s *Store) Record(ctx context.Context, r types.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, theme_id, theme_title, post_id, post_status, post_link, media_id, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ThemeID, r.ThemeTitle, r.PostID, string(r.PostStatus), r.PostLink, r.MediaID,
		formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit
// means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.query(ctx,
		`SELECT id, theme_id, theme_title, post_id, post_status, post_link, media_id, started_at, finished_at, error
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
}

// ForTheme returns every run that drew themeID, oldest first.
func (s *Store) ForTheme(ctx context.Context, themeID int) ([]types.Run, error) {
	return s.query(ctx,
		`SELECT id, theme_id, theme_title, post_id, post_status, post_link, media_id, started_at, finished_at, error
		FROM runs WHERE theme_id = ? ORDER BY started_at, id`, themeID)
}

// runRow is the database shape of a run.
type runRow struct {
	ID         string `db:"id"`
	ThemeID    int    `db:"theme_id"`
	ThemeTitle string `db:"theme_title"`
	PostID     int    `db:"post_id"`
	PostStatus string `db:"post_status"`
	PostLink   string `db:"post_link"`
	MediaID    int    `db:"media_id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Error      string `db:"error"`
}

func (r runRow) toRun() (types.Run, error) {
	run := types.Run{
		ID:         r.ID,
		ThemeID:    r.ThemeID,
		ThemeTitle: r.ThemeTitle,
		PostID:     r.PostID,
		PostStatus: types.PostStatus(r.PostStatus),
		PostLink:   r.PostLink,
		MediaID:    r.MediaID,
		Error:      r.Error,
	}
	var err error
	if run.StartedAt, err = parseTime(r.StartedAt); err != nil {
		return run, fmt.Errorf("parsing started_at for run %s: %w", r.ID, err)
	}
	if run.FinishedAt, err = parseTime(r.FinishedAt); err != nil {
		return run, fmt.Errorf("parsing finished_at for run %s: %w", r.ID, err)
	}
	return run, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]types.Run, error) {
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	runs := make([]types.Run, 0, len(rows))
	for _, row := range rows {
		r, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Timestamps are stored as fixed-width UTC RFC 3339 strings so that
// lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
