// Package history keeps a durable trace of past runs: one sqlite row
// per run, plus a compressed transcript of every click a run
// dispatched. History is an observer; losing it never fails a run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dimah98/CBot/internal/bot"
)

type Store struct {
	db  *sql.DB
	dir string
}

// Open creates or opens the run database at path. Transcripts land in
// a transcripts/ directory next to it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dir: dir}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			clicks INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun implements bot.Recorder: inserts the run row and, when
// any clicks were dispatched, writes their transcript.
func (s *Store) RecordRun(ctx context.Context, rec bot.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, farm_id, started_at, finished_at, outcome, clicks, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FarmID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Outcome.String(), len(rec.Clicks), rec.Err,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	if len(rec.Clicks) > 0 {
		if err := writeTranscript(s.transcriptPath(rec.ID), rec.Clicks); err != nil {
			return fmt.Errorf("transcript %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (s *Store) transcriptPath(runID string) string {
	return filepath.Join(s.dir, "transcripts", runID+".jsonl.zst")
}

// RunSummary is one row of the -history listing.
type RunSummary struct {
	ID         string
	FarmID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Clicks     int
	Err        string
}

// RecentRuns returns the latest n runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, farm_id, started_at, finished_at, outcome, clicks, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &r.FarmID, &started, &finished, &r.Outcome, &r.Clicks, &r.Err); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transcript reads back the click transcript of a run.
func (s *Store) Transcript(runID string) ([]bot.Click, error) {
	return readTranscript(s.transcriptPath(runID))
}

func (s *Store) Close() error {
	return s.db.Close()
}
