// Package history keeps a SQLite record of station runs so that a bench
// can answer "when did this test last fail" without the capture files.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eol-bench/eol-go/internal/sequencer"
)

//go:embed schema.sql
var schemaSQL string

// Fixed width so that started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a results database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between station goroutines.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		schemaSQL,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a suite result and its test results. Recording the same
// run twice is a no-op.
func (s *Store) Record(ctx context.Context, r *sequencer.SuiteResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, suite, fingerprint, started_at, duration_ms, passed, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		r.RunID,
		r.SuiteName,
		r.SchemaFingerprint,
		r.StartTime.UTC().Format(timeLayout),
		r.Duration.Milliseconds(),
		r.PassCount,
		r.FailCount,
		r.SkipCount,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for i, tr := range r.Results {
		var name, kind string
		if tr.Test != nil {
			name, kind = tr.Test.Name, string(tr.Test.Kind)
		}
		detail := tr.Detail
		if tr.Skipped {
			detail = tr.SkipReason
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, seq, test, kind, outcome, detail, error_kind, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.RunID, i, name, kind, Outcome(tr), detail, tr.ErrorKind, tr.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Outcome is the stored outcome string of a test result.
func Outcome(tr *sequencer.TestResult) string {
	switch {
	case tr.Skipped:
		return "skipped"
	case tr.Passed:
		return "passed"
	default:
		return "failed"
	}
}

// Run summarizes one recorded station run.
type Run struct {
	RunID       string
	Suite       string
	Fingerprint string
	StartTime   time.Time
	Duration    time.Duration
	Passed      int
	Failed      int
	Skipped     int
}

// Entry is one recorded execution of a test.
type Entry struct {
	RunID     string
	StartTime time.Time
	Outcome   string
	Detail    string
	ErrorKind string
	Duration  time.Duration
}

// Runs returns up to limit runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, suite, fingerprint, started_at, duration_ms, passed, failed, skipped
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.RunID, &r.Suite, &r.Fingerprint, &started, &ms, &r.Passed, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartTime, _ = time.Parse(timeLayout, started)
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// TestHistory returns up to limit executions of the named test, newest first.
func (s *Store) TestHistory(ctx context.Context, test string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, t.outcome, t.detail, t.error_kind, t.duration_ms
		FROM results t JOIN runs r ON r.run_id = t.run_id
		WHERE t.test = ?
		ORDER BY r.started_at DESC, t.seq DESC LIMIT ?
	`, test, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", test, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started string
			ms      int64
		)
		if err := rows.Scan(&e.RunID, &started, &e.Outcome, &e.Detail, &e.ErrorKind, &ms); err != nil {
			return nil, fmt.Errorf("scan %s: %w", test, err)
		}
		e.StartTime, _ = time.Parse(timeLayout, started)
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
