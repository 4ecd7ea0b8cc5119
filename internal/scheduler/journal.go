// Package scheduler implements the C7 cleanup scheduler: three recurring
// jobs (daily expiry, weekly consolidation, monthly importance decay) run
// against the C3 store, each journaled to a local modernc.org/sqlite
// database (spec §4.5, SPEC_FULL §4.5.1).
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal persists one row per scheduler run to a local cleanup_runs table,
// independent of the hot Redis path (SPEC_FULL §4.5.1). It uses a single
// inlined CREATE TABLE IF NOT EXISTS rather than the teacher's file-based
// migration manager (internal/storage/migrations.go): with exactly one
// table to manage, a migration directory would be pure ceremony.
type Journal struct {
	db *sql.DB
}

// Run is one journaled job execution (spec §4.5 "journal a short summary").
type Run struct {
	JobType    string
	StartedAt  time.Time
	FinishedAt time.Time
	Deleted    int
	Merged     int
	Demoted    int
	Error      string
}

// OpenJournal opens (creating if necessary) the sqlite-backed journal at
// path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scheduler: opening journal: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cleanup_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			job_type    TEXT NOT NULL,
			started_at  TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			deleted     INTEGER NOT NULL DEFAULT 0,
			merged      INTEGER NOT NULL DEFAULT 0,
			demoted     INTEGER NOT NULL DEFAULT 0,
			error       TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("scheduler: creating cleanup_runs: %w", err)
	}
	return nil
}

// Record journals one completed run.
func (j *Journal) Record(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cleanup_runs (job_type, started_at, finished_at, deleted, merged, demoted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.JobType, r.StartedAt, r.FinishedAt, r.Deleted, r.Merged, r.Demoted, nullableError(r.Error))
	if err != nil {
		return fmt.Errorf("scheduler: recording run: %w", err)
	}
	return nil
}

// Recent returns the limit most recent runs of jobType, newest first, for
// operators inspecting scheduler health.
func (j *Journal) Recent(ctx context.Context, jobType string, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT job_type, started_at, finished_at, deleted, merged, demoted, COALESCE(error, '')
		FROM cleanup_runs
		WHERE job_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, jobType, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduler: querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.JobType, &r.StartedAt, &r.FinishedAt, &r.Deleted, &r.Merged, &r.Demoted, &r.Error); err != nil {
			return nil, fmt.Errorf("scheduler: scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes journal rows older than olderThan, keeping the journal
// itself from growing unbounded. This is the journal's sole retention
// mechanism; cleanup_runs has no per-tier policy to honour, so a single age
// cutoff is sufficient (DESIGN.md: internal/backup's tiered hourly/daily/
// weekly/monthly rotation was dropped rather than adapted for this reason).
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := j.db.ExecContext(ctx, `DELETE FROM cleanup_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scheduler: pruning journal: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the journal's database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

func nullableError(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
