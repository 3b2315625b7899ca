package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the part of *DB the run journal needs (for testing)
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ResultRecord is the outcome of one (URL, group) task
type ResultRecord struct {
	RunID      uuid.UUID
	URL        string
	Group      string
	Success    bool
	Entries    int
	Error      string
	FinishedAt time.Time
}

// RunRepository journals scrape runs and their per-task outcomes
type RunRepository struct {
	db Execer
}

// NewRunRepository creates a new run repository
func NewRunRepository(db Execer) *RunRepository {
	return &RunRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS scrape_run (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scrape_result (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL REFERENCES scrape_run(id) ON DELETE CASCADE,
	url         TEXT NOT NULL,
	group_name  TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	entries     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_result_run_id ON scrape_result(run_id);`

// EnsureSchema creates the journal tables if they do not exist
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StartRun inserts a run row
func (r *RunRepository) StartRun(ctx context.Context, id uuid.UUID, total int, startedAt time.Time) error {
	query := `
		INSERT INTO scrape_run (id, started_at, total)
		VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, id, startedAt, total); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordResult inserts one task outcome
func (r *RunRepository) RecordResult(ctx context.Context, rec ResultRecord) error {
	query := `
		INSERT INTO scrape_result (run_id, url, group_name, success, entries, error, finished_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`

	if _, err := r.db.Exec(ctx, query,
		rec.RunID, rec.URL, rec.Group, rec.Success, rec.Entries, rec.Error, rec.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its success tally
func (r *RunRepository) FinishRun(ctx context.Context, id uuid.UUID, succeeded int, finishedAt time.Time) error {
	query := `
		UPDATE scrape_run
		SET finished_at = $2, succeeded = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, finishedAt, succeeded)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}
