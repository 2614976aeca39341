package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hoanghai1803/folio/internal/models"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

const runColumns = `id, pipeline, status, items, warnings, failures_json,
	error, output, duration_ms, created_at`

// CreateRun records one pipeline execution and returns its ID. A zero
// CreatedAt is stamped with the current time.
func (s *Store) CreateRun(ctx context.Context, run *models.Run) (int64, error) {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	failures := run.FailuresJSON
	if failures == "" {
		failures = "[]"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs
			(pipeline, status, items, warnings, failures_json, error, output, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Pipeline, run.Status, run.Items, run.Warnings, failures,
		run.Error, run.Output, run.DurationMS, createdAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting run id: %w", err)
	}
	return id, nil
}

// GetRecentRuns returns up to limit runs of any pipeline, newest first.
func (s *Store) GetRecentRuns(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+`
		 FROM runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}

// GetLatestRun returns the most recent run of the given pipeline, or of any
// pipeline when pipeline is empty. It returns ErrNotFound if there is none.
func (s *Store) GetLatestRun(ctx context.Context, pipeline string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE ? = '' OR pipeline = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, pipeline, pipeline)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest %q run: %w", pipeline, err)
	}
	return run, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run       models.Run
		createdAt string
	)
	if err := row.Scan(
		&run.ID, &run.Pipeline, &run.Status, &run.Items, &run.Warnings,
		&run.FailuresJSON, &run.Error, &run.Output, &run.DurationMS, &createdAt,
	); err != nil {
		return nil, err
	}
	run.CreatedAt = parseTime(createdAt)
	return &run, nil
}
