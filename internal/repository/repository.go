package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/attendance-sync-worker/internal/db"
)

// Repository records sync runs in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StartRun inserts a run in the running state
func (r *Repository) StartRun(ctx context.Context, run *db.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, trigger, request_id, window_days, unread_only, started_at, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Trigger,
		run.RequestID,
		run.WindowDays,
		run.UnreadOnly,
		run.StartedAt,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// FinishRun stores the counters and final status of a run
func (r *Repository) FinishRun(ctx context.Context, run *db.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET finished_at = $2, devices = $3, rows_read = $4, events_collected = $5,
			events_uploaded = $6, status = $7, error_message = $8
		WHERE id = $1
	`

	finishedAt := time.Now()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	tag, err := r.pool.Exec(ctx, query,
		run.ID,
		finishedAt,
		run.Devices,
		run.RowsRead,
		run.EventsCollected,
		run.EventsUploaded,
		run.Status,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}

	return nil
}

// RecentRuns returns the latest runs, newest first
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]db.SyncRun, error) {
	query := `
		SELECT id, trigger, COALESCE(request_id, ''), window_days, unread_only, started_at, finished_at,
			devices, rows_read, events_collected, events_uploaded, status, error_message
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []db.SyncRun
	for rows.Next() {
		var run db.SyncRun
		if err := rows.Scan(
			&run.ID,
			&run.Trigger,
			&run.RequestID,
			&run.WindowDays,
			&run.UnreadOnly,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Devices,
			&run.RowsRead,
			&run.EventsCollected,
			&run.EventsUploaded,
			&run.Status,
			&run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return runs, nil
}
