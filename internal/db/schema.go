package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id               UUID PRIMARY KEY,
		trigger          TEXT NOT NULL,
		request_id       TEXT,
		window_days      INTEGER NOT NULL,
		unread_only      BOOLEAN NOT NULL DEFAULT FALSE,
		started_at       TIMESTAMPTZ NOT NULL,
		finished_at      TIMESTAMPTZ,
		devices          INTEGER NOT NULL DEFAULT 0,
		rows_read        INTEGER NOT NULL DEFAULT 0,
		events_collected INTEGER NOT NULL DEFAULT 0,
		events_uploaded  INTEGER NOT NULL DEFAULT 0,
		status           TEXT NOT NULL,
		error_message    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs (started_at DESC);
`

// EnsureSchema creates the sync_runs table if it does not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create sync_runs schema: %w", err)
	}
	return nil
}
