package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/attendance-sync-worker/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// NewPool opens the run journal pool. On start it pings the server and
// creates the sync_runs table, so a reachable database is always ready
// for StartRun.
func NewPool(lc fx.Lifecycle, logger *zap.Logger, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	target := describe(poolConfig)
	logger = logger.With(zap.String("database", target))

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal pool for %s: %w", target, err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("journal database unreachable", zap.Error(err))
				return fmt.Errorf("cannot reach journal database %s (unset DATABASE_URL to disable the journal): %w", target, err)
			}
			if err := EnsureSchema(ctx, pool); err != nil {
				return err
			}
			logger.Info("run journal ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("journal pool closed")
			return nil
		},
	})

	return pool, nil
}

// describe renders the connection target without credentials.
func describe(cfg *pgxpool.Config) string {
	conn := cfg.ConnConfig
	return fmt.Sprintf("%s@%s:%d/%s", conn.User, conn.Host, conn.Port, conn.Database)
}
