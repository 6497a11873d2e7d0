// Package database owns the Postgres connection pool.
package database

import (
	"context"
	"fmt"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPool creates a pool for cfg.URL. Connections are established lazily.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables the services read, when they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	logger.Info("Database migrations completed successfully")
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS challenges (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		created_by UUID REFERENCES profiles(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
		ends_at TIMESTAMP WITH TIME ZONE,
		location TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION CHECK (latitude BETWEEN -90 AND 90),
		longitude DOUBLE PRECISION CHECK (longitude BETWEEN -180 AND 180),
		url TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		source VARCHAR(20) NOT NULL CHECK (source IN ('community', 'discovered')),
		organizer TEXT NOT NULL DEFAULT '',
		meeting_platform TEXT,
		meeting_url TEXT,
		created_by UUID REFERENCES profiles(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_challenges_category ON challenges(category);
	CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at);
	CREATE INDEX IF NOT EXISTS idx_events_source_starts_at ON events(source, starts_at);
`

func newLifecyclePool(lc fx.Lifecycle, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// the UI shell and the cache keep working without a database
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("Database unreachable", zap.Error(err))
				return nil
			}
			if cfg.AutoMigrate {
				return Migrate(ctx, pool)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

// Module provides the Postgres pool
var Module = fx.Module("database",
	fx.Provide(newLifecyclePool),
)
