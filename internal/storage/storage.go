// Package storage opens the store backend selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgs/internal/config"
	"github.com/wolfeidau/orgs/internal/store"
	"github.com/wolfeidau/orgs/internal/store/memory"
	"github.com/wolfeidau/orgs/internal/store/postgres"
	"github.com/wolfeidau/orgs/internal/store/sqlite"
)

// Backend is an opened store backend.
type Backend struct {
	Stores store.Stores

	migrate func(ctx context.Context) error
	close   func() error
}

// Open connects to the backend named by cfg.StoreType.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.StoreType {
	case config.StoreMemory:
		log.Info().Msg("Using in-memory store")
		return &Backend{
			Stores:  memory.New(),
			migrate: func(context.Context) error { return nil },
			close:   func() error { return nil },
		}, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite store")
		return &Backend{
			Stores: db.Stores(),
			// migrations are applied on open
			migrate: func(context.Context) error { return nil },
			close:   db.Close,
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, &postgres.Config{
			Pool:          poolConfig(cfg.Postgres),
			AutoMigrate:   cfg.Postgres.AutoMigrate,
			MaxTxAttempts: cfg.Postgres.MaxTxAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return &Backend{
			Stores:  db.Stores(),
			migrate: db.Migrate,
			close: func() error {
				db.Close()
				return nil
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}
}

// Migrate applies any pending schema migrations.
func (b *Backend) Migrate(ctx context.Context) error {
	return b.migrate(ctx)
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	return b.close()
}

func poolConfig(cfg config.PostgresConfig) postgres.PoolConfig {
	return postgres.PoolConfig{
		ConnString:        cfg.ConnString,
		MaxConns:          cfg.MaxConns,
		MinConns:          cfg.MinConns,
		MaxConnLifetime:   cfg.MaxConnLifetime,
		MaxConnIdleTime:   cfg.MaxConnIdleTime,
		HealthCheckPeriod: cfg.HealthCheckPeriod,
		ConnectTimeout:    cfg.ConnectTimeout,
	}
}
