package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgs/internal/store"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the PostgreSQL backend. It owns the connection pool shared by all stores.
type DB struct {
	pool *pgxpool.Pool
	cfg  *Config

	// Lifecycle
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open connects to PostgreSQL, optionally runs migrations and starts pool monitoring.
func Open(ctx context.Context, cfg *Config) (*DB, error) {
	// Apply defaults and validate config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := NewPool(ctx, &cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Int32("max_conns", cfg.Pool.MaxConns).
		Msg("Connected to PostgreSQL")

	// Run migrations only if explicitly enabled
	if cfg.AutoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
	}

	db := &DB{
		pool:   pool,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}

	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.monitorConnectionPool()
	}()

	return db, nil
}

// Migrate runs any pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return runMigrations(ctx, db.pool)
}

// Stores returns the stores backed by this database.
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Organizations: &OrganizationStore{db: db},
		Members:       &MemberStore{db: db},
		Invitations:   &InvitationStore{db: db},
		Principals:    &PrincipalStore{db: db},
	}
}

// Close stops background tasks and closes the connection pool.
func (db *DB) Close() {
	log.Info().Msg("Stopping PostgreSQL backend")

	close(db.stopCh)
	db.wg.Wait()
	db.pool.Close()

	log.Info().Msg("PostgreSQL backend stopped")
}

// withTx runs fn in a transaction, re-running it on serialization failures and
// deadlocks. Any other error aborts immediately. fn returns raw driver errors;
// they are mapped once here.
func (db *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := pgx.BeginFunc(ctx, db.pool, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isRetryable(err) {
			log.Debug().Err(err).Msg("Retrying transaction after conflict")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(newTxBackOff()),
		backoff.WithMaxTries(db.cfg.MaxTxAttempts),
	)

	return mapPostgresError(err)
}

func newTxBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// monitorConnectionPool logs connection pool statistics periodically.
func (db *DB) monitorConnectionPool() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Int64("acquire_duration_ns", stats.AcquireDuration().Nanoseconds()).
				Msg("Connection pool stats")
		case <-db.stopCh:
			return
		}
	}
}
