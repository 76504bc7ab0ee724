package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/orgs/internal/config"
	"github.com/wolfeidau/orgs/internal/models"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []*config.Config{
		{StoreType: config.StoreMemory},
		{StoreType: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "orgs.db")},
	} {
		t.Run(cfg.StoreType, func(t *testing.T) {
			backend, err := Open(ctx, cfg)
			require.NoError(t, err)
			defer func() { require.NoError(t, backend.Close()) }()

			require.NoError(t, backend.Migrate(ctx))

			principal := &models.Principal{PrincipalID: uuid.New(), Email: "alice@example.com"}
			require.NoError(t, backend.Stores.Principals.Upsert(ctx, principal))

			got, err := backend.Stores.Principals.Get(ctx, principal.PrincipalID)
			require.NoError(t, err)
			require.Equal(t, "alice@example.com", got.Email)
		})
	}

	t.Run("unknown store type", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{StoreType: "dynamodb"})
		require.ErrorContains(t, err, "unknown store type")
	})
}

func TestPoolConfig(t *testing.T) {
	pool := poolConfig(config.PostgresConfig{
		ConnString:        "postgres://orgs@localhost/orgs",
		MaxConns:          8,
		MinConns:          2,
		MaxConnLifetime:   15 * time.Minute,
		MaxConnIdleTime:   2 * time.Minute,
		HealthCheckPeriod: 20 * time.Second,
		ConnectTimeout:    3 * time.Second,
	})

	require.Equal(t, "postgres://orgs@localhost/orgs", pool.ConnString)
	require.Equal(t, int32(8), pool.MaxConns)
	require.Equal(t, int32(2), pool.MinConns)
	require.Equal(t, 15*time.Minute, pool.MaxConnLifetime)
	require.Equal(t, 2*time.Minute, pool.MaxConnIdleTime)
	require.Equal(t, 20*time.Second, pool.HealthCheckPeriod)
	require.Equal(t, 3*time.Second, pool.ConnectTimeout)
}
