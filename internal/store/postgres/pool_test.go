package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &Config{Pool: PoolConfig{ConnString: "postgres://orgs@localhost:5432/orgs"}}
		cfg.ApplyDefaults()
		require.NoError(t, cfg.Validate())

		require.Equal(t, int32(20), cfg.Pool.MaxConns)
		require.Equal(t, int32(5), cfg.Pool.MinConns)
		require.Equal(t, time.Hour, cfg.Pool.MaxConnLifetime)
		require.Equal(t, 30*time.Minute, cfg.Pool.MaxConnIdleTime)
		require.Equal(t, time.Minute, cfg.Pool.HealthCheckPeriod)
		require.Equal(t, 10*time.Second, cfg.Pool.ConnectTimeout)
		require.Equal(t, uint(5), cfg.MaxTxAttempts)
	})

	t.Run("settings reach pgxpool", func(t *testing.T) {
		cfg := &PoolConfig{
			ConnString:        "postgres://orgs@localhost:5432/orgs",
			MaxConns:          8,
			MinConns:          2,
			MaxConnLifetime:   15 * time.Minute,
			MaxConnIdleTime:   5 * time.Minute,
			HealthCheckPeriod: 20 * time.Second,
			ConnectTimeout:    3 * time.Second,
		}

		poolConfig, err := cfg.pgxConfig()
		require.NoError(t, err)
		require.Equal(t, int32(8), poolConfig.MaxConns)
		require.Equal(t, int32(2), poolConfig.MinConns)
		require.Equal(t, 15*time.Minute, poolConfig.MaxConnLifetime)
		require.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
		require.Equal(t, 20*time.Second, poolConfig.HealthCheckPeriod)
		require.Equal(t, 3*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	})

	tests := []struct {
		name    string
		cfg     PoolConfig
		wantErr string
	}{
		{"missing conn string", PoolConfig{MaxConns: 1}, "connection string is required"},
		{"min above max", PoolConfig{ConnString: "postgres://localhost/orgs", MaxConns: 2, MinConns: 3}, "exceeds max"},
		{"negative timeout", PoolConfig{ConnString: "postgres://localhost/orgs", MaxConns: 2, ConnectTimeout: -time.Second}, "connect timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorContains(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}
