package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ORGS_STORE_TYPE",
	"ORGS_SQLITE_PATH",
	"ORGS_SWEEP_INTERVAL",
	"ORGS_INVITATION_TTL",
	"POSTGRES_CONNECTION_STRING",
	"ORGS_POSTGRES_MAX_CONNS",
	"ORGS_POSTGRES_MIN_CONNS",
	"ORGS_POSTGRES_AUTO_MIGRATE",
	"ORGS_POSTGRES_MAX_CONN_LIFETIME",
	"ORGS_POSTGRES_MAX_CONN_IDLE_TIME",
	"ORGS_POSTGRES_HEALTH_CHECK_PERIOD",
	"ORGS_POSTGRES_CONNECT_TIMEOUT",
	"ORGS_POSTGRES_MAX_TX_ATTEMPTS",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		require.Equal(t, StoreMemory, cfg.StoreType)
		require.Equal(t, "orgs.db", cfg.SQLitePath)
		require.Equal(t, 5*time.Minute, cfg.SweepInterval)
		require.Equal(t, 168*time.Hour, cfg.InvitationTTL)
		require.Equal(t, int32(20), cfg.Postgres.MaxConns)
		require.Equal(t, int32(5), cfg.Postgres.MinConns)
		require.False(t, cfg.Postgres.AutoMigrate)
		require.Equal(t, time.Hour, cfg.Postgres.MaxConnLifetime)
		require.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnIdleTime)
		require.Equal(t, time.Minute, cfg.Postgres.HealthCheckPeriod)
		require.Equal(t, 10*time.Second, cfg.Postgres.ConnectTimeout)
		require.Equal(t, uint(5), cfg.Postgres.MaxTxAttempts)
	})

	t.Run("postgres pool tuning", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORGS_STORE_TYPE", "postgres")
		t.Setenv("POSTGRES_CONNECTION_STRING", "postgres://orgs@localhost/orgs")
		t.Setenv("ORGS_POSTGRES_MAX_CONN_LIFETIME", "15m")
		t.Setenv("ORGS_POSTGRES_MAX_CONN_IDLE_TIME", "2m")
		t.Setenv("ORGS_POSTGRES_HEALTH_CHECK_PERIOD", "20s")
		t.Setenv("ORGS_POSTGRES_CONNECT_TIMEOUT", "3s")
		t.Setenv("ORGS_POSTGRES_MAX_TX_ATTEMPTS", "9")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 15*time.Minute, cfg.Postgres.MaxConnLifetime)
		require.Equal(t, 2*time.Minute, cfg.Postgres.MaxConnIdleTime)
		require.Equal(t, 20*time.Second, cfg.Postgres.HealthCheckPeriod)
		require.Equal(t, 3*time.Second, cfg.Postgres.ConnectTimeout)
		require.Equal(t, uint(9), cfg.Postgres.MaxTxAttempts)
	})

	t.Run("dotenv file", func(t *testing.T) {
		clearEnv(t)

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(
			"ORGS_STORE_TYPE=postgres\n"+
				"POSTGRES_CONNECTION_STRING=postgres://orgs@localhost/orgs\n"+
				"ORGS_POSTGRES_AUTO_MIGRATE=true\n"+
				"ORGS_SWEEP_INTERVAL=30s\n",
		), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, StorePostgres, cfg.StoreType)
		require.Equal(t, "postgres://orgs@localhost/orgs", cfg.Postgres.ConnString)
		require.True(t, cfg.Postgres.AutoMigrate)
		require.Equal(t, 30*time.Second, cfg.SweepInterval)
	})

	t.Run("environment wins over dotenv", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORGS_STORE_TYPE", "sqlite")

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("ORGS_STORE_TYPE=memory\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, StoreSQLite, cfg.StoreType)
	})

	t.Run("parse error", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORGS_SWEEP_INTERVAL", "often")

		_, err := Load()
		require.ErrorContains(t, err, "parse env:")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreType:     StoreMemory,
			SQLitePath:    "orgs.db",
			SweepInterval: time.Minute,
			InvitationTTL: time.Hour,
			Postgres:      PostgresConfig{MaxConns: 20, MinConns: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"memory", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreType = "dynamodb" }, "unknown store type"},
		{"sqlite without path", func(c *Config) { c.StoreType = StoreSQLite; c.SQLitePath = "" }, "sqlite path"},
		{"postgres without conn string", func(c *Config) { c.StoreType = StorePostgres }, "connection string"},
		{"postgres min above max", func(c *Config) {
			c.StoreType = StorePostgres
			c.Postgres.ConnString = "postgres://localhost/orgs"
			c.Postgres.MinConns = 30
		}, "exceeds max"},
		{"postgres negative timeout", func(c *Config) {
			c.StoreType = StorePostgres
			c.Postgres.ConnString = "postgres://localhost/orgs"
			c.Postgres.ConnectTimeout = -time.Second
		}, "must not be negative"},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }, "sweep interval"},
		{"negative ttl", func(c *Config) { c.InvitationTTL = -time.Hour }, "invitation ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
