// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the environment configuration shared by the server and the CLI.
type Config struct {
	StoreType  string `env:"ORGS_STORE_TYPE" envDefault:"memory"`
	SQLitePath string `env:"ORGS_SQLITE_PATH" envDefault:"orgs.db"`
	Postgres   PostgresConfig

	// SweepInterval is how often pending invitations past their expiry are
	// moved to expired.
	SweepInterval time.Duration `env:"ORGS_SWEEP_INTERVAL" envDefault:"5m"`

	// InvitationTTL is the lifetime of invitations created without an explicit expiry.
	InvitationTTL time.Duration `env:"ORGS_INVITATION_TTL" envDefault:"168h"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	ConnString  string `env:"POSTGRES_CONNECTION_STRING"`
	MaxConns    int32  `env:"ORGS_POSTGRES_MAX_CONNS" envDefault:"20"`
	MinConns    int32  `env:"ORGS_POSTGRES_MIN_CONNS" envDefault:"5"`
	AutoMigrate bool   `env:"ORGS_POSTGRES_AUTO_MIGRATE" envDefault:"false"`

	MaxConnLifetime   time.Duration `env:"ORGS_POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"ORGS_POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"ORGS_POSTGRES_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	ConnectTimeout    time.Duration `env:"ORGS_POSTGRES_CONNECT_TIMEOUT" envDefault:"10s"`

	// MaxTxAttempts bounds retries of transactions that lose a serialization conflict.
	MaxTxAttempts uint `env:"ORGS_POSTGRES_MAX_TX_ATTEMPTS" envDefault:"5"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given dotenv files into the process environment, then parses
// and validates the configuration. Missing files are skipped and variables
// already present in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required (ORGS_SQLITE_PATH)")
		}
	case StorePostgres:
		if c.Postgres.ConnString == "" {
			return errors.New("PostgreSQL connection string is required (POSTGRES_CONNECTION_STRING)")
		}
		if c.Postgres.MinConns > c.Postgres.MaxConns {
			return fmt.Errorf("min connections (%d) exceeds max connections (%d)", c.Postgres.MinConns, c.Postgres.MaxConns)
		}
		if c.Postgres.ConnectTimeout < 0 || c.Postgres.MaxConnLifetime < 0 ||
			c.Postgres.MaxConnIdleTime < 0 || c.Postgres.HealthCheckPeriod < 0 {
			return errors.New("postgres pool durations must not be negative")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.StoreType)
	}

	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("invitation ttl must be positive, got %s", c.InvitationTTL)
	}

	return nil
}
