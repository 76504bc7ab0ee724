package postgres

// Config holds configuration for the PostgreSQL backend.
type Config struct {
	Pool PoolConfig

	// AutoMigrate runs the embedded migrations when the backend opens.
	AutoMigrate bool

	// MaxTxAttempts bounds how often a transaction is re-run after a
	// serialization failure or deadlock.
	// Default: 5
	MaxTxAttempts uint
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return c.Pool.Validate()
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	c.Pool.ApplyDefaults()
	if c.MaxTxAttempts == 0 {
		c.MaxTxAttempts = 5
	}
}
