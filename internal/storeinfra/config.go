package storeinfra

import (
	"time"
)

// Supported drivers. The sqlite driver is the dev/test default; postgres is
// the production target whose schema is owned by the external migration
// layer.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the connection settings for the content store handle.
type Config struct {
	// Driver selects the dialect: DriverSQLite or DriverPostgres.
	Driver string

	// DSN is the driver-specific connection string.
	DSN string

	// Connection pool limits. Zero values fall back to the defaults set in
	// DefaultConfig.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config pointed at a local sqlite file with pool
// settings suitable for a single process.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "file:analysis.db?_busy_timeout=5000&_journal_mode=WAL",
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: time.Hour,
	}
}

// Validate checks whether the configuration values are usable.
func (c Config) Validate() error {
	if c.Driver != DriverSQLite && c.Driver != DriverPostgres {
		return &ConfigError{Field: "Driver", Message: "must be sqlite or postgres"}
	}
	if c.DSN == "" {
		return &ConfigError{Field: "DSN", Message: "cannot be empty"}
	}
	if c.MaxOpenConns < 0 {
		return &ConfigError{Field: "MaxOpenConns", Message: "must be non-negative"}
	}
	if c.MaxIdleConns < 0 {
		return &ConfigError{Field: "MaxIdleConns", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
