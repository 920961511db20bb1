package journal

import (
	"errors"
	"fmt"
	"time"
)

// Driver names accepted in Config.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

var (
	ErrMissingDSN          = errors.New("journal dsn is required")
	ErrInvalidMaxOpenConns = errors.New("max open connections must be >= 0")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
	ErrClosed              = errors.New("journal is closed")
)

// Config contains journal database settings
type Config struct {
	Driver string `toml:"driver" mapstructure:"driver"`
	DSN    string `toml:"dsn" mapstructure:"dsn"`

	// Connection pool settings
	MaxOpenConns    int           `toml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// Timeout bounds every statement issued by the event sink
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// NewConfig creates a disabled journal configuration with pool defaults.
func NewConfig() Config {
	return Config{
		Driver:          DriverNone,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		Timeout:         5 * time.Second,
	}
}

// SQLiteConfig creates a configuration for the SQLite file at path.
func SQLiteConfig(path string) Config {
	cfg := NewConfig()
	cfg.Driver = DriverSQLite
	cfg.DSN = path
	cfg.MaxOpenConns = 1 // SQLite has a single writer
	cfg.MaxIdleConns = 1
	return cfg
}

// Enabled reports whether events are journaled at all.
func (c Config) Enabled() bool {
	return c.Driver != "" && c.Driver != DriverNone
}

// Validate checks the configuration for common errors
func (c *Config) Validate() error {
	switch c.Driver {
	case "", DriverNone:
		c.Driver = DriverNone
		return nil
	case "sqlite3", DriverSQLite:
		c.Driver = DriverSQLite
	case "postgresql", DriverPostgres:
		c.Driver = DriverPostgres
	default:
		return fmt.Errorf("unsupported journal driver: %s", c.Driver)
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	if c.MaxOpenConns < 0 {
		return ErrInvalidMaxOpenConns
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
