package postgres

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the connection and pool-sizing parameters for a Postgres
// connection, overridable from the environment with a TORNADO_DB_ prefix.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxConns int32
	MinConns int32

	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultConfig returns development-friendly defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:              "localhost",
		Port:              5432,
		Database:          "tornado",
		User:              "tornado",
		SSLMode:           "disable",
		MaxConns:          20,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    30 * time.Second,
	}
}

// LoadFromEnv overlays TORNADO_DB_* environment variables onto DefaultConfig.
func LoadFromEnv() *Config {
	c := DefaultConfig()
	if v := os.Getenv("TORNADO_DB_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("TORNADO_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("TORNADO_DB_NAME"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("TORNADO_DB_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("TORNADO_DB_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("TORNADO_DB_SSL_MODE"); v != "" {
		c.SSLMode = v
	}
	return c
}

// Validate rejects configurations that cannot produce a usable pool.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be greater than 0")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections must be between 0 and max connections")
	}
	return nil
}

// DSN returns the pgx connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
