// Package engineconfig loads the engine's process configuration: env
// vars prefixed TORNADO_ and an optional YAML file, merged and validated
// by spf13/viper and go-playground/validator. No command-line flags are
// bound into it; the CLI only passes the YAML file's path.
package engineconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the engine's full process configuration.
type Config struct {
	Actors   ActorsConfig   `mapstructure:"actors"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ActorsConfig sizes the actor runtime (§5).
type ActorsConfig struct {
	MailboxCapacity    int     `mapstructure:"mailbox_capacity" validate:"gt=0"`
	MatcherPoolSize    int     `mapstructure:"matcher_pool_size" validate:"gt=0"`
	RestartsPerSecond  float64 `mapstructure:"restarts_per_second" validate:"gt=0"`
	RestartBurst       int     `mapstructure:"restart_burst" validate:"gt=0"`
}

// RetryConfig is the engine-wide retry/backoff policy, applied to every
// registered executor; the matcher config has no per-action override.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	FixedBackoff time.Duration `mapstructure:"fixed_backoff" validate:"gte=0"`

	// CircuitBreakerMaxFailures/CircuitBreakerResetTimeout configure the
	// breaker engine.RegisterExecutor wraps around every executor, so a
	// persistently failing executor fails fast instead of being retried
	// on every single event.
	CircuitBreakerMaxFailures  int           `mapstructure:"circuit_breaker_max_failures" validate:"gt=0"`
	CircuitBreakerResetTimeout time.Duration `mapstructure:"circuit_breaker_reset_timeout" validate:"gt=0"`
}

// LogConfig configures internal/telemetry/logger.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	Output     string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig configures the Postgres-backed ConfigStore binding.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Database string `mapstructure:"database" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
}

// RedisConfig configures the Redis-backed EventBus binding.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// EngineConfig holds top-level engine behavior.
type EngineConfig struct {
	ReconfigurePollInterval time.Duration `mapstructure:"reconfigure_poll_interval" validate:"gte=0"`
}

// Default returns development-friendly defaults.
func Default() Config {
	return Config{
		Actors: ActorsConfig{
			MailboxCapacity:   256,
			MatcherPoolSize:   4,
			RestartsPerSecond: 1,
			RestartBurst:      5,
		},
		Retry: RetryConfig{
			MaxRetries:                 3,
			FixedBackoff:               500 * time.Millisecond,
			CircuitBreakerMaxFailures:  5,
			CircuitBreakerResetTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "tornado",
			User:     "tornado",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		Engine: EngineConfig{
			ReconfigurePollInterval: 30 * time.Second,
		},
	}
}

// Load merges defaults, an optional YAML file at path (ignored if
// empty or missing), and TORNADO_-prefixed environment variables, then
// validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("tornado")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("engineconfig: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("engineconfig: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("engineconfig: invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("actors.mailbox_capacity", d.Actors.MailboxCapacity)
	v.SetDefault("actors.matcher_pool_size", d.Actors.MatcherPoolSize)
	v.SetDefault("actors.restarts_per_second", d.Actors.RestartsPerSecond)
	v.SetDefault("actors.restart_burst", d.Actors.RestartBurst)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.fixed_backoff", d.Retry.FixedBackoff)
	v.SetDefault("retry.circuit_breaker_max_failures", d.Retry.CircuitBreakerMaxFailures)
	v.SetDefault("retry.circuit_breaker_reset_timeout", d.Retry.CircuitBreakerResetTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.filename", d.Log.Filename)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)

	v.SetDefault("engine.reconfigure_poll_interval", d.Engine.ReconfigurePollInterval)
}
