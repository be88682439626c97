// Package config holds daemon configuration with defaults, environment
// overrides, and TOML file loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config configures a daemon instance. The zero value is not usable;
// start from Default().
type Config struct {
	// DBPath is where the persistent store keeps its SQLite file.
	// Ignored when the caller supplies its own store.
	DBPath string `toml:"db_path"`

	// Workers is the number of concurrent execution units.
	Workers int `toml:"workers"`

	// MaxRetries is the per-daemon default retry budget for tasks that
	// do not override it at enqueue time.
	MaxRetries int `toml:"max_retries"`

	// LeaseDuration is how long a claim holds before it becomes
	// reclaimable by another worker.
	LeaseDuration time.Duration `toml:"lease_duration"`

	// PollInterval is the base idle backoff between empty claims.
	PollInterval time.Duration `toml:"poll_interval"`

	// MaxBackoff caps the idle backoff growth.
	MaxBackoff time.Duration `toml:"max_backoff"`

	// DrainTimeout bounds how long shutdown waits for in-flight tasks.
	// After it elapses workers exit and leases expire on their own.
	DrainTimeout time.Duration `toml:"drain_timeout"`

	// HandlerTimeout forcibly fails handlers that run longer. Zero
	// disables the timeout; a stuck handler then occupies its worker
	// slot until the process exits.
	HandlerTimeout time.Duration `toml:"handler_timeout"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration the daemon starts from.
func Default() Config {
	return Config{
		DBPath:        "taskdaemon.db",
		Workers:       2,
		MaxRetries:    3,
		LeaseDuration: 30 * time.Second,
		PollInterval:  100 * time.Millisecond,
		MaxBackoff:    2 * time.Second,
		DrainTimeout:  30 * time.Second,
		LogLevel:      "INFO",
	}
}

// FromEnv returns Default() overridden by DAEMON_* environment variables.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("DAEMON_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DAEMON_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("DAEMON_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("DAEMON_LEASE_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LeaseDuration = d
		}
	}
	if v := os.Getenv("DAEMON_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("DAEMON_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MaxBackoff = d
		}
	}
	if v := os.Getenv("DAEMON_DRAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DrainTimeout = d
		}
	}
	if v := os.Getenv("DAEMON_HANDLER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HandlerTimeout = d
		}
	}
	if v := os.Getenv("DAEMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// LoadFile returns Default() overridden by a TOML file. Durations use Go
// duration strings, e.g. lease_duration = "30s".
func LoadFile(path string) (Config, error) {
	cfg := Default()

	// Decode durations as strings first; TOML has no duration type.
	var raw struct {
		DBPath         *string `toml:"db_path"`
		Workers        *int    `toml:"workers"`
		MaxRetries     *int    `toml:"max_retries"`
		LeaseDuration  *string `toml:"lease_duration"`
		PollInterval   *string `toml:"poll_interval"`
		MaxBackoff     *string `toml:"max_backoff"`
		DrainTimeout   *string `toml:"drain_timeout"`
		HandlerTimeout *string `toml:"handler_timeout"`
		LogLevel       *string `toml:"log_level"`
	}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if raw.DBPath != nil {
		cfg.DBPath = *raw.DBPath
	}
	if raw.Workers != nil {
		cfg.Workers = *raw.Workers
	}
	if raw.MaxRetries != nil {
		cfg.MaxRetries = *raw.MaxRetries
	}
	set := func(dst *time.Duration, src *string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("failed to parse config duration %q: %w", *src, err)
		}
		*dst = d
		return nil
	}
	if err := set(&cfg.LeaseDuration, raw.LeaseDuration); err != nil {
		return cfg, err
	}
	if err := set(&cfg.PollInterval, raw.PollInterval); err != nil {
		return cfg, err
	}
	if err := set(&cfg.MaxBackoff, raw.MaxBackoff); err != nil {
		return cfg, err
	}
	if err := set(&cfg.DrainTimeout, raw.DrainTimeout); err != nil {
		return cfg, err
	}
	if err := set(&cfg.HandlerTimeout, raw.HandlerTimeout); err != nil {
		return cfg, err
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.LeaseDuration <= 0 {
		return fmt.Errorf("lease_duration must be positive, got %s", c.LeaseDuration)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxBackoff < c.PollInterval {
		return fmt.Errorf("max_backoff %s must not be below poll_interval %s", c.MaxBackoff, c.PollInterval)
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain_timeout must be non-negative, got %s", c.DrainTimeout)
	}
	if c.HandlerTimeout < 0 {
		return fmt.Errorf("handler_timeout must be non-negative, got %s", c.HandlerTimeout)
	}
	return nil
}
