// Package config loads remindersd settings from a YAML file, REMINDERS_*
// environment variables and command-line flags, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Engine  EngineConfig  `yaml:"engine"`
}

// ServerConfig controls the HTTP listener.
//
// Durations are Go duration strings (e.g. "500ms", "10s", "1m"). Empty or
// zero values fall back to the defaults.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string       `yaml:"driver"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type EngineConfig struct {
	// DateOnlyCycles makes every-N-days reminders ignore time of day.
	DateOnlyCycles bool `yaml:"date_only_cycles"`
}

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBusyTimeout     = 5 * time.Second
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			SQLite: SQLiteConfig{Path: "data/reminders.db"},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path skips the file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides cfg from REMINDERS_* variables found through lookup
// (usually os.LookupEnv). Duration values are checked later by Validate.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("REMINDERS_ADDR", &cfg.Server.Addr)
	str("REMINDERS_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	str("REMINDERS_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	str("REMINDERS_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("REMINDERS_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("REMINDERS_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	str("REMINDERS_SQLITE_BUSY_TIMEOUT", &cfg.Storage.SQLite.BusyTimeout)
	str("REMINDERS_LOG_LEVEL", &cfg.Logging.Level)
	str("REMINDERS_LOG_FORMAT", &cfg.Logging.Format)
	str("REMINDERS_METRICS_PATH", &cfg.Metrics.Path)

	var errs []error
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = b
	}

	boolean("REMINDERS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	boolean("REMINDERS_ENGINE_DATE_ONLY_CYCLES", &cfg.Engine.DateOnlyCycles)
	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := c.Server.Timeouts(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required for the sqlite driver"))
		}
		if _, err := c.Storage.SQLite.BusyTimeoutDuration(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q (want %s or %s)", c.Storage.Driver, DriverMemory, DriverSQLite))
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format: want text or json, got %q", f))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return errors.Join(errs...)
}

// Timeouts holds the resolved server durations.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

func (s ServerConfig) Timeouts() (Timeouts, error) {
	var t Timeouts
	var err error
	if t.Read, err = ParseDurationOrDefault("server.read_timeout", s.ReadTimeout, defaultReadTimeout); err != nil {
		return t, err
	}
	if t.Write, err = ParseDurationOrDefault("server.write_timeout", s.WriteTimeout, defaultWriteTimeout); err != nil {
		return t, err
	}
	if t.Shutdown, err = ParseDurationOrDefault("server.shutdown_timeout", s.ShutdownTimeout, defaultShutdownTimeout); err != nil {
		return t, err
	}
	return t, nil
}

func (s SQLiteConfig) BusyTimeoutDuration() (time.Duration, error) {
	return ParseDurationOrDefault("storage.sqlite.busy_timeout", s.BusyTimeout, defaultBusyTimeout)
}

func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
