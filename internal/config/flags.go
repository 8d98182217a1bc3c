package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user actually set are
// applied, so file and environment values survive unset flags.
type Flags struct {
	ConfigPath     string
	Addr           string
	StorageDriver  string
	SQLitePath     string
	LogLevel       string
	LogFormat      string
	Metrics        bool
	DateOnlyCycles bool

	flagSet *pflag.FlagSet
}

// AddFlags registers the configuration flags on flagSet.
func (f *Flags) AddFlags(flagSet *pflag.FlagSet) {
	f.flagSet = flagSet
	def := Default()

	flagSet.StringVarP(&f.ConfigPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVar(&f.Addr, "addr", def.Server.Addr, "HTTP listen address")
	flagSet.StringVar(&f.StorageDriver, "storage", def.Storage.Driver, "storage driver: memory or sqlite")
	flagSet.StringVar(&f.SQLitePath, "sqlite-path", def.Storage.SQLite.Path, "SQLite database file")
	flagSet.StringVar(&f.LogLevel, "log-level", def.Logging.Level, "log level: debug, info, warn, error")
	flagSet.StringVar(&f.LogFormat, "log-format", def.Logging.Format, "log format: text or json")
	flagSet.BoolVar(&f.Metrics, "metrics", def.Metrics.Enabled, "expose Prometheus metrics")
	flagSet.BoolVar(&f.DateOnlyCycles, "date-only-cycles", false, "evaluate every-N-days reminders by date only")
}

// Apply copies every flag that was set on the command line into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.flagSet == nil {
		return
	}
	changed := f.flagSet.Changed

	if changed("addr") {
		cfg.Server.Addr = f.Addr
	}
	if changed("storage") {
		cfg.Storage.Driver = f.StorageDriver
	}
	if changed("sqlite-path") {
		cfg.Storage.SQLite.Path = f.SQLitePath
	}
	if changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if changed("metrics") {
		cfg.Metrics.Enabled = f.Metrics
	}
	if changed("date-only-cycles") {
		cfg.Engine.DateOnlyCycles = f.DateOnlyCycles
	}
}
