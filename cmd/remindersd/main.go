// remindersd serves the reminders HTTP API.
//
// Settings come from an optional YAML file (--config), then REMINDERS_*
// environment variables, then command-line flags. SIGINT and SIGTERM trigger
// a graceful shutdown bounded by server.shutdown_timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/jasonliu2000/reminders-backend/internal/config"
	"github.com/jasonliu2000/reminders-backend/internal/metrics"
	"github.com/jasonliu2000/reminders-backend/server"
	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/jasonliu2000/reminders-backend/server/storage/memory"
	"github.com/jasonliu2000/reminders-backend/server/storage/sqlite"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags config.Flags
	flagSet := pflag.NewFlagSet("remindersd", pflag.ContinueOnError)
	flags.AddFlags(flagSet)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return err
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close storage", "error", err)
		}
	}()

	handler, err := newHandler(cfg, logger, store, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	timeouts, err := cfg.Server.Timeouts()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		busy, err := cfg.SQLite.BusyTimeoutDuration()
		if err != nil {
			return nil, err
		}
		store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path, BusyTimeout: busy})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newHandler wires the engine, API and metrics endpoint into one handler.
func newHandler(cfg config.Config, logger *slog.Logger, store storage.Storage, reg prometheus.Registerer, gatherer prometheus.Gatherer) (http.Handler, error) {
	engineOpts := []recurrence.Option{recurrence.WithLogger(logger)}
	if cfg.Engine.DateOnlyCycles {
		engineOpts = append(engineOpts, recurrence.WithDateOnlyCycles())
	}

	var observer *metrics.Observer
	if cfg.Metrics.Enabled {
		var err error
		if observer, err = metrics.NewObserver("", reg); err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, recurrence.WithObserver(observer))
	}

	api, err := server.New(store,
		server.WithLogger(logger),
		server.WithEngine(recurrence.NewEngine(engineOpts...)),
	)
	if err != nil {
		return nil, err
	}

	if !cfg.Metrics.Enabled {
		return api, nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/", observer.InstrumentHandler(api))
	return mux, nil
}
