package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/caplog/internal/capture"
	"github.com/Iron-Ham/caplog/internal/config"
	"github.com/Iron-Ham/caplog/internal/event"
	"github.com/Iron-Ham/caplog/internal/logging"
	"github.com/Iron-Ham/caplog/internal/prefs"
	"github.com/Iron-Ham/caplog/internal/process"
	"github.com/Iron-Ham/caplog/internal/pstable"
)

// app holds everything one command invocation needs.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	reader *pstable.Reader
	bus    *event.Bus
	host   *capture.Host
	sup    *capture.Supervisor

	closers []io.Closer
}

// newRunner is replaced in tests.
var newRunner = func(cfg *config.Config, logger *logging.Logger) process.Runner {
	return process.NewExecRunner(process.ExecConfig{
		KillCommand: cfg.Capture.KillCommand,
		Logger:      logger,
	})
}

// newApp loads the configuration and wires the supervisor for the
// configured host.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &app{cfg: cfg}

	logger, closer, err := newLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.logger = logger
	logging.SetDefault(logger)
	a.bus = event.NewBus(logger)

	runner := newRunner(cfg, logger)
	a.reader = pstable.NewReader(runner, pstable.Config{
		Command:  cfg.Capture.ListCommand,
		Args:     cfg.Capture.ListArgs,
		NameFlag: cfg.Capture.ListNameFlag,
		Logger:   logger,
	})

	stateDir := cfg.Capture.ResolveStateDir()
	store, err := prefs.Open(afero.NewOsFs(), stateDir, cfg.Capture.Namespace, prefs.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open capture settings: %w", err)
	}
	a.host = &capture.Host{Name: cfg.Capture.ResolveHostName(), Prefs: store}

	factory := capture.NewFactory(capture.Config{
		Tool:                cfg.Capture.Tool,
		ConsoleFile:         cfg.Capture.ResolveConsoleFile(),
		LockFile:            cfg.Capture.LockFile(),
		PassSinceCheckpoint: cfg.Capture.PassSinceCheckpoint,
		Runner:              runner,
		Reader:              a.reader,
		Bus:                 a.bus,
		Logger:              logger,
	})
	a.sup, err = factory.Get(a.host)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newLogger builds the diagnostics logger described by cfg. The returned
// closer is nil when logging to stderr.
func newLogger(cfg *config.LoggingConfig) (*logging.Logger, io.Closer, error) {
	opts := []logging.Option{logging.WithDefaultTag(cfg.DefaultTag)}
	if cfg.Level != "" {
		level, err := logging.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, logging.WithLevel(level))
	}

	path := cfg.ResolveFile()
	if path == "" {
		return logging.New(logging.NewSlogSink(os.Stderr), opts...), nil, nil
	}
	sink, err := logging.NewFileSink(path, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logging.New(sink, opts...), sink, nil
}

// commandContext bounds one listing-and-signal round trip.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.Capture.CommandTimeout)
}

// Close releases the log file, if any.
func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// withApp runs fn with a wired app and releases it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
