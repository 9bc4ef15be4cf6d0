// Package app wires configuration, the sampling engine, and the result
// store into the two user-facing run modes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/clavet/spotmean/internal/config"
	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/feed"
	"github.com/clavet/spotmean/internal/logging"
	"github.com/clavet/spotmean/internal/store"
)

// ErrUsage reports that usage was printed instead of running a mode. Per
// the CLI contract this is not a failure: the caller exits cleanly.
var ErrUsage = errors.New("usage printed")

// Application represents one spotmean invocation.
type Application struct {
	Config    config.AppConfig
	Sampler   feed.Sampler
	Store     *store.FileStore
	Logger    logging.Logger
	ErrWriter io.Writer

	programName string
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithSampler sets a custom price feed, primarily for tests.
func WithSampler(s feed.Sampler) AppOption {
	return func(a *Application) { a.Sampler = s }
}

// WithLogger sets a custom logger.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// New creates an Application by parsing command-line arguments, the
// environment, and the optional config file.
//
// Invalid input follows the CLI contract: an unknown mode, a flag parse
// failure, or cache mode without --times all print usage to errWriter and
// return ErrUsage, which callers treat as a clean exit.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, programName: "spotmean"}

	var cmdArgs []string
	if len(args) > 0 {
		app.programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(app.programName, cmdArgs, errWriter)
	if err != nil {
		var cfgErr apperrors.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(errWriter, cfgErr.Message)
			config.PrintUsage(errWriter, app.programName)
			return nil, ErrUsage
		}
		return nil, err
	}

	switch cfg.Mode {
	case config.ModeCache:
		if !cfg.TimesSet {
			fmt.Fprintln(errWriter, "Invalid argument for cache mode. Use --times=<seconds>.")
			config.PrintUsage(errWriter, app.programName)
			return nil, ErrUsage
		}
	case config.ModeRead:
		// Nothing further to validate.
	default:
		fmt.Fprintln(errWriter, "Invalid mode. Use cache or read.")
		config.PrintUsage(errWriter, app.programName)
		return nil, ErrUsage
	}

	app.Config = cfg

	for _, opt := range opts {
		opt(app)
	}
	if app.Logger == nil {
		app.Logger = logging.NewDefaultLogger()
	}
	if app.Sampler == nil {
		app.Sampler = feed.NewCoinbaseSource(cfg.FeedURL, cfg.FetchTimeout, app.Logger)
	}
	if app.Store == nil {
		app.Store = store.NewFileStore(cfg.ResultFile)
	}
	return app, nil
}

// IsUsageError checks if the error means usage was printed (clean exit).
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage)
}

// Run executes the application in the configured mode and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	zerolog.SetGlobalLevel(logLevel(a.Config.LogLevel))

	switch a.Config.Mode {
	case config.ModeCache:
		return a.runCache(ctx, out)
	case config.ModeRead:
		return a.runRead(out)
	default:
		// New rejects unknown modes; reaching this is a programming error.
		fmt.Fprintf(a.ErrWriter, "unknown mode %q\n", a.Config.Mode)
		return apperrors.ExitErrorGeneric
	}
}

// logLevel maps the configured level name onto zerolog levels, defaulting
// to info for unknown names.
func logLevel(name string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(name); err == nil && name != "" {
		return lvl
	}
	return zerolog.InfoLevel
}

// Duration returns the configured sampling window.
func (a *Application) Duration() time.Duration {
	return time.Duration(a.Config.DurationSeconds) * time.Second
}
