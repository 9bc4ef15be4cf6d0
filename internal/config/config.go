// Package config holds the run configuration and its resolution chain.
//
// Values are resolved with the following priority (highest first):
//  1. CLI flags (--mode, --times, --quiet)
//  2. Environment variables (SPOTMEAN_*)
//  3. TOML configuration file (--config=<path>)
//  4. Compiled defaults
package config

import (
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/clavet/spotmean/internal/errors"
)

// EnvPrefix is the prefix shared by all environment variable overrides.
const EnvPrefix = "SPOTMEAN_"

// Run modes selected on the command line.
const (
	ModeCache = "cache"
	ModeRead  = "read"
)

// Compiled defaults for every tunable the CLI surface does not expose.
const (
	DefaultWorkers      = 5
	DefaultPollInterval = time.Second
	DefaultFeedURL      = "https://api.coinbase.com/v2/prices/spot?currency=USD"
	DefaultResultFile   = "result.txt"
	DefaultMetricsAddr  = "127.0.0.1:9090"
	DefaultLogLevel     = "info"
)

// AppConfig is the immutable configuration of a single invocation.
type AppConfig struct {
	// Mode is the selected run mode (ModeCache or ModeRead). An empty or
	// unknown value makes the application print usage and exit cleanly.
	Mode string
	// DurationSeconds is the length of the sampling window in seconds.
	DurationSeconds uint64
	// TimesSet records whether --times was explicitly provided; cache mode
	// refuses to run without it.
	TimesSet bool
	// Workers is the number of concurrent sampling workers.
	Workers int
	// PollInterval is the fixed delay between a worker's fetch attempts.
	PollInterval time.Duration
	// FeedURL is the spot-price endpoint queried for observations.
	FeedURL string
	// FetchTimeout bounds a single HTTP fetch. Zero means no timeout, in
	// which case a hung fetch can delay a worker past the deadline.
	FetchTimeout time.Duration
	// ResultFile is the path of the persisted aggregate.
	ResultFile string
	// MetricsEnabled turns on the Prometheus listener for the cache run.
	MetricsEnabled bool
	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string
	// Quiet suppresses progress decoration on the terminal.
	Quiet bool
	// LogLevel is the minimum level emitted by the structured logger.
	LogLevel string
}

// Default returns an AppConfig populated with compiled defaults.
func Default() AppConfig {
	return AppConfig{
		Workers:      DefaultWorkers,
		PollInterval: DefaultPollInterval,
		FeedURL:      DefaultFeedURL,
		ResultFile:   DefaultResultFile,
		MetricsAddr:  DefaultMetricsAddr,
		LogLevel:     DefaultLogLevel,
	}
}

// ParseConfig builds the AppConfig for this invocation from the argument
// list, the environment, and an optional TOML file.
//
// Parameters:
//   - programName: The binary name used in usage output.
//   - args: The command-line arguments, excluding the program name.
//   - errWriter: Destination for flag parse diagnostics.
//
// Returns:
//   - AppConfig: The resolved configuration.
//   - error: A ConfigError when flags or file/env values are invalid.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	mode := fs.String("mode", "", "run mode: cache or read")
	times := fs.Uint64("times", 0, "sampling duration in seconds (cache mode)")
	configFile := fs.String("config", "", "path to a TOML configuration file")
	quiet := fs.Bool("quiet", false, "suppress progress decoration")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, apperrors.NewConfigError("%v", err)
	}

	cfg := Default()

	if *configFile != "" {
		loaded, err := loadFile(cfg, *configFile)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = loaded
	}

	applyEnvOverrides(&cfg, fs)

	cfg.Mode = *mode
	cfg.DurationSeconds = *times
	cfg.TimesSet = isFlagSet(fs, "times")
	if isFlagSet(fs, "quiet") {
		cfg.Quiet = *quiet
	}

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// maxDurationSeconds bounds the sampling window so the deadline arithmetic
// stays within a time.Duration (int64 nanoseconds).
const maxDurationSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Validate checks the engine tunables. Mode validity is a CLI concern and
// is judged by the application, which owns the usage path.
func Validate(cfg AppConfig) error {
	if cfg.Workers < 1 {
		return apperrors.NewConfigError("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.DurationSeconds > maxDurationSeconds {
		return apperrors.NewConfigError("sampling duration must be <= %d seconds, got %d",
			maxDurationSeconds, cfg.DurationSeconds)
	}
	if cfg.PollInterval <= 0 {
		return apperrors.NewConfigError("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.FetchTimeout < 0 {
		return apperrors.NewConfigError("fetch timeout must not be negative, got %s", cfg.FetchTimeout)
	}
	if cfg.FeedURL == "" {
		return apperrors.NewConfigError("feed URL must not be empty")
	}
	if cfg.ResultFile == "" {
		return apperrors.NewConfigError("result file path must not be empty")
	}
	return nil
}

// PrintUsage writes the CLI usage text.
func PrintUsage(w io.Writer, programName string) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s --mode=<cache|read> [--times=<seconds>] [--config=<path>] [--quiet]\n", programName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Modes:")
	fmt.Fprintln(w, "  cache   sample the BTC spot price for --times seconds and persist the aggregate")
	fmt.Fprintln(w, "  read    print the previously persisted aggregate")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment overrides (when the matching flag is not set):")
	fmt.Fprintf(w, "  %sWORKERS, %sPOLL_INTERVAL, %sFEED_URL, %sFETCH_TIMEOUT,\n", EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
	fmt.Fprintf(w, "  %sRESULT_FILE, %sMETRICS_ENABLED, %sMETRICS_ADDR, %sQUIET, %sLOG_LEVEL\n", EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
}

// tomlDuration parses humane duration strings ("1s", "250ms") from TOML.
type tomlDuration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for tomlDuration.
func (d *tomlDuration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = tomlDuration(parsed)
	return nil
}

// fileConfig mirrors the TOML file layout. It is pre-filled from the
// current configuration so that keys absent from the file keep their value.
type fileConfig struct {
	Sampling struct {
		Workers      int          `toml:"workers"`
		PollInterval tomlDuration `toml:"poll_interval"`
	} `toml:"sampling"`
	Feed struct {
		URL     string       `toml:"url"`
		Timeout tomlDuration `toml:"timeout"`
	} `toml:"feed"`
	Store struct {
		Path string `toml:"path"`
	} `toml:"store"`
	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Address string `toml:"address"`
	} `toml:"metrics"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
}

// loadFile overlays the TOML file at path onto cfg.
func loadFile(cfg AppConfig, path string) (AppConfig, error) {
	var fc fileConfig
	fc.Sampling.Workers = cfg.Workers
	fc.Sampling.PollInterval = tomlDuration(cfg.PollInterval)
	fc.Feed.URL = cfg.FeedURL
	fc.Feed.Timeout = tomlDuration(cfg.FetchTimeout)
	fc.Store.Path = cfg.ResultFile
	fc.Metrics.Enabled = cfg.MetricsEnabled
	fc.Metrics.Address = cfg.MetricsAddr
	fc.Logging.Level = cfg.LogLevel

	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return AppConfig{}, apperrors.NewConfigError("config file %s: %v", path, err)
	}

	cfg.Workers = fc.Sampling.Workers
	cfg.PollInterval = time.Duration(fc.Sampling.PollInterval)
	cfg.FeedURL = fc.Feed.URL
	cfg.FetchTimeout = time.Duration(fc.Feed.Timeout)
	cfg.ResultFile = fc.Store.Path
	cfg.MetricsEnabled = fc.Metrics.Enabled
	cfg.MetricsAddr = fc.Metrics.Address
	cfg.LogLevel = fc.Logging.Level
	return cfg, nil
}
