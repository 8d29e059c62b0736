package app

import (
	"io"

	"quadsync/internal/config"
	"quadsync/internal/formatting"
)

// Mode selects what the application does once bootstrapped.
type Mode string

const (
	ModeWatch  Mode = "watch"  // run the trigger loop until a termination signal
	ModeOnce   Mode = "once"   // one reconciliation pass
	ModeStatus Mode = "status" // read-only report
)

// Config holds the application configuration
type Config struct {
	Mode Mode

	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// Custom configuration file (optional). Falls back to QUADSYNC_CONFIG
	// and then the default path.
	ConfigPath string

	// Overrides carries command line values that win over file and environment.
	Overrides config.Overrides

	// Output controls status rendering. Ignored in once and watch mode.
	Output formatting.Options

	// Stdout receives status output, Stderr receives logs. Both default to
	// the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Getenv is consulted for QUADSYNC_* variables. Defaults to os.Getenv.
	Getenv func(string) string

	// Quadsync is the resolved configuration. NewApplication fills it in
	// unless it was provided already.
	Quadsync *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(mode Mode, debug bool, configPath string) *Config {
	return &Config{
		Mode:       mode,
		Debug:      debug,
		ConfigPath: configPath,
	}
}
