package app

import (
	"context"
	"fmt"
	"os"

	"quadsync/internal/config"
	"quadsync/pkg/logging"
)

// Application bootstraps and runs quadsync in one of its modes.
//
// Initialization has two phases: NewApplication configures logging and
// resolves the configuration, Run executes the selected mode.
type Application struct {
	config *Config
}

// NewApplication configures logging and resolves the layered configuration
// (defaults, file, environment, flags). Configuration problems are returned
// as *config.ConfigurationError.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	if cfg.Debug {
		cfg.Overrides.LogLevel = "debug"
	}

	// Provisional logger so configuration loading can report; it is
	// replaced once the configured level and format are known.
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, logging.FormatText, cfg.Stderr)

	if cfg.Quadsync == nil {
		resolved, err := config.Resolve(cfg.ConfigPath, cfg.Getenv, cfg.Overrides)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load quadsync configuration")
			return nil, err
		}
		cfg.Quadsync = &resolved
	}

	level, err := logging.ParseLevel(cfg.Quadsync.Log.Level)
	if err != nil {
		return nil, config.NewConfigurationError("config", cfg.ConfigPath, "invalid log level", err)
	}
	logging.InitForCLI(level, logging.Format(cfg.Quadsync.Log.Format), cfg.Stderr)

	return &Application{config: cfg}, nil
}

// Config returns the resolved quadsync configuration.
func (a *Application) Config() config.Config {
	return *a.config.Quadsync
}

// Run executes the selected mode and blocks until it finishes. Watch mode
// returns when a termination signal arrives or ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	switch a.config.Mode {
	case ModeOnce:
		return runOnce(ctx, a.config)
	case ModeStatus:
		return runStatus(ctx, a.config)
	case ModeWatch, "":
		return runWatch(ctx, a.config)
	default:
		return fmt.Errorf("unknown mode %q", a.config.Mode)
	}
}
