package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"quadsync/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Resolve.
const (
	EnvConfig     = "QUADSYNC_CONFIG"
	EnvSourceDirs = "QUADSYNC_SOURCE_DIRS"
	EnvTargetDir  = "QUADSYNC_TARGET_DIR"
	EnvLockFile   = "QUADSYNC_LOCK_FILE"
)

// LoadConfig loads configuration from path. An empty path means
// DefaultConfigPath, and a missing default file yields the built-in defaults.
// An explicitly named file must exist.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	config := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Debug("Config", "No config file at %s, using defaults", path)
			return config, nil
		}
		return Config{}, NewConfigurationError("config", path, "cannot read configuration file", err)
	}

	// Decode over an empty struct so list fields from the file replace the
	// defaults instead of being merged into them.
	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Config{}, NewConfigurationError("config", path, "malformed configuration file", err)
	}
	fromFile.applyDefaults()

	logging.Info("Config", "Loaded configuration from %s", path)
	return fromFile, nil
}

// ApplyEnvironment overlays environment variables onto cfg.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvSourceDirs)); v != "" {
		c.SourceDirs = splitPathList(v)
	}
	if v := strings.TrimSpace(getenv(EnvTargetDir)); v != "" {
		c.TargetDir = v
	}
	if v := strings.TrimSpace(getenv(EnvLockFile)); v != "" {
		c.Lock.Path = v
	}
}

// ApplyOverrides overlays command line values onto cfg.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.SourceDirs) > 0 {
		c.SourceDirs = append([]string(nil), o.SourceDirs...)
	}
	if o.TargetDir != "" {
		c.TargetDir = o.TargetDir
	}
	if o.LockPath != "" {
		c.Lock.Path = o.LockPath
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
}

// Resolve builds the effective configuration: defaults, then the config
// file, then the environment, then command line overrides. The result is
// normalized and validated.
func Resolve(path string, getenv func(string) string, o Overrides) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if path == "" {
		path = strings.TrimSpace(getenv(EnvConfig))
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnvironment(getenv)
	cfg.ApplyOverrides(o)

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return Config{}, NewConfigurationError("config", path, "invalid configuration", errs)
	}
	return cfg, nil
}

// normalize makes every path absolute and clean so later comparisons are
// purely textual.
func (c *Config) normalize() error {
	dirs := make([]string, 0, len(c.SourceDirs))
	for _, dir := range c.SourceDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return NewConfigurationError("config", dir, "cannot resolve source directory", err)
		}
		dirs = append(dirs, abs)
	}
	c.SourceDirs = dirs

	if c.TargetDir != "" {
		abs, err := filepath.Abs(c.TargetDir)
		if err != nil {
			return NewConfigurationError("config", c.TargetDir, "cannot resolve target directory", err)
		}
		c.TargetDir = abs
	}

	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.ServiceSuffix != "" && !strings.HasPrefix(c.ServiceSuffix, ".") {
		c.ServiceSuffix = "." + c.ServiceSuffix
	}
	return nil
}

func splitPathList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
