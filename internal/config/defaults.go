package config

import "time"

const (
	// DefaultConfigPath is read when no --config flag or QUADSYNC_CONFIG is given.
	DefaultConfigPath = "/etc/quadsync/config.yaml"

	DefaultSourceDir     = "/var/lib/quadsync/units"
	DefaultTargetDir     = "/etc/containers/systemd"
	DefaultExtension     = ".container"
	DefaultServiceSuffix = ".service"
	DefaultLockPath      = "/run/quadsync/quadsync.lock"

	DefaultServiceTimeout = 30 * time.Second
	DefaultPollInterval   = 60 * time.Second
	DefaultDebounce       = 500 * time.Millisecond
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SourceDirs:    []string{DefaultSourceDir},
		TargetDir:     DefaultTargetDir,
		Extension:     DefaultExtension,
		ServiceSuffix: DefaultServiceSuffix,
		ServiceManager: ServiceManagerConfig{
			Backend: BackendSystemctl,
			Timeout: DefaultServiceTimeout,
		},
		Watch: WatchConfig{
			PollInterval: DefaultPollInterval,
			Debounce:     DefaultDebounce,
		},
		Lock: LockConfig{
			Path: DefaultLockPath,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults fills fields left empty by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()
	if len(c.SourceDirs) == 0 {
		c.SourceDirs = def.SourceDirs
	}
	if c.TargetDir == "" {
		c.TargetDir = def.TargetDir
	}
	if c.Extension == "" {
		c.Extension = def.Extension
	}
	if c.ServiceSuffix == "" {
		c.ServiceSuffix = def.ServiceSuffix
	}
	if c.ServiceManager.Backend == "" {
		c.ServiceManager.Backend = def.ServiceManager.Backend
	}
	if c.ServiceManager.Timeout <= 0 {
		c.ServiceManager.Timeout = def.ServiceManager.Timeout
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = def.Watch.PollInterval
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Lock.Path == "" {
		c.Lock.Path = def.Lock.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
