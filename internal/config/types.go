package config

import "time"

// Config is the top-level configuration structure for quadsync.
type Config struct {
	// SourceDirs are the trusted roots holding unit definitions, in priority
	// order: when two roots define the same unit name the earlier root wins.
	SourceDirs []string `yaml:"sourceDirs"`

	// TargetDir is the directory the service manager reads units from.
	// quadsync only ever manages symlinks in it.
	TargetDir string `yaml:"targetDir"`

	// Extension is the file-name suffix of managed definitions (".container").
	Extension string `yaml:"extension,omitempty"`

	// ServiceSuffix is appended to the definition stem to form the service
	// name ("web.container" -> "web.service").
	ServiceSuffix string `yaml:"serviceSuffix,omitempty"`

	ServiceManager ServiceManagerConfig `yaml:"serviceManager"`
	Watch          WatchConfig          `yaml:"watch"`
	Lock           LockConfig           `yaml:"lock"`
	Log            LogConfig            `yaml:"log"`

	// RequiredCommands must be resolvable in PATH before a pass may run.
	RequiredCommands []string `yaml:"requiredCommands,omitempty"`
}

// Service manager backends.
const (
	BackendSystemctl = "systemctl"
	BackendDBus      = "dbus"
)

// ServiceManagerConfig selects and tunes the host service manager integration.
type ServiceManagerConfig struct {
	Backend string        `yaml:"backend,omitempty"` // systemctl or dbus
	User    bool          `yaml:"user,omitempty"`    // talk to the per-user manager
	Timeout time.Duration `yaml:"timeout,omitempty"` // bound on each reload/start/stop/is-active call
}

// WatchConfig tunes the trigger loop in watch mode.
type WatchConfig struct {
	// PollInterval bounds every wait: the loop re-runs a pass at least this often.
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`

	// Debounce collapses bursts of filesystem events into one trigger.
	Debounce time.Duration `yaml:"debounce,omitempty"`

	// UseFSNotify enables filesystem notifications; when false or unavailable
	// the loop sleeps for PollInterval between passes.
	UseFSNotify *bool `yaml:"useFSNotify,omitempty"`
}

// FSNotifyEnabled reports whether filesystem notifications should be attempted.
func (w WatchConfig) FSNotifyEnabled() bool {
	return w.UseFSNotify == nil || *w.UseFSNotify
}

// LockConfig controls the single-instance guard.
type LockConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// IsEnabled reports whether the lock file guard is active. Defaults to true.
func (l LockConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Overrides carries values supplied on the command line. Zero values mean
// "not set" and leave the loaded configuration untouched.
type Overrides struct {
	SourceDirs []string
	TargetDir  string
	LockPath   string
	LogLevel   string
	LogFormat  string
}
