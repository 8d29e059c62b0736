package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.SourceDirs = []string{"/srv/units", "/usr/share/units"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "no source directory",
			mutate: func(c *Config) { c.SourceDirs = nil },
			fields: []string{"sourceDirs"},
		},
		{
			name:   "duplicate source directory",
			mutate: func(c *Config) { c.SourceDirs = []string{"/srv/units", "/srv/units"} },
			fields: []string{"sourceDirs[1]"},
		},
		{
			name:   "source inside target",
			mutate: func(c *Config) { c.SourceDirs = []string{"/etc/containers/systemd/mine"} },
			fields: []string{"sourceDirs[0]"},
		},
		{
			name:   "missing target",
			mutate: func(c *Config) { c.TargetDir = "" },
			fields: []string{"targetDir"},
		},
		{
			name:   "extension with separator",
			mutate: func(c *Config) { c.Extension = ".d/container" },
			fields: []string{"extension"},
		},
		{
			name:   "empty service suffix",
			mutate: func(c *Config) { c.ServiceSuffix = "." },
			fields: []string{"serviceSuffix"},
		},
		{
			name: "bad backend and timeouts",
			mutate: func(c *Config) {
				c.ServiceManager.Backend = "openrc"
				c.ServiceManager.Timeout = 0
				c.Watch.PollInterval = -time.Second
			},
			fields: []string{"serviceManager.backend", "serviceManager.timeout", "watch.pollInterval"},
		},
		{
			name:   "lock enabled without path",
			mutate: func(c *Config) { c.Lock.Path = "" },
			fields: []string{"lock.path"},
		},
		{
			name: "lock disabled without path",
			mutate: func(c *Config) {
				disabled := false
				c.Lock.Enabled = &disabled
				c.Lock.Path = ""
			},
		},
		{
			name: "bad log settings",
			mutate: func(c *Config) {
				c.Log.Level = "verbose"
				c.Log.Format = "logfmt"
			},
			fields: []string{"log.level", "log.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			errs := cfg.Validate()
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("targetDir", "is required")
	assert.Equal(t, "field 'targetDir': is required", errs.Error())

	errs.Add("extension", "is required")
	assert.Contains(t, errs.Error(), "validation failed: ")
	assert.Contains(t, errs.Error(), "; field 'extension'")
}

func TestConfigurationError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewConfigurationError("preflight", "/srv/units", "source root unreadable", cause)

	assert.Equal(t, "[preflight] /srv/units: source root unreadable: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsConfigurationError(cause))

	detailed := err.DetailedError()
	assert.Contains(t, detailed, "Configuration error (preflight)")
	assert.Contains(t, detailed, "Path: /srv/units")
	assert.Contains(t, detailed, "Cause: permission denied")
}

func TestConfigurationErrorCollection(t *testing.T) {
	var coll ConfigurationErrorCollection
	require.NoError(t, coll.ErrOrNil())

	coll.Add(NewConfigurationError("preflight", "systemctl", "not found in PATH", nil))
	coll.Add(NewConfigurationError("preflight", "/srv", "does not exist", nil))
	err := coll.ErrOrNil()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 configuration errors")

	wrapped := NewConfigurationError("preflight", "", "preflight checks failed", err)
	detailed := wrapped.DetailedError()
	assert.Contains(t, detailed, "  - [preflight] systemctl: not found in PATH")
	assert.Contains(t, detailed, "  - [preflight] /srv: does not exist")
}
