// Package config provides configuration management for quadsync.
//
// Configuration is resolved in layers, later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A YAML file, /etc/quadsync/config.yaml unless --config or
//     QUADSYNC_CONFIG names another one
//  3. Environment variables (QUADSYNC_SOURCE_DIRS, QUADSYNC_TARGET_DIR,
//     QUADSYNC_LOCK_FILE)
//  4. Command line flags (Overrides)
//
// A missing default file is not an error; a missing explicitly named file is.
//
// # File Format
//
//	sourceDirs:
//	  - /var/lib/quadsync/units      # highest priority
//	  - /usr/share/quadsync/units
//	targetDir: /etc/containers/systemd
//	extension: .container
//	serviceSuffix: .service
//	serviceManager:
//	  backend: systemctl            # or dbus
//	  user: false
//	  timeout: 30s
//	watch:
//	  pollInterval: 60s
//	  debounce: 500ms
//	  useFSNotify: true
//	lock:
//	  enabled: true
//	  path: /run/quadsync/quadsync.lock
//	log:
//	  level: info
//	  format: text
//
// # Errors
//
// Every failure that must stop the process before a pass runs is reported as
// a *ConfigurationError. Field-level problems are collected in
// ValidationErrors and wrapped in a ConfigurationError by Resolve.
package config
