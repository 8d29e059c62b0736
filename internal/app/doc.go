// Package app provides application bootstrap and mode execution for quadsync.
//
// NewApplication initializes logging and resolves configuration in layers:
// built-in defaults, the YAML file (--config, QUADSYNC_CONFIG or
// /etc/quadsync/config.yaml), QUADSYNC_* environment variables and finally
// command line overrides. Run then executes one of three modes:
//
//   - once: take the instance lock, run preflight, run a single pass.
//   - watch: as once, then keep reconciling on filesystem events or the
//     poll interval until SIGINT or SIGTERM. Readiness, status and watchdog
//     keep-alives are reported to systemd when running as a notify service.
//   - status: build a read-only report and render it as a table, JSON, YAML
//     or a user template. No lock is taken and nothing is mutated.
//
// Only *config.ConfigurationError is fatal in the sense of the process exit
// code; per-unit failures during a pass are logged as warnings.
package app
