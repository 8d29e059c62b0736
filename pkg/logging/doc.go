// Package logging provides the structured logger used across quadsync.
//
// It is a thin facade over Go's slog package: every entry carries a
// subsystem attribute so journald output can be filtered by component,
// and messages use printf-style formatting at the call site.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Reconciler", "Linked %s -> %s", linkPath, sourcePath)
//	logging.Warn("Executor", "Failed to stop %s: %v", service, err)
//	logging.Error("Bootstrap", err, "Preflight failed")
//
// Components that emit several related lines (for example all lines of one
// reconciliation pass) can use With to obtain a scoped *slog.Logger:
//
//	log := logging.With("Reconciler", "pass", passID)
//	log.Info("pass complete", "changed", changed)
//
// # Subsystems
//
//   - Bootstrap: application start-up and mode dispatch
//   - Config: configuration loading and validation
//   - Preflight: start-up checks
//   - SourceScanner / TargetScanner: desired and actual state discovery
//   - Executor: link mutations and service-manager calls
//   - Loop: trigger loop state transitions
//   - Waiter: filesystem notification and polling
//   - Systemd: service-manager backends and sd_notify
//
// The logger is safe for concurrent use.
package logging
