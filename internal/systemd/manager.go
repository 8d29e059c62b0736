package systemd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quadsync/internal/config"
)

// ErrTimeout is wrapped by ServiceError when a call exceeded its time bound.
var ErrTimeout = errors.New("service manager call timed out")

// ServiceStatus is a point-in-time view of one service as reported by the
// service manager.
type ServiceStatus struct {
	Name   string
	State  string // active, inactive, failed, activating, ...
	Active bool
}

// Manager is the host service-manager command surface the reconciler needs.
// Implementations must bound every call; a hung service manager must never
// block the reconciler indefinitely.
type Manager interface {
	// Reload asks the service manager to re-read its unit index.
	Reload(ctx context.Context) error

	// Start starts the named service.
	Start(ctx context.Context, name string) error

	// Stop stops the named service.
	Stop(ctx context.Context, name string) error

	// IsActive reports the current activity of the named service. It is an
	// inspection call and never changes host state.
	IsActive(ctx context.Context, name string) (ServiceStatus, error)

	// Close releases backend resources.
	Close() error
}

// ServiceError reports a failed service-manager operation for one unit.
type ServiceError struct {
	Op     string // reload, start, stop, is-active
	Unit   string // empty for reload
	Output string // trimmed command output, if any
	Err    error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Unit != "" {
		b.WriteString(" ")
		b.WriteString(e.Unit)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, " (%s)", e.Output)
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsActiveState reports whether a systemd ActiveState counts as running.
// Units that are starting up or reloading are treated as active so the
// reconciler does not issue a second start for them.
func IsActiveState(state string) bool {
	switch strings.TrimSpace(state) {
	case "active", "activating", "reloading":
		return true
	default:
		return false
	}
}

// NewManager creates the backend selected by the configuration.
func NewManager(ctx context.Context, cfg config.ServiceManagerConfig) (Manager, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultServiceTimeout
	}

	switch cfg.Backend {
	case "", config.BackendSystemctl:
		return NewSystemctlManager(cfg.User, timeout), nil
	case config.BackendDBus:
		return NewDBusManager(ctx, cfg.User, timeout)
	default:
		return nil, fmt.Errorf("unknown service manager backend %q", cfg.Backend)
	}
}

// withTimeout derives the bounded context for one service-manager call.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

// timeoutCause wraps err with ErrTimeout when ctx ran out of time.
func timeoutCause(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
