package systemd

import (
	"context"
	"fmt"
	"time"

	sddbus "github.com/coreos/go-systemd/v22/dbus"

	"quadsync/pkg/logging"
)

// dbusConn is the subset of *sddbus.Conn used by DBusManager.
type dbusConn interface {
	ReloadContext(ctx context.Context) error
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]sddbus.UnitStatus, error)
	Close()
}

// DBusManager implements Manager over the systemd D-Bus API.
type DBusManager struct {
	conn    dbusConn
	timeout time.Duration
}

// NewDBusManager connects to the system bus, or the user bus when user is set.
func NewDBusManager(ctx context.Context, user bool, timeout time.Duration) (*DBusManager, error) {
	connectCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	var (
		conn *sddbus.Conn
		err  error
	)
	if user {
		conn, err = sddbus.NewUserConnectionContext(connectCtx)
	} else {
		conn, err = sddbus.NewWithContext(connectCtx)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to systemd over D-Bus: %w", err)
	}
	logging.Debug(systemctlSubsystem, "Connected to systemd over D-Bus (user=%t)", user)
	return newDBusManager(conn, timeout), nil
}

func newDBusManager(conn dbusConn, timeout time.Duration) *DBusManager {
	return &DBusManager{conn: conn, timeout: timeout}
}

// Reload calls Manager.Reload, the D-Bus equivalent of daemon-reload.
func (m *DBusManager) Reload(ctx context.Context) error {
	callCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.conn.ReloadContext(callCtx); err != nil {
		return &ServiceError{Op: "reload", Err: timeoutCause(callCtx, err)}
	}
	return nil
}

// Start queues a start job and waits for its result.
func (m *DBusManager) Start(ctx context.Context, name string) error {
	return m.runJob(ctx, "start", name, m.conn.StartUnitContext)
}

// Stop queues a stop job and waits for its result.
func (m *DBusManager) Stop(ctx context.Context, name string) error {
	return m.runJob(ctx, "stop", name, m.conn.StopUnitContext)
}

type jobFunc func(ctx context.Context, name string, mode string, ch chan<- string) (int, error)

func (m *DBusManager) runJob(ctx context.Context, op, name string, fn jobFunc) error {
	callCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	result := make(chan string, 1)
	if _, err := fn(callCtx, name, "replace", result); err != nil {
		return &ServiceError{Op: op, Unit: name, Err: timeoutCause(callCtx, err)}
	}

	select {
	case res := <-result:
		if res != "done" {
			return &ServiceError{Op: op, Unit: name, Err: fmt.Errorf("job finished with result %q", res)}
		}
		return nil
	case <-callCtx.Done():
		return &ServiceError{Op: op, Unit: name, Err: timeoutCause(callCtx, callCtx.Err())}
	}
}

// IsActive reads the unit's ActiveState. A unit systemd does not know is
// reported as inactive.
func (m *DBusManager) IsActive(ctx context.Context, name string) (ServiceStatus, error) {
	callCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	units, err := m.conn.ListUnitsByNamesContext(callCtx, []string{name})
	if err != nil {
		return ServiceStatus{Name: name, State: "unknown"}, &ServiceError{Op: "is-active", Unit: name, Err: timeoutCause(callCtx, err)}
	}
	for _, u := range units {
		if u.Name == name {
			return ServiceStatus{Name: name, State: u.ActiveState, Active: IsActiveState(u.ActiveState)}, nil
		}
	}
	return ServiceStatus{Name: name, State: "inactive"}, nil
}

// Close closes the bus connection.
func (m *DBusManager) Close() error {
	m.conn.Close()
	return nil
}
