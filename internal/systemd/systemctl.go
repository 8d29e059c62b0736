package systemd

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"quadsync/pkg/logging"
)

const systemctlSubsystem = "Systemd"

// SystemctlCommand is the binary the systemctl backend shells out to.
const SystemctlCommand = "systemctl"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// SystemctlManager implements Manager by invoking systemctl.
type SystemctlManager struct {
	user    bool
	timeout time.Duration
}

// NewSystemctlManager creates a systemctl backend. With user set every call
// targets the per-user manager (systemctl --user).
func NewSystemctlManager(user bool, timeout time.Duration) *SystemctlManager {
	return &SystemctlManager{user: user, timeout: timeout}
}

func (m *SystemctlManager) args(args ...string) []string {
	if m.user {
		return append([]string{"--user"}, args...)
	}
	return args
}

// run executes one bounded systemctl call and returns its stdout.
func (m *SystemctlManager) run(ctx context.Context, op, unit string, args ...string) (string, error) {
	callCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	full := m.args(args...)
	logging.Debug(systemctlSubsystem, "Running: %s %s", SystemctlCommand, strings.Join(full, " "))

	cmd := execCommandContext(callCtx, SystemctlCommand, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &ServiceError{
			Op:     op,
			Unit:   unit,
			Output: strings.TrimSpace(stderr.String()),
			Err:    timeoutCause(callCtx, err),
		}
	}
	return stdout.String(), nil
}

// Reload runs systemctl daemon-reload.
func (m *SystemctlManager) Reload(ctx context.Context) error {
	_, err := m.run(ctx, "reload", "", "daemon-reload")
	return err
}

// Start runs systemctl start <name>.
func (m *SystemctlManager) Start(ctx context.Context, name string) error {
	_, err := m.run(ctx, "start", name, "start", name)
	return err
}

// Stop runs systemctl stop <name>.
func (m *SystemctlManager) Stop(ctx context.Context, name string) error {
	_, err := m.run(ctx, "stop", name, "stop", name)
	return err
}

// IsActive runs systemctl is-active <name>. systemctl exits non-zero for
// every state other than active but still prints the state, so a non-zero
// exit with a state on stdout is not an error.
func (m *SystemctlManager) IsActive(ctx context.Context, name string) (ServiceStatus, error) {
	out, err := m.run(ctx, "is-active", name, "is-active", name)
	state := strings.TrimSpace(out)
	if err != nil && state == "" {
		return ServiceStatus{Name: name, State: "unknown"}, err
	}
	return ServiceStatus{Name: name, State: state, Active: IsActiveState(state)}, nil
}

// Close is a no-op for the systemctl backend.
func (m *SystemctlManager) Close() error {
	return nil
}
