package systemd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// init sets up the test environment
func init() {
	// Replace the exec command context with our mock in tests
	execCommandContext = mockExecCommandContext
}

// mockExecCommandContext re-invokes the test binary as a fake systemctl.
// The context is honoured so timeout handling can be exercised.
func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) == 0 || args[0] != "systemctl" {
		fmt.Fprintf(os.Stderr, "unexpected command %v\n", args)
		os.Exit(2)
	}
	args = args[1:]
	if len(args) > 0 && args[0] == "--user" {
		args = args[1:]
		fmt.Fprint(os.Stdout, "user-scope ")
	}
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No systemctl verb\n")
		os.Exit(1)
	}

	verb := args[0]
	unit := ""
	if len(args) > 1 {
		unit = args[1]
	}

	if unit == "hang.service" {
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}

	switch verb {
	case "daemon-reload":
		os.Exit(0)
	case "start", "stop":
		if unit == "broken.service" {
			fmt.Fprintf(os.Stderr, "Job for %s failed.\n", unit)
			os.Exit(1)
		}
		os.Exit(0)
	case "is-active":
		switch unit {
		case "web.service":
			fmt.Fprintln(os.Stdout, "active")
			os.Exit(0)
		case "boot.service":
			fmt.Fprintln(os.Stdout, "activating")
			os.Exit(0)
		case "failed.service":
			fmt.Fprintln(os.Stdout, "failed")
			os.Exit(3)
		case "silent.service":
			os.Exit(4)
		default:
			fmt.Fprintln(os.Stdout, "inactive")
			os.Exit(3)
		}
	}

	fmt.Fprintf(os.Stderr, "Unknown verb %s\n", verb)
	os.Exit(1)
}

func TestSystemctlManager_Reload(t *testing.T) {
	m := NewSystemctlManager(false, 5*time.Second)
	assert.NoError(t, m.Reload(context.Background()))
}

func TestSystemctlManager_StartStop(t *testing.T) {
	m := NewSystemctlManager(false, 5*time.Second)
	ctx := context.Background()

	assert.NoError(t, m.Start(ctx, "web.service"))
	assert.NoError(t, m.Stop(ctx, "web.service"))

	err := m.Start(ctx, "broken.service")
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "start", svcErr.Op)
	assert.Equal(t, "broken.service", svcErr.Unit)
	assert.Contains(t, svcErr.Output, "Job for broken.service failed")
}

func TestSystemctlManager_IsActive(t *testing.T) {
	m := NewSystemctlManager(false, 5*time.Second)
	ctx := context.Background()

	tests := []struct {
		unit       string
		wantState  string
		wantActive bool
		wantErr    bool
	}{
		{"web.service", "active", true, false},
		{"boot.service", "activating", true, false},
		{"db.service", "inactive", false, false},
		{"failed.service", "failed", false, false},
		{"silent.service", "unknown", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			status, err := m.IsActive(ctx, tt.unit)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, status.State)
			assert.Equal(t, tt.wantActive, status.Active)
			assert.Equal(t, tt.unit, status.Name)
		})
	}
}

func TestSystemctlManager_UserScope(t *testing.T) {
	m := NewSystemctlManager(true, 5*time.Second)

	status, err := m.IsActive(context.Background(), "web.service")
	require.NoError(t, err)
	// The fake prefixes its output when --user was passed first.
	assert.Equal(t, "user-scope active", status.State)
}

func TestSystemctlManager_Timeout(t *testing.T) {
	m := NewSystemctlManager(false, 200*time.Millisecond)

	start := time.Now()
	err := m.Start(context.Background(), "hang.service")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIsActiveState(t *testing.T) {
	for state, want := range map[string]bool{
		"active":       true,
		"activating":   true,
		"reloading":    true,
		"inactive":     false,
		"failed":       false,
		"deactivating": false,
		"":             false,
	} {
		assert.Equal(t, want, IsActiveState(state), state)
	}
}

func TestServiceError_Message(t *testing.T) {
	err := &ServiceError{Op: "stop", Unit: "web.service", Output: "denied", Err: errors.New("exit status 1")}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "stop web.service: exit status 1"), msg)
	assert.Contains(t, msg, "(denied)")
}
