package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"quadsync/pkg/logging"
)

// sdNotify and sdWatchdogEnabled are variables to allow mocking in tests
var (
	sdNotify          = daemon.SdNotify
	sdWatchdogEnabled = daemon.SdWatchdogEnabled
)

// Notifier reports service readiness to systemd when quadsync itself runs
// as a Type=notify unit. Outside systemd every call is a no-op.
type Notifier struct{}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) send(state string) {
	sent, err := sdNotify(false, state)
	if err != nil {
		logging.Debug(systemctlSubsystem, "sd_notify %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug(systemctlSubsystem, "sd_notify %q", state)
	}
}

// Ready signals that start-up finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Status publishes a one-line status shown by systemctl status.
func (n *Notifier) Status(msg string) {
	n.send("STATUS=" + msg)
}

// Stopping signals that shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// RunWatchdog sends keep-alives at half the interval systemd expects until
// ctx is cancelled. It returns immediately when no watchdog is configured.
func (n *Notifier) RunWatchdog(ctx context.Context) error {
	interval, err := sdWatchdogEnabled(false)
	if err != nil {
		logging.Warn(systemctlSubsystem, "Cannot read watchdog settings: %v", err)
		return nil
	}
	if interval <= 0 {
		return nil
	}

	tick := interval / 2
	if tick <= 0 {
		tick = interval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	logging.Debug(systemctlSubsystem, "Watchdog enabled, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
