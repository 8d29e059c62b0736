package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"quadsync/pkg/logging"
)

const waiterSubsystem = "Waiter"

// WaitResult tells the loop why a wait ended.
type WaitResult int

const (
	// WaitTimedOut means the timeout elapsed without a relevant change.
	WaitTimedOut WaitResult = iota
	// WaitTriggered means a relevant filesystem change was observed.
	WaitTriggered
)

func (r WaitResult) String() string {
	switch r {
	case WaitTriggered:
		return "triggered"
	default:
		return "timed out"
	}
}

// Waiter blocks the loop until something may have changed. Both outcomes
// lead to a pass; the distinction is informational.
type Waiter interface {
	// WaitForChange returns when a change is seen or timeout elapses. It
	// returns ctx.Err() when ctx is cancelled first.
	WaitForChange(ctx context.Context, timeout time.Duration) (WaitResult, error)

	// Close releases resources held by the waiter.
	Close() error
}

// PollWaiter is the fallback wait primitive: a plain sleep.
type PollWaiter struct{}

// NewPollWaiter creates a PollWaiter.
func NewPollWaiter() *PollWaiter {
	return &PollWaiter{}
}

// WaitForChange sleeps for timeout.
func (w *PollWaiter) WaitForChange(ctx context.Context, timeout time.Duration) (WaitResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return WaitTimedOut, ctx.Err()
	case <-timer.C:
		return WaitTimedOut, nil
	}
}

// Close is a no-op.
func (w *PollWaiter) Close() error { return nil }

// FSNotifyWaiter waits on filesystem notifications for the source roots
// and the target directory. Bursts of events are collapsed: a trigger
// fires once the directories have been quiet for the debounce interval.
//
// Run must be running for triggers to be delivered.
type FSNotifyWaiter struct {
	watcher   *fsnotify.Watcher
	extension string
	debounce  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	trigger chan struct{}
}

// NewFSNotifyWaiter watches dirs for changes to files with extension.
// Directories that cannot be watched are logged and skipped; an error is
// returned when none can be watched, so callers can fall back to polling.
func NewFSNotifyWaiter(dirs []string, extension string, debounce time.Duration) (*FSNotifyWaiter, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logging.Warn(waiterSubsystem, "Cannot watch %s: %v", dir, err)
			continue
		}
		logging.Debug(waiterSubsystem, "Watching directory: %s", dir)
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return nil, fmt.Errorf("no directory of %s could be watched", strings.Join(dirs, ", "))
	}

	return &FSNotifyWaiter{
		watcher:   watcher,
		extension: extension,
		debounce:  debounce,
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Run consumes filesystem events until ctx is cancelled or the watcher is
// closed.
func (w *FSNotifyWaiter) Run(ctx context.Context) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				logging.Debug(waiterSubsystem, "Filesystem event: %s", event)
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error(waiterSubsystem, err, "Filesystem watcher error")
			// Overflowed queues lose events; run a pass to be safe.
			w.schedule()
		}
	}
}

// relevant filters out chmod-only events and files that are not units.
func (w *FSNotifyWaiter) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return isUnitName(filepath.Base(event.Name), w.extension)
}

// schedule (re)starts the debounce timer.
func (w *FSNotifyWaiter) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
			// A trigger is already pending.
		}
	})
}

func (w *FSNotifyWaiter) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// WaitForChange blocks until a debounced trigger or the timeout.
func (w *FSNotifyWaiter) WaitForChange(ctx context.Context, timeout time.Duration) (WaitResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return WaitTimedOut, ctx.Err()
	case <-w.trigger:
		return WaitTriggered, nil
	case <-timer.C:
		return WaitTimedOut, nil
	}
}

// Close stops the underlying watcher, which also ends Run.
func (w *FSNotifyWaiter) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
