package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quadsync/pkg/logging"
)

const loopSubsystem = "Loop"

// LoopState is the trigger loop state.
type LoopState int

const (
	StateIdle LoopState = iota
	StateReconciling
	StateWatching
	// StatePreflightFailed is terminal: no pass runs after it.
	StatePreflightFailed
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReconciling:
		return "Reconciling"
	case StateWatching:
		return "Watching"
	case StatePreflightFailed:
		return "PreflightFailed"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// PassRunner runs one reconciliation pass. *Reconciler implements it.
type PassRunner interface {
	RunPass(ctx context.Context) PassResult
}

// Notifier receives loop lifecycle events. *systemd.Notifier implements it.
type Notifier interface {
	Ready()
	Status(msg string)
	Stopping()
}

type nopNotifier struct{}

func (nopNotifier) Ready()        {}
func (nopNotifier) Status(string) {}
func (nopNotifier) Stopping()     {}

// LoopConfig configures a Loop.
type LoopConfig struct {
	// Waiter is the wait primitive for watch mode. Defaults to PollWaiter.
	Waiter Waiter

	// Interval bounds every wait so the loop re-polls without events.
	Interval time.Duration

	// Notifier receives readiness and status updates. Optional.
	Notifier Notifier

	// Preflight checks the host before the first pass. Optional.
	Preflight func() error
}

// Loop decides when passes run.
type Loop struct {
	runner   PassRunner
	waiter   Waiter
	interval time.Duration
	notifier Notifier

	mu            sync.RWMutex
	state         LoopState
	preflight     func() error
	preflightDone bool
}

// NewLoop creates a loop in the Idle state.
func NewLoop(runner PassRunner, cfg LoopConfig) *Loop {
	if cfg.Waiter == nil {
		cfg.Waiter = NewPollWaiter()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	return &Loop{
		runner:    runner,
		waiter:    cfg.Waiter,
		interval:  cfg.Interval,
		notifier:  cfg.Notifier,
		preflight: cfg.Preflight,
		state:     StateIdle,
	}
}

// State returns the current state.
func (l *Loop) State() LoopState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loop) setState(s LoopState) {
	l.mu.Lock()
	prev := l.state
	l.state = s
	l.mu.Unlock()
	if prev != s {
		logging.Debug(loopSubsystem, "%s -> %s", prev, s)
	}
}

// SetWaiter replaces the wait primitive. It must be called before RunWatch.
func (l *Loop) SetWaiter(w Waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waiter = w
}

// Preflight runs the configured host checks once. A failure moves the loop
// into the terminal PreflightFailed state and is returned wrapped in
// ErrPreflightFailed; every later call returns ErrPreflightFailed. RunOnce
// and RunWatch call it before their first pass.
func (l *Loop) Preflight() error {
	l.mu.Lock()
	if l.state == StatePreflightFailed {
		l.mu.Unlock()
		return ErrPreflightFailed
	}
	check, done := l.preflight, l.preflightDone
	l.preflightDone = true
	l.mu.Unlock()

	if done || check == nil {
		return nil
	}
	if err := check(); err != nil {
		l.setState(StatePreflightFailed)
		return fmt.Errorf("%w: %w", ErrPreflightFailed, err)
	}
	return nil
}

func (l *Loop) pass(ctx context.Context) PassResult {
	l.setState(StateReconciling)
	res := l.runner.RunPass(ctx)
	l.notifier.Status(passStatus(res))
	return res
}

// RunOnce runs a single pass: Idle -> Reconciling -> Idle.
func (l *Loop) RunOnce(ctx context.Context) (PassResult, error) {
	if err := l.Preflight(); err != nil {
		return PassResult{}, err
	}
	res := l.pass(ctx)
	l.setState(StateIdle)
	return res, nil
}

// RunWatch runs an initial pass and then alternates between Watching and
// Reconciling until ctx is cancelled. A wait that times out still runs a
// pass. Cancellation is a normal exit and returns nil.
func (l *Loop) RunWatch(ctx context.Context) error {
	if err := l.Preflight(); err != nil {
		return err
	}
	defer l.setState(StateIdle)

	l.mu.RLock()
	waiter := l.waiter
	l.mu.RUnlock()

	l.pass(ctx)
	l.notifier.Ready()
	logging.Info(loopSubsystem, "Watching for changes (re-poll every %s)", l.interval)

	for {
		if ctx.Err() != nil {
			break
		}
		l.setState(StateWatching)

		result, err := waiter.WaitForChange(ctx, l.interval)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			return fmt.Errorf("wait for change: %w", err)
		}
		logging.Debug(loopSubsystem, "Wait %s", result)

		l.pass(ctx)
	}

	l.notifier.Stopping()
	logging.Info(loopSubsystem, "Stopped watching")
	return nil
}

func passStatus(res PassResult) string {
	switch {
	case res.Interrupted:
		return "last pass interrupted"
	case res.Stale:
		return "last pass stale, waiting for next trigger"
	case len(res.Errors) > 0:
		conflicts := 0
		for _, err := range res.Errors {
			if IsConflict(err) {
				conflicts++
			}
		}
		if conflicts == len(res.Errors) {
			return fmt.Sprintf("in sync, %d units blocked by foreign entries", conflicts)
		}
		return fmt.Sprintf("last pass finished with %d warnings (%d conflicts)", len(res.Errors), conflicts)
	case res.Changed:
		return fmt.Sprintf("converged, %d started", len(res.Started))
	default:
		return "in sync"
	}
}
