package app

import (
	"context"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"quadsync/internal/config"
	"quadsync/internal/formatting"
	"quadsync/internal/lock"
	"quadsync/internal/preflight"
	"quadsync/internal/reconciler"
	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

// prepared bundles what once and watch mode hold for their lifetime.
type prepared struct {
	lock     *lock.InstanceLock
	services *Services
}

func (p *prepared) close() {
	if err := p.services.Close(); err != nil {
		logging.Warn("CLI", "%v", err)
	}
	if err := p.lock.Release(); err != nil {
		logging.Warn("CLI", "%v", err)
	}
}

// prepare takes the instance lock and wires the services. Preflight is left
// to the loop, which owns the PreflightFailed state.
func prepare(ctx context.Context, cfg config.Config) (*prepared, error) {
	p := &prepared{}

	if cfg.Lock.IsEnabled() {
		l, err := lock.Acquire(cfg.Lock.Path)
		if err != nil {
			return nil, err
		}
		p.lock = l
	} else {
		logging.Debug("CLI", "Instance lock disabled")
	}

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		_ = p.lock.Release()
		return nil, err
	}
	p.services = services
	return p, nil
}

// runOnce executes exactly one reconciliation pass. Per-unit failures are
// logged as warnings and do not change the exit status.
func runOnce(ctx context.Context, appCfg *Config) error {
	cfg := *appCfg.Quadsync

	p, err := prepare(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close()

	loop := reconciler.NewLoop(p.services.Reconciler, reconciler.LoopConfig{
		Preflight: preflightCheck(cfg),
	})
	res, err := loop.RunOnce(ctx)
	if err != nil {
		return err
	}

	if res.OK() {
		logging.Info("CLI", "Pass %s complete (changed=%t, started=%d) in %s",
			res.ID, res.Changed, len(res.Started), res.Duration)
	} else {
		logging.Warn("CLI", "Pass %s complete with %d warnings (stale=%t)", res.ID, len(res.Errors), res.Stale)
	}
	return nil
}

// runWatch runs the trigger loop until SIGINT or SIGTERM.
//
// The loop, the filesystem event reader and the watchdog keep-alive run in
// one errgroup. Only the loop touches reconciler state.
func runWatch(ctx context.Context, appCfg *Config) error {
	cfg := *appCfg.Quadsync

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := prepare(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close()

	rec := p.services.Reconciler
	notifier := systemd.NewNotifier()
	loop := reconciler.NewLoop(rec, reconciler.LoopConfig{
		Interval:  cfg.Watch.PollInterval,
		Notifier:  notifier,
		Preflight: preflightCheck(cfg),
	})

	// Preflight creates the target directory, so it runs before the
	// directories are watched.
	if err := loop.Preflight(); err != nil {
		return err
	}

	watched := append(rec.Sources().Roots(), rec.Targets().TargetDir())
	waiter, events := newWaiter(cfg, watched)
	defer waiter.Close()
	loop.SetWaiter(waiter)

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoop := context.WithCancel(gctx)
	defer cancelLoop()

	if events != nil {
		g.Go(func() error { return events.Run(loopCtx) })
	}
	g.Go(func() error { return notifier.RunWatchdog(loopCtx) })
	g.Go(func() error {
		// The helpers above only stop on cancellation.
		defer cancelLoop()
		return loop.RunWatch(loopCtx)
	})

	logging.Info("CLI", "Watching %d source roots. Send SIGINT or SIGTERM to stop.", len(cfg.SourceDirs))
	err = g.Wait()
	p.services.Metrics.LogSummary()
	return err
}

func preflightCheck(cfg config.Config) func() error {
	return func() error {
		return preflight.Err(preflight.RunAll(cfg))
	}
}

// newWaiter prefers filesystem notifications on dirs and falls back to
// polling. The returned FSNotifyWaiter is nil when polling is used.
func newWaiter(cfg config.Config, dirs []string) (reconciler.Waiter, *reconciler.FSNotifyWaiter) {
	if !cfg.Watch.FSNotifyEnabled() {
		logging.Info("CLI", "Filesystem notifications disabled, polling every %s", cfg.Watch.PollInterval)
		return reconciler.NewPollWaiter(), nil
	}

	w, err := reconciler.NewFSNotifyWaiter(dirs, cfg.Extension, cfg.Watch.Debounce)
	if err != nil {
		logging.Warn("CLI", "Filesystem notifications unavailable, polling every %s: %v", cfg.Watch.PollInterval, err)
		return reconciler.NewPollWaiter(), nil
	}
	return w, w
}

// runStatus prints desired versus actual state. It takes no lock, runs no
// preflight and never mutates the host.
func runStatus(ctx context.Context, appCfg *Config) error {
	cfg := *appCfg.Quadsync

	opts := appCfg.Output
	if opts.Format == "" {
		opts.Format = formatting.FormatTable
	}
	opts.Color = opts.Format == formatting.FormatTable && formatting.ShouldColorize(appCfg.Stdout)
	renderer, err := formatting.NewRenderer(opts)
	if err != nil {
		return err
	}

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	stopSpinner := formatting.StartSpinner(appCfg.Stderr, "Collecting status...")
	rec := services.Reconciler
	report, err := reconciler.BuildStatus(ctx, rec.Sources(), rec.Targets(), services.Manager, services.Layout)
	stopSpinner()
	if err != nil {
		return err
	}

	return renderer.Render(appCfg.Stdout, report)
}
