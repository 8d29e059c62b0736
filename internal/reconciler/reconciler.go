package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

const reconcilerSubsystem = "Reconciler"

// maxScansPerPass bounds how often one pass rescans after finding the
// target directory changed under it.
const maxScansPerPass = 2

// Reconciler runs passes: scan both sides, diff, apply.
type Reconciler struct {
	sources  *SourceScanner
	targets  *TargetScanner
	executor *Executor
	metrics  *Metrics
}

// Option customises a Reconciler.
type Option func(*options)

type options struct {
	fs      FileSystem
	metrics *Metrics
}

// WithFileSystem replaces the filesystem used for link mutations.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithMetrics records pass counters into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New wires scanners and executor for layout.
func New(layout Layout, services systemd.Manager, opts ...Option) *Reconciler {
	o := options{fs: osFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}

	sources := NewSourceScanner(layout.SourceRoots, layout.Extension)
	targets := NewTargetScanner(layout.TargetDir, sources.Roots(), layout.Extension)

	canonical := layout
	canonical.SourceRoots = sources.Roots()
	canonical.TargetDir = targets.TargetDir()

	return &Reconciler{
		sources:  sources,
		targets:  targets,
		executor: NewExecutor(o.fs, services, canonical, o.metrics),
		metrics:  o.metrics,
	}
}

// Sources returns the source scanner.
func (r *Reconciler) Sources() *SourceScanner { return r.sources }

// Targets returns the target scanner.
func (r *Reconciler) Targets() *TargetScanner { return r.targets }

// RunPass performs one reconciliation pass. When the target directory
// changed between scan and mutation the pass rescans once; a second stale
// result is left to the next trigger.
func (r *Reconciler) RunPass(ctx context.Context) PassResult {
	start := time.Now()
	res := PassResult{ID: uuid.NewString()}
	log := logging.With(reconcilerSubsystem, "pass", res.ID)
	var conflicts []error

	for scan := 1; scan <= maxScansPerPass; scan++ {
		if scan > 1 {
			res.Rescanned = true
			log.Info("target directory changed during pass, rescanning")
		}

		desired := r.sources.Scan()
		actual, err := r.targets.Scan()
		if err != nil {
			log.Warn("cannot scan target directory", "error", err)
			res.Errors = append(res.Errors, err)
			break
		}

		diff := ComputeDiff(desired, actual)
		res.Diff = diff
		conflicts = conflictErrors(diff)
		for _, err := range conflicts {
			log.Warn("unit not managed", "error", err)
		}

		if diff.IsEmpty() {
			log.Debug("nothing to do", "definitions", len(desired.Definitions), "links", len(actual.Links))
			res.Stale = false
			break
		}

		log.Info("applying diff",
			"add", len(diff.ToAdd), "update", len(diff.ToUpdate), "remove", len(diff.ToRemove),
			"skipped", len(diff.Skipped), "ignored", len(diff.Ignored))

		applied := r.executor.Apply(ctx, diff, desired)
		res.Changed = res.Changed || applied.Changed
		res.Reloaded = res.Reloaded || applied.Reloaded
		res.Started = append(res.Started, applied.Started...)
		res.Errors = append(res.Errors, applied.Errors...)
		res.Stale = applied.Stale
		res.Interrupted = res.Interrupted || applied.Interrupted

		if !applied.Stale || ctx.Err() != nil {
			break
		}
	}

	res.Errors = append(conflicts, res.Errors...)
	if res.Stale {
		log.Warn("pass left stale, waiting for the next trigger", "error", ErrStalePass)
	}
	res.Duration = time.Since(start)
	r.metrics.RecordPass(res)
	return res
}

func conflictErrors(diff ReconcileDiff) []error {
	var errs []error
	for _, s := range diff.Skipped {
		if s.Conflict {
			errs = append(errs, &ConflictError{Name: s.Name, Path: s.Path, Reason: s.Reason})
		}
	}
	return errs
}
