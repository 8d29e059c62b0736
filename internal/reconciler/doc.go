// Package reconciler keeps the target unit directory convergent with the
// trusted source roots.
//
// # Overview
//
// A pass scans both sides, computes a ReconcileDiff and applies it:
//
//   - SourceScanner: UnitDefinitions from the source roots, in priority order
//   - TargetScanner: owned ManagedLinks and ForeignEntries in the target directory
//   - ComputeDiff: pure comparison of the two
//   - Executor: link mutations, then service manager reload and start
//
// Only symlinks that resolve into a trusted root are ever created, rewritten
// or deleted. Everything else in the target directory is foreign and is
// reported, never touched.
//
// # Failure handling
//
// There are no transactions. A partially applied pass is normal; the next
// pass re-diffs and finishes the work. When the target directory changes
// between scan and mutation the pass is stale and is rescanned once.
//
// # Triggers
//
// Loop runs passes once or in watch mode. In watch mode it blocks on a
// Waiter between passes: FSNotifyWaiter for filesystem notifications, or
// PollWaiter when notifications are unavailable. Every wait is bounded, so
// the loop re-polls even without events.
//
// Example usage:
//
//	r := reconciler.New(layout, services, reconciler.WithMetrics(metrics))
//	loop := reconciler.NewLoop(r, reconciler.LoopConfig{Waiter: waiter, Interval: time.Minute})
//	if err := loop.RunWatch(ctx); err != nil {
//	    return fmt.Errorf("watch: %w", err)
//	}
package reconciler
