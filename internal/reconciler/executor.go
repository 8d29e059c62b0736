package reconciler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

const executorSubsystem = "Executor"

// FileSystem is the set of link operations the executor performs. The
// default implementation calls the os package directly.
type FileSystem interface {
	Symlink(oldname, newname string) error
	Remove(name string) error
	Lstat(name string) (os.FileInfo, error)
	Readlink(name string) (string, error)
}

type osFileSystem struct{}

func (osFileSystem) Symlink(oldname, newname string) error  { return os.Symlink(oldname, newname) }
func (osFileSystem) Remove(name string) error               { return os.Remove(name) }
func (osFileSystem) Lstat(name string) (os.FileInfo, error) { return os.Lstat(name) }
func (osFileSystem) Readlink(name string) (string, error)   { return os.Readlink(name) }

// OSFileSystem returns the FileSystem backed by the host filesystem.
func OSFileSystem() FileSystem {
	return osFileSystem{}
}

// ApplyResult is what Executor.Apply did.
type ApplyResult struct {
	// Changed is true when at least one link was created or removed.
	Changed bool

	// Stale is true when the target directory changed between scan and
	// mutation, or when the apply was interrupted before every link change
	// was made. The caller rescans.
	Stale bool

	// Interrupted is true when ctx was cancelled before every link change
	// was made.
	Interrupted bool

	Reloaded bool
	Started  []string
	Errors   []error
}

func (r *ApplyResult) fail(err error) {
	r.Errors = append(r.Errors, err)
}

// Executor applies a ReconcileDiff to the target directory and drives the
// service manager.
type Executor struct {
	fs       FileSystem
	services systemd.Manager
	layout   Layout
	metrics  *Metrics
}

// NewExecutor creates an executor. metrics may be nil.
func NewExecutor(fsys FileSystem, services systemd.Manager, layout Layout, metrics *Metrics) *Executor {
	if fsys == nil {
		fsys = osFileSystem{}
	}
	return &Executor{fs: fsys, services: services, layout: layout, metrics: metrics}
}

// Apply performs adds, then updates (remove then create), then removes
// (stop then unlink). When any link changed it reloads the service manager
// and starts every desired unit that is linked, not conflicted and not
// active. Failures are collected per unit; nothing is rolled back.
//
// Cancelling ctx stops Apply from beginning another link change. The
// service calls owed for changes already made (the stop before an unlink,
// the reload and the starts) still run, each bounded by the service
// manager's own timeout, so no link is left behind without its reload.
func (e *Executor) Apply(ctx context.Context, diff ReconcileDiff, desired DesiredState) ApplyResult {
	var res ApplyResult
	absent := make(map[string]bool)
	svcCtx := context.WithoutCancel(ctx)

	for i, def := range diff.ToAdd {
		if e.interrupted(ctx, &res) {
			for _, rest := range diff.ToAdd[i:] {
				absent[rest.Name] = true
			}
			break
		}
		if !e.createLink(def, &res) {
			absent[def.Name] = true
		}
	}

	for _, upd := range diff.ToUpdate {
		if e.interrupted(ctx, &res) {
			break
		}
		if !e.removeLink(upd.Link, &res) {
			absent[upd.Definition.Name] = true
			continue
		}
		if !e.createLink(upd.Definition, &res) {
			absent[upd.Definition.Name] = true
		}
	}

	for _, link := range diff.ToRemove {
		if e.interrupted(ctx, &res) {
			break
		}
		service := e.layout.ServiceName(link.Name)
		if err := e.services.Stop(svcCtx, service); err != nil {
			logging.Warn(executorSubsystem, "Stopping %s failed, removing its link anyway: %v", service, err)
			res.fail(err)
			e.metrics.RecordServiceCall("stop", err)
		} else {
			e.metrics.RecordServiceCall("stop", nil)
		}
		e.removeLink(link, &res)
	}

	if !res.Changed {
		return res
	}

	if err := e.services.Reload(svcCtx); err != nil {
		logging.Warn(executorSubsystem, "Reloading the service manager failed: %v", err)
		res.fail(err)
		e.metrics.RecordServiceCall("reload", err)
	} else {
		res.Reloaded = true
		e.metrics.RecordServiceCall("reload", nil)
	}

	conflicts := diff.Conflicts()
	for _, def := range desired.Definitions {
		if conflicts[def.Name] || absent[def.Name] {
			continue
		}
		e.ensureStarted(svcCtx, def, &res)
	}

	return res
}

// interrupted reports whether ctx is done. The first time it is, the
// result is marked stale so the remaining link changes are picked up by
// the next pass.
func (e *Executor) interrupted(ctx context.Context, res *ApplyResult) bool {
	if ctx.Err() == nil {
		return false
	}
	if !res.Interrupted {
		logging.Warn(executorSubsystem, "Pass interrupted, leaving the remaining link changes for the next pass: %v", ctx.Err())
		res.Interrupted = true
		res.Stale = true
		res.fail(ctx.Err())
	}
	return true
}

// createLink links def into the target directory. It reports whether the
// link is in place afterwards.
func (e *Executor) createLink(def UnitDefinition, res *ApplyResult) bool {
	linkPath := filepath.Join(e.layout.TargetDir, def.Name)

	err := e.fs.Symlink(def.SourcePath, linkPath)
	switch {
	case err == nil:
		logging.Info(executorSubsystem, "Linked %s -> %s", linkPath, def.SourcePath)
		res.Changed = true
		e.metrics.RecordLinkOp(LinkCreated, nil)
		return true
	case errors.Is(err, fs.ErrExist):
		logging.Warn(executorSubsystem, "%s appeared since the scan, leaving it for the next pass", linkPath)
		res.Stale = true
		return false
	default:
		logging.Warn(executorSubsystem, "Cannot link %s: %v", linkPath, err)
		res.fail(&LinkError{Op: "create", Name: def.Name, Path: linkPath, Err: err})
		e.metrics.RecordLinkOp(LinkCreated, err)
		return false
	}
}

// removeLink deletes an owned link after checking it is still the link
// that was scanned. It reports whether the path is free afterwards.
func (e *Executor) removeLink(link ManagedLink, res *ApplyResult) bool {
	if !e.stillOwned(link) {
		logging.Warn(executorSubsystem, "%s changed since the scan, not removing it", link.LinkPath)
		res.Stale = true
		return false
	}

	err := e.fs.Remove(link.LinkPath)
	switch {
	case err == nil:
		logging.Info(executorSubsystem, "Removed link %s", link.LinkPath)
		res.Changed = true
		e.metrics.RecordLinkOp(LinkRemoved, nil)
		return true
	case errors.Is(err, fs.ErrNotExist):
		res.Stale = true
		return true
	default:
		logging.Warn(executorSubsystem, "Cannot remove %s: %v", link.LinkPath, err)
		res.fail(&LinkError{Op: "remove", Name: link.Name, Path: link.LinkPath, Err: err})
		e.metrics.RecordLinkOp(LinkRemoved, err)
		return false
	}
}

// stillOwned re-reads the link and compares it to the scanned target.
// A link that already vanished counts as owned; removal then reports
// ErrNotExist.
func (e *Executor) stillOwned(link ManagedLink) bool {
	info, err := e.fs.Lstat(link.LinkPath)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	resolved, err := resolveLinkWith(e.fs.Readlink, e.layout.TargetDir, link.LinkPath)
	return err == nil && resolved == link.ResolvedTarget
}

func (e *Executor) ensureStarted(ctx context.Context, def UnitDefinition, res *ApplyResult) {
	service := e.layout.ServiceName(def.Name)

	status, err := e.services.IsActive(ctx, service)
	if err != nil {
		logging.Warn(executorSubsystem, "Cannot query %s: %v", service, err)
		res.fail(err)
		return
	}
	if status.Active {
		return
	}

	if err := e.services.Start(ctx, service); err != nil {
		logging.Warn(executorSubsystem, "Starting %s failed: %v", service, err)
		res.fail(err)
		e.metrics.RecordServiceCall("start", err)
		return
	}
	logging.Info(executorSubsystem, "Started %s", service)
	res.Started = append(res.Started, service)
	e.metrics.RecordServiceCall("start", nil)
}
