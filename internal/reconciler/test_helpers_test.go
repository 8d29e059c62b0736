package reconciler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"quadsync/internal/systemd"
)

// =============================================================================
// journal - shared, ordered record of observable side effects
// =============================================================================

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// index returns the position of the first entry equal to s, or -1.
func (j *journal) index(s string) int {
	for i, e := range j.all() {
		if e == s {
			return i
		}
	}
	return -1
}

// mutations returns entries that changed host state.
func (j *journal) mutations() []string {
	var out []string
	for _, e := range j.all() {
		if !strings.HasPrefix(e, "is-active ") {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// fakeServices - systemd.Manager recording every call
// =============================================================================

// fakeServices fails every call whose context is done, like the real
// backends do.
type fakeServices struct {
	journal *journal

	mu        sync.Mutex
	active    map[string]bool
	startErr  map[string]error
	stopErr   map[string]error
	reloadErr error
	// startActivates marks a service active once started.
	startActivates bool
}

func newFakeServices(j *journal) *fakeServices {
	return &fakeServices{
		journal:        j,
		active:         make(map[string]bool),
		startErr:       make(map[string]error),
		stopErr:        make(map[string]error),
		startActivates: true,
	}
}

func (f *fakeServices) Reload(ctx context.Context) error {
	f.journal.add("reload")
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.reloadErr
}

func (f *fakeServices) Start(ctx context.Context, name string) error {
	f.journal.add("start %s", name)
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.startErr[name]; err != nil {
		return err
	}
	if f.startActivates {
		f.active[name] = true
	}
	return nil
}

func (f *fakeServices) Stop(ctx context.Context, name string) error {
	f.journal.add("stop %s", name)
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.stopErr[name]; err != nil {
		return err
	}
	f.active[name] = false
	return nil
}

func (f *fakeServices) IsActive(ctx context.Context, name string) (systemd.ServiceStatus, error) {
	f.journal.add("is-active %s", name)
	if err := ctx.Err(); err != nil {
		return systemd.ServiceStatus{Name: name, State: "unknown"}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[name] {
		return systemd.ServiceStatus{Name: name, State: "active", Active: true}, nil
	}
	return systemd.ServiceStatus{Name: name, State: "inactive"}, nil
}

func (f *fakeServices) Close() error { return nil }

func (f *fakeServices) setActive(name string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[name] = active
}

func (f *fakeServices) isActive(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[name]
}

// =============================================================================
// recordingFS - FileSystem recording mutations, with fault injection
// =============================================================================

type recordingFS struct {
	journal *journal

	// symlinkErr fails Symlink for the given link path.
	symlinkErr map[string]error
	// beforeSymlink runs before the real Symlink call.
	beforeSymlink func(newname string)
	// touched records every path passed to any call.
	touched map[string]bool
	mu      sync.Mutex
}

func newRecordingFS(j *journal) *recordingFS {
	return &recordingFS{
		journal:    j,
		symlinkErr: make(map[string]error),
		touched:    make(map[string]bool),
	}
}

func (r *recordingFS) touch(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[path] = true
}

func (r *recordingFS) wasTouched(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touched[path]
}

func (r *recordingFS) Symlink(oldname, newname string) error {
	r.touch(newname)
	r.journal.add("symlink %s", filepath.Base(newname))
	if r.beforeSymlink != nil {
		r.beforeSymlink(newname)
	}
	if err := r.symlinkErr[newname]; err != nil {
		return err
	}
	return os.Symlink(oldname, newname)
}

func (r *recordingFS) Remove(name string) error {
	r.touch(name)
	r.journal.add("unlink %s", filepath.Base(name))
	return os.Remove(name)
}

func (r *recordingFS) Lstat(name string) (os.FileInfo, error) {
	r.touch(name)
	return os.Lstat(name)
}

func (r *recordingFS) Readlink(name string) (string, error) {
	r.touch(name)
	return os.Readlink(name)
}

// =============================================================================
// fixture - temporary source roots and target directory
// =============================================================================

type fixture struct {
	t        *testing.T
	roots    []string
	target   string
	journal  *journal
	services *fakeServices
	fs       *recordingFS
	metrics  *Metrics
}

func newFixture(t *testing.T, rootCount int) *fixture {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}

	f := &fixture{
		t:       t,
		target:  filepath.Join(base, "target"),
		journal: &journal{},
		metrics: NewMetrics(),
	}
	for i := 0; i < rootCount; i++ {
		root := filepath.Join(base, fmt.Sprintf("root%d", i))
		mustMkdir(t, root)
		f.roots = append(f.roots, root)
	}
	mustMkdir(t, f.target)
	f.services = newFakeServices(f.journal)
	f.fs = newRecordingFS(f.journal)
	return f
}

func (f *fixture) layout() Layout {
	return Layout{
		SourceRoots:   f.roots,
		TargetDir:     f.target,
		Extension:     ".container",
		ServiceSuffix: ".service",
	}
}

func (f *fixture) reconciler() *Reconciler {
	return New(f.layout(), f.services, WithFileSystem(f.fs), WithMetrics(f.metrics))
}

// define writes a definition into root i.
func (f *fixture) define(i int, name string) string {
	f.t.Helper()
	path := filepath.Join(f.roots[i], name)
	content := fmt.Sprintf("[Unit]\nDescription=%s\n\n[Container]\nImage=registry.example/%s:latest\n", name, strings.TrimSuffix(name, ".container"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.t.Fatalf("write definition: %v", err)
	}
	return path
}

func (f *fixture) undefine(i int, name string) {
	f.t.Helper()
	if err := os.Remove(filepath.Join(f.roots[i], name)); err != nil {
		f.t.Fatalf("remove definition: %v", err)
	}
}

func (f *fixture) linkPath(name string) string {
	return filepath.Join(f.target, name)
}

// linkTarget returns the raw destination of the link at name, or "" when
// there is no symlink.
func (f *fixture) linkTarget(name string) string {
	dest, err := os.Readlink(f.linkPath(name))
	if err != nil {
		return ""
	}
	return dest
}

// snapshot describes the target directory: name -> link destination, or
// "file:<content>" for regular files.
func (f *fixture) snapshot() map[string]string {
	f.t.Helper()
	entries, err := os.ReadDir(f.target)
	if err != nil {
		f.t.Fatalf("read target: %v", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		path := filepath.Join(f.target, e.Name())
		if dest, err := os.Readlink(path); err == nil {
			out[e.Name()] = dest
			continue
		}
		data, _ := os.ReadFile(path)
		out[e.Name()] = "file:" + string(data)
	}
	return out
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func names(defs []UnitDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

func linkNames(links []ManagedLink) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Name)
	}
	return out
}
