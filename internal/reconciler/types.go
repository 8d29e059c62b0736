package reconciler

import (
	"path/filepath"
	"strings"
	"time"

	"quadsync/internal/config"
)

// Layout describes where definitions live, where links go and how unit
// names map to service names.
type Layout struct {
	// SourceRoots are the trusted roots in priority order (index 0 wins).
	SourceRoots []string

	// TargetDir is the directory the service manager reads units from.
	TargetDir string

	// Extension is the managed definition suffix, e.g. ".container".
	Extension string

	// ServiceSuffix is the service manager's unit suffix, e.g. ".service".
	ServiceSuffix string
}

// LayoutFromConfig extracts the filesystem layout from a resolved configuration.
func LayoutFromConfig(cfg config.Config) Layout {
	return Layout{
		SourceRoots:   append([]string(nil), cfg.SourceDirs...),
		TargetDir:     cfg.TargetDir,
		Extension:     cfg.Extension,
		ServiceSuffix: cfg.ServiceSuffix,
	}
}

// ServiceName maps a definition file name to its service name.
func (l Layout) ServiceName(unitName string) string {
	return ServiceNameFor(unitName, l.Extension, l.ServiceSuffix)
}

// ServiceNameFor strips extension from definitionName and appends suffix:
// "web.container" becomes "web.service". Names without the extension only
// get the suffix appended.
func ServiceNameFor(definitionName, extension, suffix string) string {
	return strings.TrimSuffix(definitionName, extension) + suffix
}

// UnitDefinition is a definition file found directly inside a trusted root.
type UnitDefinition struct {
	Name       string `json:"name" yaml:"name"`             // file name, e.g. web.container
	SourcePath string `json:"sourcePath" yaml:"sourcePath"` // canonical absolute path
	SourceRoot string `json:"sourceRoot" yaml:"sourceRoot"` // canonical root that produced it
	Priority   int    `json:"priority" yaml:"priority"`     // index of SourceRoot, 0 is highest
}

// ManagedLink is a symlink in the target directory that resolves into a
// trusted root and is therefore owned by quadsync.
type ManagedLink struct {
	Name           string `json:"name" yaml:"name"`
	LinkPath       string `json:"linkPath" yaml:"linkPath"`
	ResolvedTarget string `json:"resolvedTarget" yaml:"resolvedTarget"`
	// Broken is set when the link target no longer exists.
	Broken bool `json:"broken,omitempty" yaml:"broken,omitempty"`
}

// Reasons reported for foreign target entries.
const (
	ReasonNotSymlink     = "not a symlink"
	ReasonOutsideRoots   = "links outside trusted roots"
	ReasonUnreadableLink = "unreadable link"
)

// ForeignEntry is a target directory entry quadsync does not own. It is
// never modified.
type ForeignEntry struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// SkippedEntry is a foreign entry carried through a diff. Conflict is set
// when its name is also desired, which blocks management of that unit.
type SkippedEntry struct {
	ForeignEntry
	Conflict bool
}

// LinkUpdate pairs an owned link with the definition it should point at.
type LinkUpdate struct {
	Definition UnitDefinition
	Link       ManagedLink
}

// ReconcileDiff is the instruction set of one pass. Every slice is sorted
// by name.
type ReconcileDiff struct {
	ToAdd    []UnitDefinition
	ToUpdate []LinkUpdate
	ToRemove []ManagedLink
	Skipped  []SkippedEntry
	Ignored  []UnitDefinition
}

// IsEmpty reports whether the diff requires no link mutation.
func (d ReconcileDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToUpdate) == 0 && len(d.ToRemove) == 0
}

// Conflicts returns the names of desired units blocked by foreign entries.
func (d ReconcileDiff) Conflicts() map[string]bool {
	out := make(map[string]bool)
	for _, s := range d.Skipped {
		if s.Conflict {
			out[s.Name] = true
		}
	}
	return out
}

// DesiredState is the Source Scanner output.
type DesiredState struct {
	// Definitions holds one definition per name, sorted by name.
	Definitions []UnitDefinition
	// Ignored holds lower-priority duplicates of names in Definitions.
	Ignored []UnitDefinition
}

// ActualState is the Target Scanner output.
type ActualState struct {
	Links   []ManagedLink
	Foreign []ForeignEntry
}

// PassResult summarises one reconciliation pass.
type PassResult struct {
	// ID correlates the log lines of one pass.
	ID string

	// Diff is the diff of the last scan in the pass.
	Diff ReconcileDiff

	// Changed is true when any link was created or removed.
	Changed bool

	// Stale is true when the target changed under the pass and the rescan
	// did not settle it either.
	Stale bool

	// Rescanned is true when a stale first attempt triggered a second scan.
	Rescanned bool

	// Interrupted is true when cancellation stopped the pass before every
	// link change was made. The pass is also Stale.
	Interrupted bool

	Reloaded bool
	Started  []string

	// Errors holds per-unit warnings: conflicts, service manager failures
	// and link failures. None of them abort the loop.
	Errors []error

	Duration time.Duration
}

// OK reports whether the pass finished without warnings.
func (r PassResult) OK() bool {
	return len(r.Errors) == 0 && !r.Stale
}

// isUnitName reports whether name is a managed definition file name. Dot
// files and a bare extension are excluded.
func isUnitName(name, extension string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return len(name) > len(extension) && strings.HasSuffix(name, extension)
}

// canonicalPath returns an absolute path with symlinks evaluated. When path
// itself does not exist its parent is evaluated instead, so a link to a
// deleted definition still resolves inside its root.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// isUnder reports whether path lies strictly inside root.
func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
