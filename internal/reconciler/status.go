package reconciler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

const statusSubsystem = "Status"

// ServiceInspector is the read-only part of systemd.Manager. Status only
// ever holds this interface, so it cannot start, stop or reload anything.
type ServiceInspector interface {
	IsActive(ctx context.Context, name string) (systemd.ServiceStatus, error)
}

// Drift describes how one unit deviates from the desired state.
type Drift string

const (
	DriftInSync      Drift = "in-sync"
	DriftNotLinked   Drift = "not-linked"
	DriftWrongTarget Drift = "wrong-target"
	DriftOrphaned    Drift = "orphaned"
	DriftConflict    Drift = "conflict"
	DriftInactive    Drift = "inactive"
)

// UnitStatus is one row of the status report.
type UnitStatus struct {
	Name        string `json:"name" yaml:"name"`
	Service     string `json:"service" yaml:"service"`
	Desired     bool   `json:"desired" yaml:"desired"`
	SourcePath  string `json:"sourcePath,omitempty" yaml:"sourcePath,omitempty"`
	LinkPath    string `json:"linkPath,omitempty" yaml:"linkPath,omitempty"`
	LinkTarget  string `json:"linkTarget,omitempty" yaml:"linkTarget,omitempty"`
	Broken      bool   `json:"broken,omitempty" yaml:"broken,omitempty"`
	Conflict    string `json:"conflict,omitempty" yaml:"conflict,omitempty"`
	State       string `json:"state" yaml:"state"`
	Active      bool   `json:"active" yaml:"active"`
	Image       string `json:"image,omitempty" yaml:"image,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Drift       Drift  `json:"drift" yaml:"drift"`
}

// StatusReport is the read-only view of desired versus actual state.
type StatusReport struct {
	GeneratedAt time.Time        `json:"generatedAt" yaml:"generatedAt"`
	SourceRoots []string         `json:"sourceRoots" yaml:"sourceRoots"`
	TargetDir   string           `json:"targetDir" yaml:"targetDir"`
	Units       []UnitStatus     `json:"units" yaml:"units"`
	Ignored     []UnitDefinition `json:"ignored,omitempty" yaml:"ignored,omitempty"`
	Foreign     []ForeignEntry   `json:"foreign,omitempty" yaml:"foreign,omitempty"`
}

// Drifted counts units that are not in sync.
func (r StatusReport) Drifted() int {
	n := 0
	for _, u := range r.Units {
		if u.Drift != DriftInSync {
			n++
		}
	}
	return n
}

// BuildStatus scans both sides and asks the service manager for the state
// of every desired or linked unit. It performs no mutation.
func BuildStatus(ctx context.Context, sources *SourceScanner, targets *TargetScanner, services ServiceInspector, layout Layout) (StatusReport, error) {
	report := StatusReport{
		GeneratedAt: time.Now(),
		SourceRoots: sources.Roots(),
		TargetDir:   targets.TargetDir(),
	}

	desired := sources.Scan()
	actual, err := targets.Scan()
	if err != nil {
		return report, fmt.Errorf("scan target directory: %w", err)
	}
	report.Ignored = desired.Ignored

	rows := make(map[string]*UnitStatus)
	row := func(name string) *UnitStatus {
		if r, ok := rows[name]; ok {
			return r
		}
		r := &UnitStatus{Name: name, Service: layout.ServiceName(name)}
		rows[name] = r
		return r
	}

	for _, def := range desired.Definitions {
		r := row(def.Name)
		r.Desired = true
		r.SourcePath = def.SourcePath
		r.Image, r.Description = readUnit(def.SourcePath)
	}
	for _, link := range actual.Links {
		r := row(link.Name)
		r.LinkPath = link.LinkPath
		r.LinkTarget = link.ResolvedTarget
		r.Broken = link.Broken
	}
	for _, entry := range actual.Foreign {
		if r, ok := rows[entry.Name]; ok && r.Desired {
			r.LinkPath = entry.Path
			r.Conflict = entry.Reason
			continue
		}
		report.Foreign = append(report.Foreign, entry)
	}

	for _, r := range rows {
		status, err := services.IsActive(ctx, r.Service)
		if err != nil {
			logging.Debug(statusSubsystem, "Cannot query %s: %v", r.Service, err)
			status.State = "unknown"
		}
		r.State = status.State
		r.Active = status.Active
		r.Drift = classify(*r)
		report.Units = append(report.Units, *r)
	}

	sort.Slice(report.Units, func(i, j int) bool { return report.Units[i].Name < report.Units[j].Name })
	return report, nil
}

func classify(u UnitStatus) Drift {
	switch {
	case u.Conflict != "":
		return DriftConflict
	case !u.Desired:
		return DriftOrphaned
	case u.LinkTarget == "":
		return DriftNotLinked
	case u.LinkTarget != u.SourcePath:
		return DriftWrongTarget
	case !u.Active:
		return DriftInactive
	default:
		return DriftInSync
	}
}

// readUnit returns the Image= and Description= of a definition. Both are
// empty when it cannot be parsed.
func readUnit(path string) (image, description string) {
	unit, err := systemd.ReadUnitFile(path)
	if err != nil {
		logging.Debug(statusSubsystem, "Cannot parse %s: %v", path, err)
		return "", ""
	}
	return unit.Image(), unit.Description()
}
