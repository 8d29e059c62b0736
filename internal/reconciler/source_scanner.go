package reconciler

import (
	"os"
	"path/filepath"
	"sort"

	"quadsync/pkg/logging"
)

const sourceSubsystem = "SourceScanner"

// SourceScanner enumerates unit definitions from the trusted roots.
type SourceScanner struct {
	roots     []string
	extension string
}

// NewSourceScanner canonicalises roots once so later path comparisons are
// stable. Order is preserved: it is the priority order.
func NewSourceScanner(roots []string, extension string) *SourceScanner {
	canonical := make([]string, 0, len(roots))
	for _, root := range roots {
		canonical = append(canonical, canonicalPath(root))
	}
	return &SourceScanner{roots: canonical, extension: extension}
}

// Roots returns the canonical roots in priority order.
func (s *SourceScanner) Roots() []string {
	return append([]string(nil), s.roots...)
}

// Scan reads every root. Only regular files directly inside a root count;
// symlinks, directories and other entries are treated as absent. A root
// that cannot be read contributes nothing. When two roots define the same
// name the earlier root wins and the later definition is ignored.
func (s *SourceScanner) Scan() DesiredState {
	var state DesiredState
	seen := make(map[string]UnitDefinition)

	for priority, root := range s.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			logging.Warn(sourceSubsystem, "Skipping unreadable source root %s: %v", root, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if !isUnitName(name, s.extension) || !entry.Type().IsRegular() {
				continue
			}

			def := UnitDefinition{
				Name:       name,
				SourcePath: filepath.Join(root, name),
				SourceRoot: root,
				Priority:   priority,
			}
			if winner, dup := seen[name]; dup {
				logging.Warn(sourceSubsystem, "Ignoring %s: %s is already defined by higher-priority root %s",
					def.SourcePath, name, winner.SourceRoot)
				state.Ignored = append(state.Ignored, def)
				continue
			}
			seen[name] = def
			state.Definitions = append(state.Definitions, def)
		}
	}

	sort.Slice(state.Definitions, func(i, j int) bool {
		return state.Definitions[i].Name < state.Definitions[j].Name
	})
	sort.SliceStable(state.Ignored, func(i, j int) bool {
		return state.Ignored[i].Name < state.Ignored[j].Name
	})

	logging.Debug(sourceSubsystem, "Found %d definitions (%d ignored) in %d roots",
		len(state.Definitions), len(state.Ignored), len(s.roots))
	return state
}
