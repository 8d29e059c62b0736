package reconciler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"quadsync/pkg/logging"
)

const targetSubsystem = "TargetScanner"

// TargetScanner classifies entries of the target directory into owned
// links and foreign entries. It never mutates anything.
type TargetScanner struct {
	targetDir string
	roots     []string
	extension string
}

// NewTargetScanner creates a scanner for targetDir. roots must be the
// canonical trusted roots, see SourceScanner.Roots.
func NewTargetScanner(targetDir string, roots []string, extension string) *TargetScanner {
	return &TargetScanner{
		targetDir: canonicalPath(targetDir),
		roots:     append([]string(nil), roots...),
		extension: extension,
	}
}

// TargetDir returns the canonical target directory.
func (s *TargetScanner) TargetDir() string {
	return s.targetDir
}

// Scan lists the target directory. A missing directory is an empty state.
func (s *TargetScanner) Scan() (ActualState, error) {
	var state ActualState

	entries, err := os.ReadDir(s.targetDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("read target directory %s: %w", s.targetDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !isUnitName(name, s.extension) {
			continue
		}
		path := filepath.Join(s.targetDir, name)

		if entry.Type()&fs.ModeSymlink == 0 {
			state.Foreign = append(state.Foreign, ForeignEntry{Name: name, Path: path, Reason: ReasonNotSymlink})
			continue
		}

		link, owned, err := s.inspectLink(name, path)
		switch {
		case err != nil:
			logging.Warn(targetSubsystem, "Cannot read link %s: %v", path, err)
			state.Foreign = append(state.Foreign, ForeignEntry{Name: name, Path: path, Reason: ReasonUnreadableLink})
		case !owned:
			state.Foreign = append(state.Foreign, ForeignEntry{Name: name, Path: path, Reason: ReasonOutsideRoots})
		default:
			state.Links = append(state.Links, link)
		}
	}

	logging.Debug(targetSubsystem, "Found %d owned links and %d foreign entries in %s",
		len(state.Links), len(state.Foreign), s.targetDir)
	return state, nil
}

// inspectLink resolves the link at path and reports whether it points into
// a trusted root.
func (s *TargetScanner) inspectLink(name, path string) (ManagedLink, bool, error) {
	resolved, err := resolveLink(s.targetDir, path)
	if err != nil {
		return ManagedLink{}, false, err
	}
	if !s.trusted(resolved) {
		return ManagedLink{}, false, nil
	}

	_, statErr := os.Stat(path)
	return ManagedLink{
		Name:           name,
		LinkPath:       path,
		ResolvedTarget: resolved,
		Broken:         statErr != nil,
	}, true, nil
}

func (s *TargetScanner) trusted(path string) bool {
	for _, root := range s.roots {
		if isUnder(root, path) {
			return true
		}
	}
	return false
}

// resolveLink reads the link at path and canonicalises its destination.
// Relative destinations are taken relative to dir.
func resolveLink(dir, path string) (string, error) {
	return resolveLinkWith(os.Readlink, dir, path)
}

func resolveLinkWith(readlink func(string) (string, error), dir, path string) (string, error) {
	dest, err := readlink(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(dir, dest)
	}
	return canonicalPath(dest), nil
}
