package systemd

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/unit"
)

// UnitFile is a parsed unit definition. quadsync never rewrites unit files;
// it only reads a few keys for display.
type UnitFile struct {
	Path    string
	Options []*unit.UnitOption
}

// ReadUnitFile parses a systemd-style unit file (including Quadlet
// .container files) at path.
func ReadUnitFile(path string) (*UnitFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts, err := unit.DeserializeOptions(f)
	if err != nil {
		return nil, fmt.Errorf("parse unit file %s: %w", path, err)
	}
	return &UnitFile{Path: path, Options: opts}, nil
}

// Get returns the last value of name in section, matching systemd's rule
// that later assignments win. The second result is false when absent.
func (u *UnitFile) Get(section, name string) (string, bool) {
	value, found := "", false
	for _, opt := range u.Options {
		if opt.Section == section && opt.Name == name {
			value, found = opt.Value, true
		}
	}
	return value, found
}

// Image returns the container image reference of a Quadlet .container unit.
func (u *UnitFile) Image() string {
	v, _ := u.Get("Container", "Image")
	return v
}

// Description returns the [Unit] Description, if any.
func (u *UnitFile) Description() string {
	v, _ := u.Get("Unit", "Description")
	return v
}
