package reconciler

import (
	"errors"
	"fmt"
)

// ErrStalePass marks a pass whose scan no longer matches the target
// directory: a link appeared, vanished or changed between scan and mutation.
var ErrStalePass = errors.New("target directory changed during pass")

// ErrPreflightFailed is returned by the loop once preflight has failed.
var ErrPreflightFailed = errors.New("preflight failed")

// ConflictError reports a desired unit whose target name is occupied by an
// entry quadsync does not own.
type ConflictError struct {
	Name   string
	Path   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unit %s blocked by foreign entry %s (%s)", e.Name, e.Path, e.Reason)
}

// LinkError reports a failed link mutation for one unit.
type LinkError struct {
	Op   string // create, remove
	Name string
	Path string
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s link %s: %v", e.Op, e.Path, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
