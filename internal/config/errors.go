package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is the only error class that is fatal to the process:
// a missing host tool, an unreadable source root, an unwritable target
// directory, a malformed config file or a held instance lock. It is raised
// before any reconciliation pass runs.
type ConfigurationError struct {
	Component string // config, preflight, lock
	Path      string // file, directory or command concerned (may be empty)
	Message   string // human-readable summary
	Err       error  // underlying cause (may be nil)
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", ce.Component)
	if ce.Path != "" {
		fmt.Fprintf(&b, " %s:", ce.Path)
	}
	b.WriteString(" ")
	b.WriteString(ce.Message)
	if ce.Err != nil {
		fmt.Fprintf(&b, ": %v", ce.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a multi-line description suitable for terminal output.
func (ce *ConfigurationError) DetailedError() string {
	parts := []string{fmt.Sprintf("Configuration error (%s): %s", ce.Component, ce.Message)}
	if ce.Path != "" {
		parts = append(parts, fmt.Sprintf("  Path: %s", ce.Path))
	}
	if ce.Err != nil {
		var coll *ConfigurationErrorCollection
		if errors.As(ce.Err, &coll) {
			for _, e := range coll.Errors {
				parts = append(parts, "  - "+e.Error())
			}
		} else {
			parts = append(parts, fmt.Sprintf("  Cause: %v", ce.Err))
		}
	}
	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(component, path, message string, err error) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ConfigurationErrorCollection holds multiple configuration errors, for
// example every failed preflight check.
type ConfigurationErrorCollection struct {
	Errors []*ConfigurationError
}

// Error implements the error interface for the collection
func (cec *ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	default:
		return fmt.Sprintf("%d configuration errors: %s (and %d more)",
			len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
	}
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err *ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// ErrOrNil returns the collection as an error, or nil when it is empty.
func (cec *ConfigurationErrorCollection) ErrOrNil() error {
	if cec == nil || !cec.HasErrors() {
		return nil
	}
	return cec
}
