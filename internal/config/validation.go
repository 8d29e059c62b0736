package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"quadsync/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: "is required"}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePositive checks that a duration is greater than zero.
func ValidatePositive(field string, value time.Duration) error {
	if value <= 0 {
		return ValidationError{Field: field, Value: value, Message: "must be greater than zero"}
	}
	return nil
}

// Validate checks the configuration for consistency. Paths are expected to
// be normalized already.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	if len(c.SourceDirs) == 0 {
		errs.Add("sourceDirs", "at least one source directory is required")
	}
	add(ValidateRequired("targetDir", c.TargetDir))

	seen := make(map[string]int, len(c.SourceDirs))
	for i, dir := range c.SourceDirs {
		if prev, ok := seen[dir]; ok {
			errs.Add(fmt.Sprintf("sourceDirs[%d]", i), fmt.Sprintf("duplicates sourceDirs[%d]", prev), dir)
			continue
		}
		seen[dir] = i
		if c.TargetDir != "" && isWithin(dir, c.TargetDir) {
			errs.Add(fmt.Sprintf("sourceDirs[%d]", i), "must not overlap the target directory", dir)
		}
	}

	if strings.TrimSpace(strings.TrimPrefix(c.Extension, ".")) == "" {
		errs.Add("extension", "is required", c.Extension)
	} else if strings.ContainsRune(c.Extension, filepath.Separator) {
		errs.Add("extension", "must not contain a path separator", c.Extension)
	}
	if strings.TrimSpace(strings.TrimPrefix(c.ServiceSuffix, ".")) == "" {
		errs.Add("serviceSuffix", "is required", c.ServiceSuffix)
	}

	add(ValidateOneOf("serviceManager.backend", c.ServiceManager.Backend, []string{BackendSystemctl, BackendDBus}))
	add(ValidatePositive("serviceManager.timeout", c.ServiceManager.Timeout))
	add(ValidatePositive("watch.pollInterval", c.Watch.PollInterval))
	add(ValidatePositive("watch.debounce", c.Watch.Debounce))

	if c.Lock.IsEnabled() {
		add(ValidateRequired("lock.path", c.Lock.Path))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs.Add("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	add(ValidateOneOf("log.format", c.Log.Format, []string{"text", "json"}))

	return errs
}

// isWithin reports whether a and b are the same directory or one contains the other.
func isWithin(a, b string) bool {
	if a == b {
		return true
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		rel, err := filepath.Rel(pair[0], pair[1])
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
