package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Iron-Ham/caplog/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "capture.watch_interval")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// namespaceRegex validates the settings namespace, which becomes a file name
var namespaceRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

const (
	minWatchInterval = 100 * time.Millisecond
	maxLogSizeMB     = 1024
	maxLogBackups    = 100
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return logging.ValidLevelNames()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateCapture()...)

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			errors = append(errors, ValidationError{
				Field:   "logging.level",
				Value:   c.Logging.Level,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
			})
		}
	}

	// Zero disables rotation
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("must be between 0 and %d", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 || c.Logging.MaxBackups > maxLogBackups {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: fmt.Sprintf("must be between 0 and %d", maxLogBackups),
		})
	}

	return errors
}

// validateCapture validates the CaptureConfig
func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"capture.tool", c.Capture.Tool},
		{"capture.list_command", c.Capture.ListCommand},
		{"capture.kill_command", c.Capture.KillCommand},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Value:   r.value,
				Message: "must not be empty",
			})
		}
	}

	if !namespaceRegex.MatchString(c.Capture.Namespace) {
		errors = append(errors, ValidationError{
			Field:   "capture.namespace",
			Value:   c.Capture.Namespace,
			Message: "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'",
		})
	}

	if c.Capture.WatchInterval < minWatchInterval {
		errors = append(errors, ValidationError{
			Field:   "capture.watch_interval",
			Value:   c.Capture.WatchInterval,
			Message: fmt.Sprintf("must be at least %s", minWatchInterval),
		})
	}

	if c.Capture.CommandTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "capture.command_timeout",
			Value:   c.Capture.CommandTimeout,
			Message: "must be positive",
		})
	}

	return errors
}
