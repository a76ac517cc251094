// Package errors provides the error taxonomy shared by the caplog packages.
// It defines sentinel errors, typed errors that carry the context needed to
// diagnose a failure, and classification helpers used by callers that decide
// between propagating, retrying, or degrading to a boolean result.
//
// # Error Types
//
//   - ConfigurationError: a required setting was never configured (for
//     example starting capture before a destination is set). Always
//     propagated to the caller.
//   - ExecutionError: an external command could not be launched or read.
//     Logged and reported as a failed operation; retryable.
//   - ParseError: the output of the process listing command did not carry
//     the expected header columns. Logged; the owning identity is treated
//     as unknown.
//   - ReleasedReferenceError: the host the supervisor was bound to is no
//     longer alive. Logged; retryable once a live host is supplied.
//
// # Usage
//
//	err := errors.NewExecutionError([]string{"ps"}, cause)
//	if errors.Is(err, errors.ErrExecution) { ... }
//
//	var cfgErr *errors.ConfigurationError
//	if errors.As(err, &cfgErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors that degrade an operation but are expected.
	SeverityWarning Severity = iota
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for caller bugs that must not be swallowed.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrDestinationNotSet indicates capture was started before a destination was configured.
	ErrDestinationNotSet = New("capture destination is not set")
	// ErrExecution indicates an external command could not be run.
	ErrExecution = New("external command failed")
	// ErrParse indicates that process listing output could not be parsed.
	ErrParse = New("unexpected process listing output")
	// ErrReleasedReference indicates the bound host is no longer alive.
	ErrReleasedReference = New("host reference has been released")
	// ErrIdentityUnknown indicates the owning user of the host could not be resolved.
	ErrIdentityUnknown = New("owning identity is unknown")
	// ErrInvalidLevel indicates an out-of-range severity level.
	ErrInvalidLevel = New("invalid log level")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// CaplogError is the interface implemented by every typed error in this package.
type CaplogError interface {
	error
	Unwrap() error
	Severity() Severity
	IsRetryable() bool
}

type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error      { return e.cause }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }

// -----------------------------------------------------------------------------
// Typed Errors
// -----------------------------------------------------------------------------

// ConfigurationError reports a missing or invalid persisted setting.
//
// Example:
//
//	err := errors.NewConfigurationError("LogcatPath", "destination must be set before start")
//	errors.Is(err, errors.ErrDestinationNotSet) // true when Key is the destination key
type ConfigurationError struct {
	baseError
	Key string
}

// NewConfigurationError creates a ConfigurationError for the given settings key.
func NewConfigurationError(key, message string) *ConfigurationError {
	return &ConfigurationError{
		baseError: baseError{message: message, severity: SeverityCritical},
		Key:       key,
	}
}

// WithCause attaches the sentinel or underlying error.
func (e *ConfigurationError) WithCause(cause error) *ConfigurationError {
	e.cause = cause
	return e
}

func (e *ConfigurationError) Error() string {
	prefix := "configuration error"
	if e.Key != "" {
		prefix = fmt.Sprintf("configuration error [key=%s]", e.Key)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is matches any *ConfigurationError target in addition to the wrapped cause.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// ExecutionError reports a failure to launch or read an external command.
type ExecutionError struct {
	baseError
	Argv []string
}

// NewExecutionError creates an ExecutionError for argv.
func NewExecutionError(argv []string, cause error) *ExecutionError {
	return &ExecutionError{
		baseError: baseError{message: "failed to run command", cause: cause, severity: SeverityError, retryable: true},
		Argv:      append([]string(nil), argv...),
	}
}

func (e *ExecutionError) Error() string {
	cmd := strings.Join(e.Argv, " ")
	if e.cause != nil {
		return fmt.Sprintf("execution error [%s]: %s: %v", cmd, e.message, e.cause)
	}
	return fmt.Sprintf("execution error [%s]: %s", cmd, e.message)
}

// Is matches ErrExecution and any *ExecutionError target.
func (e *ExecutionError) Is(target error) bool {
	if target == ErrExecution {
		return true
	}
	_, ok := target.(*ExecutionError)
	return ok
}

// ParseError reports process listing output without the expected columns.
type ParseError struct {
	baseError
	Header  string
	Missing []string
}

// NewParseError creates a ParseError for the given header line and missing columns.
func NewParseError(header string, missing ...string) *ParseError {
	msg := "header row is missing"
	if len(missing) > 0 {
		msg = "missing column(s) " + strings.Join(missing, ", ")
	}
	return &ParseError{
		baseError: baseError{message: msg, severity: SeverityWarning},
		Header:    header,
		Missing:   missing,
	}
}

func (e *ParseError) Error() string {
	if e.Header == "" {
		return "parse error: " + e.message
	}
	return fmt.Sprintf("parse error: %s in header %q", e.message, e.Header)
}

// Is matches ErrParse and any *ParseError target.
func (e *ParseError) Is(target error) bool {
	if target == ErrParse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// ReleasedReferenceError reports an operation attempted after the bound host was released.
type ReleasedReferenceError struct {
	baseError
	Operation string
}

// NewReleasedReferenceError creates a ReleasedReferenceError for an operation name.
func NewReleasedReferenceError(operation string) *ReleasedReferenceError {
	return &ReleasedReferenceError{
		baseError: baseError{message: "host is no longer available", severity: SeverityWarning, retryable: true},
		Operation: operation,
	}
}

func (e *ReleasedReferenceError) Error() string {
	return fmt.Sprintf("released reference [op=%s]: %s", e.Operation, e.message)
}

// Is matches ErrReleasedReference and any *ReleasedReferenceError target.
func (e *ReleasedReferenceError) Is(target error) bool {
	if target == ErrReleasedReference {
		return true
	}
	_, ok := target.(*ReleasedReferenceError)
	return ok
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation may
// succeed when called again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce CaplogError
	if As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// IsConfiguration returns true for errors caused by missing configuration.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return As(err, &cfgErr)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CaplogError.
func GetSeverity(err error) Severity {
	var ce CaplogError
	if As(err, &ce) {
		return ce.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
