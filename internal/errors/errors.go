// Package errors provides centralized error definitions and error handling
// utilities for the ad unit. It defines domain sentinels, typed errors that
// carry lifecycle context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - LoadError: a load cycle reported failure (surfaced verbatim to the observer)
//   - PreconditionError: an operation was called in a context it does not allow
//
// Semantic errors:
//   - ValidationError: invalid input or configuration
//
// # Usage
//
//	err := errors.NewLoadError("no bid returned", errors.ErrNoFill).WithCycle(cycleID)
//
//	if errors.Is(err, errors.ErrNoFill) { ... }
//
//	var pre *errors.PreconditionError
//	if errors.As(err, &pre) { ... }
//
// # Error Classification
//
//   - Retryable: transient load failures (timeouts, network)
//   - UserFacing: errors safe to show to application users
//   - Severity: Debug, Info, Warning, Error, Critical
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
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
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

// Load-related sentinel errors
var (
	// ErrNoFill indicates the ad request completed without a creative.
	ErrNoFill = New("no fill")
	// ErrLoadTimeout indicates the load coordinator gave up waiting.
	ErrLoadTimeout = New("load timed out")
	// ErrNetwork indicates a transport failure while loading.
	ErrNetwork = New("network error")
	// ErrInvalidLoadResult indicates a load succeeded without a usable show action.
	ErrInvalidLoadResult = New("invalid load result")
)

// Presentation-related sentinel errors
var (
	// ErrOffUIContext indicates a UI-only operation ran off the UI execution context.
	ErrOffUIContext = New("called off the UI execution context")
	// ErrNotReady indicates no loaded ad is available to present.
	ErrNotReady = New("ad not ready")
	// ErrAlreadyShowing indicates a presentation is already in progress.
	ErrAlreadyShowing = New("ad already showing")
	// ErrHostUnavailable indicates the presentation host has been released.
	ErrHostUnavailable = New("presentation host unavailable")
)

// General sentinel errors
var (
	// ErrSchedulerStopped indicates work was posted to a stopped scheduler.
	ErrSchedulerStopped = New("scheduler stopped")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// AdError is the base interface for all ad unit errors.
type AdError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "prefix [k=v, ...]: message: cause".
func formatWithContext(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LoadError represents a failed load cycle.
//
// Example:
//
//	err := errors.NewLoadError("request failed", errors.ErrNetwork).WithCycle("c-1")
//	fmt.Println(err) // "load error [cycle=c-1]: request failed: network error"
type LoadError struct {
	baseError
	UnitID  string
	CycleID string
}

// NewLoadError creates a new LoadError. Timeouts and network failures are
// marked retryable; everything else is not.
func NewLoadError(message string, cause error) *LoadError {
	retryable := errors.Is(cause, ErrLoadTimeout) || errors.Is(cause, ErrNetwork)
	return &LoadError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  retryable,
			userFacing: true,
		},
	}
}

// WithUnit adds the ad unit ID to the error context.
func (e *LoadError) WithUnit(id string) *LoadError {
	e.UnitID = id
	return e
}

// WithCycle adds the load cycle ID to the error context.
func (e *LoadError) WithCycle(id string) *LoadError {
	e.CycleID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *LoadError) WithRetryable(r bool) *LoadError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *LoadError) Error() string {
	var parts []string
	if e.UnitID != "" {
		parts = append(parts, fmt.Sprintf("unit=%s", e.UnitID))
	}
	if e.CycleID != "" {
		parts = append(parts, fmt.Sprintf("cycle=%s", e.CycleID))
	}
	return formatWithContext("load error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *LoadError) Is(target error) bool {
	_, ok := target.(*LoadError)
	return ok
}

// PreconditionError reports a programmer error: an operation was invoked in
// a context it does not allow. It is never produced for the silently
// ignored cases (show without a ready ad, show while showing).
//
// Example:
//
//	err := errors.NewPreconditionError("show", errors.ErrOffUIContext).WithPhase("ready")
type PreconditionError struct {
	baseError
	Operation string
	Phase     string
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(operation string, cause error) *PreconditionError {
	return &PreconditionError{
		baseError: baseError{
			message:    "precondition violated",
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: false,
		},
		Operation: operation,
	}
}

// WithPhase records the lifecycle phase observed when the violation occurred.
func (e *PreconditionError) WithPhase(phase string) *PreconditionError {
	e.Phase = phase
	return e
}

// Error returns the formatted error message.
func (e *PreconditionError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	return formatWithContext("precondition error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *PreconditionError) Is(target error) bool {
	_, ok := target.(*PreconditionError)
	return ok
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("fill rate must be within [0,1]").WithField("simulator.fill_rate")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithContext("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition.
// The unit itself never retries; this helper is for callers deciding
// whether to issue another LoadAd.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var adErr AdError
	if As(err, &adErr) {
		return adErr.IsRetryable()
	}

	return Is(err, ErrLoadTimeout) || Is(err, ErrNetwork)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var adErr AdError
	if As(err, &adErr) {
		return adErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement AdError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var adErr AdError
	if As(err, &adErr) {
		return adErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

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
