package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "simulator.fill_rate")
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

// unitIDRegex validates unit ID characters.
// IDs appear in log fields and metric attributes, so keep them simple.
var unitIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Unit config
	errors = append(errors, c.validateUnit()...)

	// Validate Simulator config
	errors = append(errors, c.validateSimulator()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateUnit validates the UnitConfig
func (c *Config) validateUnit() []ValidationError {
	var errors []ValidationError

	if c.Unit.ID == "" {
		return errors
	}

	const maxUnitIDLength = 64
	if len(c.Unit.ID) > maxUnitIDLength {
		errors = append(errors, ValidationError{
			Field:   "unit.id",
			Value:   c.Unit.ID,
			Message: fmt.Sprintf("exceeds maximum length of %d", maxUnitIDLength),
		})
	}

	if !unitIDRegex.MatchString(c.Unit.ID) {
		errors = append(errors, ValidationError{
			Field:   "unit.id",
			Value:   c.Unit.ID,
			Message: "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'",
		})
	}

	return errors
}

// validateSimulator validates the SimulatorConfig
func (c *Config) validateSimulator() []ValidationError {
	var errors []ValidationError

	// Reasonable upper bound so a misconfigured run does not hang for hours
	const maxDurationMs = 10 * 60 * 1000 // 10 minutes

	durations := []struct {
		field string
		value int
	}{
		{"simulator.load_latency_ms", c.Simulator.LoadLatencyMs},
		{"simulator.latency_jitter_ms", c.Simulator.LatencyJitterMs},
		{"simulator.expires_after_ms", c.Simulator.ExpiresAfterMs},
		{"simulator.auto_dismiss_ms", c.Simulator.AutoDismissMs},
	}
	for _, d := range durations {
		if d.value < 0 {
			errors = append(errors, ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: "must be non-negative",
			})
		} else if d.value > maxDurationMs {
			errors = append(errors, ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: fmt.Sprintf("exceeds maximum of %dms", maxDurationMs),
			})
		}
	}

	if c.Simulator.FillRate < 0 || c.Simulator.FillRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "simulator.fill_rate",
			Value:   c.Simulator.FillRate,
			Message: "must be between 0 and 1",
		})
	}

	if c.Simulator.FailureKind != "" && !IsValidFailureKind(c.Simulator.FailureKind) {
		errors = append(errors, ValidationError{
			Field:   "simulator.failure_kind",
			Value:   c.Simulator.FailureKind,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFailureKinds(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "contains invalid null character",
		})
	}

	return errors
}
