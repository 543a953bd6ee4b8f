package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/skillcreator/skillgate/internal/process"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "validator.timeout_seconds")
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// maxTimeoutSeconds caps validator.timeout_seconds at one day.
const maxTimeoutSeconds = 24 * 60 * 60

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateSteps()...)
	errors = append(errors, c.validateState()...)
	errors = append(errors, c.validateValidator()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	paths := []struct{ field, value string }{
		{"workspace.dir", c.Workspace.Dir},
		{"process.dir", c.Process.Dir},
	}
	for _, p := range paths {
		if strings.TrimSpace(p.value) == "" {
			errors = append(errors, ValidationError{Field: p.field, Value: p.value, Message: "must not be empty"})
		} else if strings.ContainsRune(p.value, '\x00') {
			errors = append(errors, ValidationError{Field: p.field, Value: p.value, Message: "path contains invalid null character"})
		}
	}
	return errors
}

func (c *Config) validateSteps() []ValidationError {
	var errors []ValidationError

	if len(c.Process.Steps) == 0 {
		return []ValidationError{{
			Field:   "process.steps",
			Value:   c.Process.Steps,
			Message: "must list at least one step",
		}}
	}

	seen := make(map[string]bool, len(c.Process.Steps))
	for i, step := range c.Process.Steps {
		field := fmt.Sprintf("process.steps[%d]", i)
		if !process.ValidStepID(step) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   step,
				Message: fmt.Sprintf("must match %s", process.StepIDPattern()),
			})
		}
		if seen[step] {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   step,
				Message: "duplicate step",
			})
		}
		seen[step] = true
	}
	return errors
}

func (c *Config) validateState() []ValidationError {
	file := c.State.File
	if strings.TrimSpace(file) == "" {
		return []ValidationError{{Field: "state.file", Value: file, Message: "must not be empty"}}
	}
	if strings.ContainsAny(file, `/\`) {
		return []ValidationError{{Field: "state.file", Value: file, Message: "must be a file name, not a path"}}
	}
	return nil
}

func (c *Config) validateValidator() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Validator.Shell) == "" {
		errors = append(errors, ValidationError{
			Field:   "validator.shell",
			Value:   c.Validator.Shell,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Validator.Script) == "" || strings.ContainsAny(c.Validator.Script, `/\`) {
		errors = append(errors, ValidationError{
			Field:   "validator.script",
			Value:   c.Validator.Script,
			Message: "must be a non-empty file name",
		})
	}
	if c.Validator.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "validator.timeout_seconds",
			Value:   c.Validator.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}
	if c.Validator.TimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "validator.timeout_seconds",
			Value:   c.Validator.TimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTimeoutSeconds),
		})
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}
	return errors
}
