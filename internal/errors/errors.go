// Package errors provides the failure taxonomy shared by the state store, the
// recovery path, and the transition engine.
//
// # Failure Kinds
//
// Every non-exceptional failure is described by a [Kind]:
//   - NotFound: an expected file or directory is absent
//   - NoWorkspace: the workspace root does not exist
//   - NoSession: the session-state file does not exist
//   - CorruptState: the session-state file is not parseable JSON
//   - InvalidState: the record parsed but violates the schema
//   - ValidatorNotFound: the exit-validation script for a step is missing
//   - ValidationFailed: the exit-validation script ran and reported failure
//   - InvalidTransition: the requested transition is not a legal move
//   - MissingOutput: a declared step output is missing (warning only)
//   - Locked: another process holds the advisory state lock
//
// # Usage
//
//	err := errors.NewStateError(errors.KindInvalidState, "missing required fields", nil).
//		WithPath(path).
//		WithFields("session_id", "started_at")
//
//	if errors.Is(err, errors.ErrInvalidState) { ... }
//	switch errors.KindOf(err) { ... }
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
	// SeverityWarning is for conditions that are reported but never block.
	SeverityWarning Severity = iota
	// SeverityError is for failures that halt the current operation.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Kind identifies a failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindNoWorkspace
	KindNoSession
	KindCorruptState
	KindInvalidState
	KindValidatorNotFound
	KindValidationFailed
	KindInvalidTransition
	KindMissingOutput
	KindLocked
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindNotFound:          "NotFound",
	KindNoWorkspace:       "NoWorkspace",
	KindNoSession:         "NoSession",
	KindCorruptState:      "CorruptState",
	KindInvalidState:      "InvalidState",
	KindValidatorNotFound: "ValidatorNotFound",
	KindValidationFailed:  "ValidationFailed",
	KindInvalidTransition: "InvalidTransition",
	KindMissingOutput:     "MissingOutput",
	KindLocked:            "Locked",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// MarshalText lets kinds render by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Severity reports whether the kind blocks an operation or is advisory.
func (k Kind) Severity() Severity {
	if k == KindMissingOutput {
		return SeverityWarning
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// State-related sentinel errors
var (
	// ErrNotFound indicates that an expected file or directory is absent.
	ErrNotFound = New("not found")
	// ErrNoWorkspace indicates that the workspace directory does not exist.
	ErrNoWorkspace = New("workspace directory does not exist")
	// ErrSessionNotFound indicates that no session state file exists.
	ErrSessionNotFound = New("no session state found")
	// ErrSessionCorrupted indicates that the session state file is not valid JSON.
	ErrSessionCorrupted = New("failed to parse state file")
	// ErrInvalidState indicates that the session state violates the schema.
	ErrInvalidState = New("invalid state")
	// ErrSessionLocked indicates that another process holds the state lock.
	ErrSessionLocked = New("session is locked by another process")
	// ErrMissingOutput indicates that a declared step output is missing.
	ErrMissingOutput = New("missing step output")
)

// Transition-related sentinel errors
var (
	// ErrValidatorNotFound indicates that the exit-validation script is missing.
	ErrValidatorNotFound = New("exit validation script not found")
	// ErrValidationFailed indicates that the exit-validation script reported failure.
	ErrValidationFailed = New("exit validation failed")
	// ErrInvalidTransition indicates a transition that skips or revisits a step.
	ErrInvalidTransition = New("invalid transition")
	// ErrTimeout indicates that an exit-validation script exceeded its time limit.
	ErrTimeout = New("operation timed out")
)

// Sentinel returns the sentinel error associated with the kind, or nil.
func (k Kind) Sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindNoWorkspace:
		return ErrNoWorkspace
	case KindNoSession:
		return ErrSessionNotFound
	case KindCorruptState:
		return ErrSessionCorrupted
	case KindInvalidState:
		return ErrInvalidState
	case KindValidatorNotFound:
		return ErrValidatorNotFound
	case KindValidationFailed:
		return ErrValidationFailed
	case KindInvalidTransition:
		return ErrInvalidTransition
	case KindMissingOutput:
		return ErrMissingOutput
	case KindLocked:
		return ErrSessionLocked
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	kind    Kind
	message string
	cause   error
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Kind returns the failure category.
func (e *baseError) Kind() Kind {
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.kind.Severity()
}

// Message returns the human-readable message without prefixes or causes.
func (e *baseError) Message() string {
	return e.message
}

func (e *baseError) is(target error) bool {
	if s := e.kind.Sentinel(); s != nil && target == s {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// StateError
// -----------------------------------------------------------------------------

// StateError describes a failure to load, validate, or persist session state.
//
// Example:
//
//	err := errors.NewStateError(errors.KindInvalidState, "missing required fields", nil).
//		WithFields("session_id")
//	fmt.Println(err) // "state error [kind=InvalidState, fields=session_id]: missing required fields"
type StateError struct {
	baseError
	Path   string
	Fields []string
}

// NewStateError creates a new StateError.
func NewStateError(kind Kind, message string, cause error) *StateError {
	return &StateError{
		baseError: baseError{kind: kind, message: message, cause: cause},
	}
}

// WithPath records the file or directory the error refers to.
func (e *StateError) WithPath(path string) *StateError {
	e.Path = path
	return e
}

// WithFields records the offending schema fields.
func (e *StateError) WithFields(fields ...string) *StateError {
	e.Fields = append(e.Fields, fields...)
	return e
}

// Error returns the formatted error message.
func (e *StateError) Error() string {
	parts := []string{"kind=" + e.kind.String()}
	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}
	if len(e.Fields) > 0 {
		parts = append(parts, "fields="+strings.Join(e.Fields, ","))
	}
	return e.format("state error", parts)
}

// Is checks if this error matches the target.
func (e *StateError) Is(target error) bool {
	if _, ok := target.(*StateError); ok {
		return true
	}
	return e.is(target)
}

// -----------------------------------------------------------------------------
// TransitionError
// -----------------------------------------------------------------------------

// TransitionError describes a transition that was blocked.
type TransitionError struct {
	baseError
	From    string
	To      string
	Reasons []string
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(kind Kind, message string, cause error) *TransitionError {
	return &TransitionError{
		baseError: baseError{kind: kind, message: message, cause: cause},
	}
}

// WithSteps records the source and target steps.
func (e *TransitionError) WithSteps(from, to string) *TransitionError {
	e.From = from
	e.To = to
	return e
}

// WithReasons records the diagnostic lines reported by the validator.
func (e *TransitionError) WithReasons(reasons ...string) *TransitionError {
	e.Reasons = append(e.Reasons, reasons...)
	return e
}

// Error returns the formatted error message.
func (e *TransitionError) Error() string {
	parts := []string{"kind=" + e.kind.String()}
	if e.From != "" {
		parts = append(parts, "from="+e.From)
	}
	if e.To != "" {
		parts = append(parts, "to="+e.To)
	}
	return e.format("transition error", parts)
}

// Is checks if this error matches the target.
func (e *TransitionError) Is(target error) bool {
	if _, ok := target.(*TransitionError); ok {
		return true
	}
	return e.is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

type kinded interface {
	Kind() Kind
}

// KindOf returns the failure kind carried by err, falling back to sentinel
// matching. Returns KindUnknown for nil or unrecognized errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	for kind := KindNotFound; kind <= KindLocked; kind++ {
		if s := kind.Sentinel(); s != nil && errors.Is(err, s) {
			return kind
		}
	}
	return KindUnknown
}
