// Package gate runs exit validation for process steps.
//
// [ExitValidator] is the capability the transition engine depends on. The
// production implementation, [ScriptRunner], executes the step's
// exit-validation script; tests substitute a fake. The package also holds
// the assertion helpers that exit-validation scripts can call through the
// CLI.
package gate

import (
	"context"

	"github.com/skillcreator/skillgate/internal/errors"
)

// Result is the outcome of running exit validation for one step.
type Result struct {
	Step   string      `json:"step"`
	Passed bool        `json:"passed"`
	Kind   errors.Kind `json:"kind,omitempty"`
	Errors []string    `json:"errors"`
	Output string      `json:"output"`
}

// Pass builds a passing Result.
func Pass(step, output string) Result {
	return Result{Step: step, Passed: true, Errors: []string{}, Output: output}
}

// Fail builds a failing Result of the given kind.
func Fail(step string, kind errors.Kind, output string, reasons ...string) Result {
	if reasons == nil {
		reasons = []string{}
	}
	return Result{Step: step, Kind: kind, Errors: reasons, Output: output}
}

// Err converts a failing Result into a TransitionError. Returns nil when
// the result passed.
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	kind := r.Kind
	if kind == errors.KindUnknown {
		kind = errors.KindValidationFailed
	}
	msg := kind.Sentinel().Error()
	return errors.NewTransitionError(kind, msg, nil).WithReasons(r.Errors...)
}

// ExitValidator checks whether a step may be left.
type ExitValidator interface {
	Run(ctx context.Context, step string) Result
}

// ExitValidatorFunc adapts a function to ExitValidator.
type ExitValidatorFunc func(ctx context.Context, step string) Result

// Run calls f.
func (f ExitValidatorFunc) Run(ctx context.Context, step string) Result {
	return f(ctx, step)
}
