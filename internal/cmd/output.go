package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/state"
	"github.com/skillcreator/skillgate/internal/transition"
)

// silentError signals that the command failed but output was already provided.
// Used to set exit code 1 without printing a duplicate error message. cause,
// when set, carries the typed failure for callers that inspect the chain.
type silentError struct {
	cause error
}

func (e *silentError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return "command failed"
}

func (e *silentError) Unwrap() error {
	return e.cause
}

// IsSilent reports whether err has already been reported to the user.
func IsSilent(err error) bool {
	var s *silentError
	return errors.As(err, &s)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// reportOutcome prints a transition outcome. Blocked outcomes return a
// silentError so the process exits 1.
func reportOutcome(w io.Writer, out *transition.Outcome, asJSON bool) error {
	if asJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
		if out.Blocked {
			return &silentError{cause: out.Err()}
		}
		return nil
	}

	switch {
	case out.Noop:
		fmt.Fprintln(w, out.Message)
		return nil

	case out.Blocked:
		fmt.Fprintln(w, "=== TRANSITION BLOCKED ===")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "From: %s\nTo: %s\n\n", out.From, out.To)
		switch out.Kind {
		case errors.KindValidatorNotFound:
			fmt.Fprintln(w, "Exit validation script missing:")
		case errors.KindInvalidTransition:
			fmt.Fprintln(w, "Transition not allowed:")
		default:
			fmt.Fprintln(w, "Exit validation failed:")
		}
		for _, r := range out.Reasons {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		fmt.Fprintf(w, "\nSession remains at %s. Fix the issues and retry.\n", out.StayAt)
		return &silentError{cause: out.Err()}

	default:
		fmt.Fprintln(w, "=== TRANSITION SUCCESSFUL ===")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "From: %s\n", out.From)
		fmt.Fprintf(w, "Now at node: %s\n", out.To)
		if !out.Persisted {
			fmt.Fprintln(w, "No active session; state was not updated.")
		}
		fmt.Fprintf(w, "Read: %s\n", state.StepReadme(out.To))
		return nil
	}
}
