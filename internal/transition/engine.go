// Package transition implements the gated, linear step state machine.
//
// A transition from one step to its successor is allowed only after the
// exit validator for the source step passes. Blocked transitions never
// touch the persisted record; successful ones re-read it from disk before
// mutating it.
package transition

import (
	"context"
	"fmt"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/gate"
	"github.com/skillcreator/skillgate/internal/logging"
	"github.com/skillcreator/skillgate/internal/process"
	"github.com/skillcreator/skillgate/internal/state"
)

// Outcome describes what a transition attempt did.
type Outcome struct {
	Success bool `json:"success"`
	Blocked bool `json:"blocked"`
	// Noop is set when there was nothing to do: no session, or the session
	// is already at the final step.
	Noop bool   `json:"noop,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// StayAt is the step the session remains at after a block.
	StayAt  string      `json:"stay_at,omitempty"`
	Kind    errors.Kind `json:"kind,omitempty"`
	Reasons []string    `json:"reasons,omitempty"`
	Output  string      `json:"output,omitempty"`
	// Persisted is false when validation passed but there was no record to
	// update.
	Persisted bool   `json:"persisted"`
	Message   string `json:"message"`
}

// Err returns a TransitionError for blocked outcomes and nil otherwise.
func (o *Outcome) Err() error {
	if o == nil || !o.Blocked {
		return nil
	}
	msg := o.Message
	if s := o.Kind.Sentinel(); s != nil {
		msg = s.Error()
	}
	return errors.NewTransitionError(o.Kind, msg, nil).
		WithSteps(o.From, o.To).
		WithReasons(o.Reasons...)
}

// Engine moves a session along a step sequence.
type Engine struct {
	steps     *process.Sequence
	store     *state.Store
	validator gate.ExitValidator
	logger    *logging.Logger
	useLock   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLock makes successful transitions take the store's advisory lock
// around the read-modify-write of the record.
func WithLock(enabled bool) Option {
	return func(e *Engine) {
		e.useLock = enabled
	}
}

// NewEngine creates an Engine. A nil steps selects the reference sequence.
func NewEngine(steps *process.Sequence, store *state.Store, validator gate.ExitValidator, opts ...Option) *Engine {
	if steps == nil {
		steps = process.Reference()
	}
	e := &Engine{
		steps:     steps,
		store:     store,
		validator: validator,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Steps returns the sequence the engine walks.
func (e *Engine) Steps() *process.Sequence {
	return e.steps
}

// NextStep returns the successor of step. The boolean is false for the last
// step and for identifiers outside the sequence.
func (e *Engine) NextStep(step string) (string, bool) {
	return e.steps.Next(step)
}

// Validate runs exit validation for step without touching state.
func (e *Engine) Validate(ctx context.Context, step string) gate.Result {
	return e.validator.Run(ctx, step)
}

// AttemptTransition validates from and, if it passes, records from as
// completed and moves the session to to.
//
// Blocked transitions are reported through the Outcome, not the error.
// The error is non-nil only when the record cannot be read or written.
func (e *Engine) AttemptTransition(ctx context.Context, from, to string) (*Outcome, error) {
	log := e.logger.With("from", from, "to", to)

	if next, ok := e.steps.Next(from); !ok || next != to {
		reason := fmt.Sprintf("%s is not the step after %s", to, from)
		if !e.steps.Contains(from) {
			reason = fmt.Sprintf("unknown step: %s", from)
		} else if !ok {
			reason = fmt.Sprintf("%s is the final step", from)
		}
		log.Warn("transition rejected", "reason", reason)
		return blocked(from, to, errors.KindInvalidTransition, "", reason), nil
	}

	log.Info("running exit validation")
	res := e.validator.Run(ctx, from)
	if !res.Passed {
		kind := res.Kind
		if kind == errors.KindUnknown {
			kind = errors.KindValidationFailed
		}
		log.Warn("transition blocked", "kind", kind.String(), "reasons", res.Errors)
		return blocked(from, to, kind, res.Output, res.Errors...), nil
	}

	exists, err := e.store.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return dryRun(log, from, to, res.Output), nil
	}

	if e.useLock {
		lock, err := e.store.AcquireLock(e.logger)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	// Re-read so that edits made while the validator ran are not lost.
	st, err := e.store.Load()
	if err != nil {
		if errors.KindOf(err) == errors.KindNoSession {
			return dryRun(log, from, to, res.Output), nil
		}
		return nil, err
	}

	if st.CurrentNode != from {
		reason := fmt.Sprintf("session is at %s, not %s", st.CurrentNode, from)
		log.Warn("transition rejected", "reason", reason)
		return blocked(from, to, errors.KindInvalidTransition, res.Output, reason), nil
	}

	st.MarkCompleted(from)
	st.CurrentNode = to
	if err := e.store.Save(st); err != nil {
		return nil, err
	}

	log.WithSession(st.SessionID).Info("transition persisted", "completed", len(st.CompletedNodes))
	return &Outcome{
		Success:   true,
		From:      from,
		To:        to,
		Output:    res.Output,
		Persisted: true,
		Message:   "Now at node: " + to,
	}, nil
}

// TransitionToNext advances the session from its current step to the next
// one. It is a no-op when there is no session or the session is at the
// final step. Corrupt or invalid records are returned as errors.
func (e *Engine) TransitionToNext(ctx context.Context) (*Outcome, error) {
	st, err := e.store.Load()
	if err != nil {
		if errors.KindOf(err) == errors.KindNoSession {
			return &Outcome{Noop: true, Message: "No active session found."}, nil
		}
		return nil, err
	}

	next, ok := e.steps.Next(st.CurrentNode)
	if !ok {
		return &Outcome{
			Noop:    true,
			From:    st.CurrentNode,
			Message: "Already at final node or invalid state.",
		}, nil
	}
	return e.AttemptTransition(ctx, st.CurrentNode, next)
}

// dryRun reports a passed validation when there is no record to update.
func dryRun(log *logging.Logger, from, to, output string) *Outcome {
	log.Info("exit validation passed without a session; nothing persisted")
	return &Outcome{
		Success: true,
		From:    from,
		To:      to,
		Output:  output,
		Message: fmt.Sprintf("Exit validation passed for %s (no active session, state not updated)", from),
	}
}

func blocked(from, to string, kind errors.Kind, output string, reasons ...string) *Outcome {
	if reasons == nil {
		reasons = []string{}
	}
	return &Outcome{
		Blocked: true,
		From:    from,
		To:      to,
		StayAt:  from,
		Kind:    kind,
		Reasons: reasons,
		Output:  output,
		Message: "Transition blocked; session remains at " + from,
	}
}
