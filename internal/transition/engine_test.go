package transition

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/gate"
	"github.com/skillcreator/skillgate/internal/state"
	"github.com/skillcreator/skillgate/internal/testutil"
)

// fakeValidator returns canned results and records which steps it ran.
type fakeValidator struct {
	results map[string]gate.Result
	calls   []string
	// onRun runs before the result is returned.
	onRun func(step string)
}

func (f *fakeValidator) Run(_ context.Context, step string) gate.Result {
	f.calls = append(f.calls, step)
	if f.onRun != nil {
		f.onRun(step)
	}
	if r, ok := f.results[step]; ok {
		return r
	}
	return gate.Pass(step, "")
}

func initialRecord() map[string]any {
	return map[string]any{
		"session_id":      "s1",
		"current_node":    "00-requirements",
		"completed_nodes": []string{},
		"started_at":      "2024-01-01T00:00:00.000Z",
	}
}

func newEngine(t *testing.T, v gate.ExitValidator, record map[string]any) (*Engine, string) {
	t.Helper()
	ws, _ := testutil.SetupWorkspace(t)
	if record != nil {
		testutil.WriteState(t, ws, record)
	}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store := state.NewStore(ws, "", state.WithClock(func() time.Time { return now }))
	return NewEngine(nil, store, v), ws
}

func loadRecord(t *testing.T, ws string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(testutil.ReadState(t, ws), &m); err != nil {
		t.Fatalf("state is not JSON: %v", err)
	}
	return m
}

func TestTransitionToNext_Advances(t *testing.T) {
	e, ws := newEngine(t, &fakeValidator{}, initialRecord())

	out, err := e.TransitionToNext(context.Background())
	if err != nil {
		t.Fatalf("TransitionToNext() error = %v", err)
	}
	if !out.Success || out.Blocked || !out.Persisted {
		t.Fatalf("outcome = %+v", out)
	}
	if out.To != "01-classification" {
		t.Errorf("To = %q", out.To)
	}

	rec := loadRecord(t, ws)
	if rec["current_node"] != "01-classification" {
		t.Errorf("current_node = %v", rec["current_node"])
	}
	completed, _ := rec["completed_nodes"].([]any)
	if len(completed) != 1 || completed[0] != "00-requirements" {
		t.Errorf("completed_nodes = %v", rec["completed_nodes"])
	}
	if rec["updated_at"] != "2025-01-02T03:04:05.000Z" {
		t.Errorf("updated_at = %v", rec["updated_at"])
	}
	if rec["session_id"] != "s1" || rec["started_at"] != "2024-01-01T00:00:00.000Z" {
		t.Errorf("identity fields changed: %v", rec)
	}
}

func TestAttemptTransition_BlockedLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name     string
		result   gate.Result
		wantKind errors.Kind
	}{
		{
			name:     "validator failed",
			result:   gate.Fail("00-requirements", errors.KindValidationFailed, "", "missing field X"),
			wantKind: errors.KindValidationFailed,
		},
		{
			name:     "validator missing",
			result:   gate.Fail("00-requirements", errors.KindValidatorNotFound, "", "Exit validation script not found: /p/00-requirements/exit-validation.sh"),
			wantKind: errors.KindValidatorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeValidator{results: map[string]gate.Result{"00-requirements": tt.result}}
			e, ws := newEngine(t, v, initialRecord())
			before := testutil.ReadState(t, ws)

			out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
			if err != nil {
				t.Fatalf("AttemptTransition() error = %v", err)
			}
			if !out.Blocked || out.Success {
				t.Fatalf("outcome = %+v, want blocked", out)
			}
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.wantKind)
			}
			if out.StayAt != "00-requirements" {
				t.Errorf("StayAt = %q", out.StayAt)
			}
			if !strings.Contains(strings.Join(out.Reasons, "\n"), tt.result.Errors[0]) {
				t.Errorf("Reasons = %v", out.Reasons)
			}
			if !errors.Is(out.Err(), tt.wantKind.Sentinel()) {
				t.Errorf("Err() = %v", out.Err())
			}

			if after := testutil.ReadState(t, ws); !bytes.Equal(before, after) {
				t.Errorf("state changed on block:\nbefore: %s\nafter:  %s", before, after)
			}
		})
	}
}

func TestAttemptTransition_BlocksDeterministically(t *testing.T) {
	v := &fakeValidator{results: map[string]gate.Result{
		"00-requirements": gate.Fail("00-requirements", errors.KindValidationFailed, "", "still broken"),
	}}
	e, _ := newEngine(t, v, initialRecord())

	for i := 0; i < 2; i++ {
		out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
		if err != nil || !out.Blocked {
			t.Fatalf("attempt %d: out=%+v err=%v", i, out, err)
		}
	}
	if len(v.calls) != 2 {
		t.Errorf("validator ran %d times, want 2", len(v.calls))
	}
}

func TestAttemptTransition_IdempotentAppend(t *testing.T) {
	rec := initialRecord()
	rec["completed_nodes"] = []string{"00-requirements"}
	e, ws := newEngine(t, &fakeValidator{}, rec)

	out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if err != nil || !out.Success {
		t.Fatalf("out=%+v err=%v", out, err)
	}

	completed, _ := loadRecord(t, ws)["completed_nodes"].([]any)
	if len(completed) != 1 {
		t.Errorf("completed_nodes = %v, want exactly one entry", completed)
	}
}

func TestAttemptTransition_RejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"skip a step", "00-requirements", "02-structure"},
		{"go backwards", "01-classification", "00-requirements"},
		{"from final step", "06-finalize", "07-extra"},
		{"unknown step", "99-unknown", "00-requirements"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeValidator{}
			e, ws := newEngine(t, v, initialRecord())
			before := testutil.ReadState(t, ws)

			out, err := e.AttemptTransition(context.Background(), tt.from, tt.to)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !out.Blocked || out.Kind != errors.KindInvalidTransition {
				t.Errorf("outcome = %+v", out)
			}
			if len(v.calls) != 0 {
				t.Errorf("validator ran for an illegal move: %v", v.calls)
			}
			if !bytes.Equal(before, testutil.ReadState(t, ws)) {
				t.Error("state changed")
			}
		})
	}
}

func TestAttemptTransition_SessionElsewhere(t *testing.T) {
	rec := initialRecord()
	rec["current_node"] = "03-templates"
	e, ws := newEngine(t, &fakeValidator{}, rec)
	before := testutil.ReadState(t, ws)

	out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !out.Blocked || out.Kind != errors.KindInvalidTransition {
		t.Errorf("outcome = %+v", out)
	}
	if !bytes.Equal(before, testutil.ReadState(t, ws)) {
		t.Error("state changed")
	}
}

func TestAttemptTransition_RereadsStateAfterValidation(t *testing.T) {
	e, ws := newEngine(t, nil, initialRecord())
	// The validator edits the record while it runs, as a script might.
	e.validator = &fakeValidator{onRun: func(string) {
		rec := initialRecord()
		rec["skill_name"] = "pdf-tools"
		testutil.WriteState(t, ws, rec)
	}}

	out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if err != nil || !out.Success {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if got := loadRecord(t, ws)["skill_name"]; got != "pdf-tools" {
		t.Errorf("skill_name = %v, edit made during validation was lost", got)
	}
}

func TestAttemptTransition_NoSessionIsDryRun(t *testing.T) {
	e, ws := newEngine(t, &fakeValidator{}, nil)

	out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !out.Success || out.Persisted {
		t.Errorf("outcome = %+v, want success without persistence", out)
	}
	if exists, _ := state.NewStore(ws, "").Exists(); exists {
		t.Error("dry run must not create a state file")
	}
}

func TestAttemptTransition_CorruptStateAfterValidation(t *testing.T) {
	e, ws := newEngine(t, &fakeValidator{}, nil)
	testutil.WriteFile(t, ws, testutil.StateFileName, "{not json")

	_, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if errors.KindOf(err) != errors.KindCorruptState {
		t.Errorf("err = %v, want CorruptState", err)
	}
}

func TestTransitionToNext_Noops(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		v := &fakeValidator{}
		e, _ := newEngine(t, v, nil)
		out, err := e.TransitionToNext(context.Background())
		if err != nil || !out.Noop {
			t.Errorf("out=%+v err=%v", out, err)
		}
		if len(v.calls) != 0 {
			t.Error("validator should not run")
		}
	})

	t.Run("final step", func(t *testing.T) {
		rec := initialRecord()
		rec["current_node"] = "06-finalize"
		v := &fakeValidator{}
		e, _ := newEngine(t, v, rec)
		out, err := e.TransitionToNext(context.Background())
		if err != nil || !out.Noop {
			t.Errorf("out=%+v err=%v", out, err)
		}
		if len(v.calls) != 0 {
			t.Error("validator should not run")
		}
	})
}

func TestTransitionToNext_InvalidStateIsError(t *testing.T) {
	rec := initialRecord()
	rec["current_node"] = "Requirements"
	e, _ := newEngine(t, &fakeValidator{}, rec)

	_, err := e.TransitionToNext(context.Background())
	if !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("err = %v, want InvalidState", err)
	}
}

func TestAttemptTransition_WithLock(t *testing.T) {
	e, ws := newEngine(t, &fakeValidator{}, initialRecord())
	WithLock(true)(e)

	out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
	if err != nil || !out.Success {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if _, err := state.ReadLock(e.store.LockPath()); err == nil {
		t.Error("lock file should be released after the transition")
	}
	if loadRecord(t, ws)["current_node"] != "01-classification" {
		t.Error("transition not persisted")
	}
}

func TestAttemptTransition_WithLockNoSessionIsDryRun(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{"missing workspace", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") }},
		{"empty workspace", func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(tt.dir(t), "")
			e := NewEngine(nil, store, &fakeValidator{}, WithLock(true))

			out, err := e.AttemptTransition(context.Background(), "00-requirements", "01-classification")
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !out.Success || out.Persisted {
				t.Errorf("outcome = %+v, want success without persistence", out)
			}
			if _, err := os.Stat(store.LockPath()); !os.IsNotExist(err) {
				t.Error("no lock file should be created for a dry run")
			}
		})
	}
}

func TestNextStep(t *testing.T) {
	e, _ := newEngine(t, &fakeValidator{}, nil)
	steps := e.Steps().Steps()

	for i := 0; i < len(steps)-1; i++ {
		got, ok := e.NextStep(steps[i])
		if !ok || got != steps[i+1] {
			t.Errorf("NextStep(%q) = %q, %v", steps[i], got, ok)
		}
	}
	if _, ok := e.NextStep("06-finalize"); ok {
		t.Error("final step must have no successor")
	}
	if _, ok := e.NextStep("not-a-step"); ok {
		t.Error("unknown step must have no successor")
	}
}

func TestScenario_ScriptRunner(t *testing.T) {
	testutil.SkipIfNoBash(t)
	ws, proc := testutil.SetupWorkspace(t)
	testutil.WriteState(t, ws, initialRecord())
	testutil.WriteScript(t, proc, "00-requirements", `echo "missing field X" >&2; exit 1`)

	e := NewEngine(nil, state.NewStore(ws, ""), &gate.ScriptRunner{WorkspaceDir: ws, ProcessDir: proc})
	before := testutil.ReadState(t, ws)

	out, err := e.TransitionToNext(context.Background())
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !out.Blocked || !strings.Contains(strings.Join(out.Reasons, " "), "missing field X") {
		t.Errorf("outcome = %+v", out)
	}
	if !bytes.Equal(before, testutil.ReadState(t, ws)) {
		t.Error("state changed")
	}

	testutil.WriteScript(t, proc, "00-requirements", `exit 0`)
	out, err = e.TransitionToNext(context.Background())
	if err != nil || !out.Success {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if loadRecord(t, ws)["current_node"] != "01-classification" {
		t.Error("transition not persisted")
	}
}
