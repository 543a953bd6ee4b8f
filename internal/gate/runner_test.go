package gate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/testutil"
)

func newRunner(t *testing.T) (*ScriptRunner, string, string) {
	t.Helper()
	testutil.SkipIfNoBash(t)
	ws, proc := testutil.SetupWorkspace(t)
	return &ScriptRunner{WorkspaceDir: ws, ProcessDir: proc}, ws, proc
}

func TestScriptRunner_Pass(t *testing.T) {
	r, _, proc := newRunner(t)
	testutil.WriteScript(t, proc, "00-requirements", `echo "all good"; exit 0`)

	res := r.Run(context.Background(), "00-requirements")
	if !res.Passed {
		t.Fatalf("Passed = false, errors = %v", res.Errors)
	}
	if strings.TrimSpace(res.Output) != "all good" {
		t.Errorf("Output = %q", res.Output)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
}

func TestScriptRunner_FailureUsesStderr(t *testing.T) {
	r, _, proc := newRunner(t)
	testutil.WriteScript(t, proc, "00-requirements", `echo "stdout text"; echo "missing field X" >&2; exit 1`)

	res := r.Run(context.Background(), "00-requirements")
	if res.Passed {
		t.Fatal("Passed = true, want false")
	}
	if res.Kind != errors.KindValidationFailed {
		t.Errorf("Kind = %v, want ValidationFailed", res.Kind)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "missing field X" {
		t.Errorf("Errors = %v", res.Errors)
	}
	if !strings.Contains(res.Output, "stdout text") {
		t.Errorf("Output = %q", res.Output)
	}
	if !errors.Is(res.Err(), errors.ErrValidationFailed) {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestScriptRunner_FailureFallsBackToStdout(t *testing.T) {
	r, _, proc := newRunner(t)
	testutil.WriteScript(t, proc, "01-classification", `echo "only stdout"; exit 3`)

	res := r.Run(context.Background(), "01-classification")
	if res.Passed || len(res.Errors) != 1 || res.Errors[0] != "only stdout" {
		t.Errorf("res = %+v", res)
	}
}

func TestScriptRunner_MissingScript(t *testing.T) {
	r, _, _ := newRunner(t)

	res := r.Run(context.Background(), "02-structure")
	if res.Passed {
		t.Fatal("missing script must not pass")
	}
	if res.Kind != errors.KindValidatorNotFound {
		t.Errorf("Kind = %v, want ValidatorNotFound", res.Kind)
	}
	if !errors.Is(res.Err(), errors.ErrValidatorNotFound) {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestScriptRunner_WorkingDirAndEnv(t *testing.T) {
	r, ws, proc := newRunner(t)
	testutil.WriteScript(t, proc, "03-templates", `pwd > seen-cwd; echo "$SKILLGATE_STEP|$WORKSPACE_DIR" > seen-env`)

	if res := r.Run(context.Background(), "03-templates"); !res.Passed {
		t.Fatalf("run failed: %v", res.Errors)
	}

	cwd, err := os.ReadFile(filepath.Join(ws, "seen-cwd"))
	if err != nil {
		t.Fatalf("script did not run in workspace: %v", err)
	}
	gotCwd, _ := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	wantCwd, _ := filepath.EvalSymlinks(ws)
	if gotCwd != wantCwd {
		t.Errorf("cwd = %q, want %q", gotCwd, wantCwd)
	}

	env, _ := os.ReadFile(filepath.Join(ws, "seen-env"))
	if strings.TrimSpace(string(env)) != "03-templates|"+ws {
		t.Errorf("env = %q", env)
	}
}

func TestScriptRunner_Timeout(t *testing.T) {
	r, _, proc := newRunner(t)
	r.Timeout = 200 * time.Millisecond
	testutil.WriteScript(t, proc, "04-framework", `sleep 5`)

	start := time.Now()
	res := r.Run(context.Background(), "04-framework")
	if res.Passed {
		t.Fatal("timed-out script must not pass")
	}
	if time.Since(start) > 4*time.Second {
		t.Error("runner did not enforce the timeout")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "timed out") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestExitValidatorFunc(t *testing.T) {
	var v ExitValidator = ExitValidatorFunc(func(_ context.Context, step string) Result {
		return Pass(step, "ok")
	})
	if res := v.Run(context.Background(), "00-x"); !res.Passed || res.Step != "00-x" {
		t.Errorf("res = %+v", res)
	}
}
