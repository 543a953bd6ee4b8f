package gate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/logging"
)

// DefaultScriptName is the conventional exit-validation script file name.
const DefaultScriptName = "exit-validation.sh"

// ScriptRunner runs {ProcessDir}/{step}/{ScriptName} with the workspace as
// its working directory. A non-zero exit maps to a failure whose detail is
// the captured stderr, or stdout when stderr is empty.
type ScriptRunner struct {
	WorkspaceDir string
	ProcessDir   string
	ScriptName   string
	Shell        string
	// Timeout bounds a single script run; zero means no limit.
	Timeout time.Duration
	Logger  *logging.Logger
}

// ScriptPath returns the exit-validation script path for step.
func (r *ScriptRunner) ScriptPath(step string) string {
	name := r.ScriptName
	if name == "" {
		name = DefaultScriptName
	}
	return filepath.Join(r.ProcessDir, step, name)
}

// Run executes the step's script and blocks until it exits or times out.
func (r *ScriptRunner) Run(ctx context.Context, step string) Result {
	logger := r.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithStep(step)

	script := r.ScriptPath(step)
	if info, err := os.Stat(script); err != nil || info.IsDir() {
		logger.Warn("exit validation script missing", "script", script)
		return Fail(step, errors.KindValidatorNotFound, "",
			fmt.Sprintf("Exit validation script not found: %s", script))
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	shell := r.Shell
	if shell == "" {
		shell = "bash"
	}

	cmd := exec.CommandContext(ctx, shell, script)
	cmd.Dir = r.WorkspaceDir
	cmd.Env = append(os.Environ(),
		"WORKSPACE_DIR="+r.WorkspaceDir,
		"PROCESS_DIR="+r.ProcessDir,
		"SKILLGATE_STEP="+step,
	)
	// Do not hang on grandchildren that keep the pipes open after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		logger.Info("exit validation passed", "duration_ms", elapsed.Milliseconds())
		return Pass(step, stdout.String())
	}

	var reason string
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		reason = fmt.Sprintf("%v: exit validation exceeded %s", errors.ErrTimeout, r.Timeout)
	case strings.TrimSpace(stderr.String()) != "":
		reason = strings.TrimSpace(stderr.String())
	case strings.TrimSpace(stdout.String()) != "":
		reason = strings.TrimSpace(stdout.String())
	default:
		reason = err.Error()
	}

	logger.Warn("exit validation failed",
		"duration_ms", elapsed.Milliseconds(),
		"error", err.Error(),
	)
	return Fail(step, errors.KindValidationFailed, stdout.String(), reason)
}
