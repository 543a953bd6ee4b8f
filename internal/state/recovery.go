package state

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/logging"
)

// Warning is a non-fatal finding produced during recovery.
type Warning struct {
	Kind    errors.Kind `json:"kind"`
	Step    string      `json:"step"`
	Path    string      `json:"path"`
	Message string      `json:"message"`
}

// Recovery is the result of a successful state recovery.
type Recovery struct {
	State      *SessionState `json:"state"`
	Warnings   []Warning     `json:"warnings"`
	ResumeFrom string        `json:"resume_from"`
	Completed  []string      `json:"completed"`
}

// Recoverer loads the record for resumption and cross-checks declared
// outputs against the workspace.
type Recoverer struct {
	store  *Store
	logger *logging.Logger
}

// NewRecoverer creates a Recoverer. logger may be nil.
func NewRecoverer(store *Store, logger *logging.Logger) *Recoverer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Recoverer{store: store, logger: logger}
}

// Recover checks, in order: the workspace exists (KindNoWorkspace), the
// state file exists (KindNoSession), it parses (KindCorruptState) and it is
// well-formed (KindInvalidState). Missing declared outputs only add
// warnings.
func (r *Recoverer) Recover() (*Recovery, error) {
	info, err := os.Stat(r.store.Dir())
	if err != nil || !info.IsDir() {
		return nil, errors.NewStateError(errors.KindNoWorkspace, "workspace directory does not exist", nil).
			WithPath(r.store.Dir())
	}

	st, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	warnings := r.verifyOutputs(st)
	log := r.logger.WithSession(st.SessionID)
	for _, w := range warnings {
		log.Warn("declared output missing", "step", w.Step, "path", w.Path)
	}
	log.Info("state recovered", "current_node", st.CurrentNode, "completed", len(st.CompletedNodes))

	return &Recovery{
		State:      st,
		Warnings:   warnings,
		ResumeFrom: st.CurrentNode,
		Completed:  slices.Clone(st.CompletedNodes),
	}, nil
}

func (r *Recoverer) verifyOutputs(st *SessionState) []Warning {
	steps := make([]string, 0, len(st.NodeOutputs))
	for step := range st.NodeOutputs {
		steps = append(steps, step)
	}
	slices.Sort(steps)

	warnings := []Warning{}
	for _, step := range steps {
		rel := st.NodeOutputs[step]
		if _, err := os.Stat(filepath.Join(r.store.Dir(), rel)); err == nil {
			continue
		}
		warnings = append(warnings, Warning{
			Kind:    errors.KindMissingOutput,
			Step:    step,
			Path:    rel,
			Message: fmt.Sprintf("Missing output for %s: %s", step, rel),
		})
	}
	return warnings
}

// Instructions renders the human-readable resumption summary.
func (rec *Recovery) Instructions() []string {
	st := rec.State
	completed := "None"
	if len(st.CompletedNodes) > 0 {
		completed = strings.Join(st.CompletedNodes, ", ")
	}

	lines := []string{
		"Session ID: " + st.SessionID,
		"Started: " + st.StartedAt,
		"Last Updated: " + orDash(st.UpdatedAt),
		"Current Node: " + st.CurrentNode,
		"Completed Nodes: " + completed,
	}
	if st.SkillName != "" {
		lines = append(lines, "Skill Name: "+st.SkillName)
	}
	if st.SkillType != "" {
		lines = append(lines, "Skill Type: "+st.SkillType)
	}
	lines = append(lines, "", "To resume, read: "+StepReadme(st.CurrentNode))
	return lines
}

// StepReadme returns the documentation pointer for a step.
func StepReadme(step string) string {
	return filepath.ToSlash(filepath.Join("process", step, "README.md"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
