package state

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/testutil"
)

func TestRecover_FailureKinds(t *testing.T) {
	t.Run("no workspace", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "absent"), "")
		_, err := NewRecoverer(store, nil).Recover()
		if errors.KindOf(err) != errors.KindNoWorkspace {
			t.Errorf("KindOf = %v, want NoWorkspace", errors.KindOf(err))
		}
	})

	t.Run("workspace is a file", func(t *testing.T) {
		root := t.TempDir()
		path := testutil.WriteFile(t, root, "ws", "not a dir")
		_, err := NewRecoverer(NewStore(path, ""), nil).Recover()
		if errors.KindOf(err) != errors.KindNoWorkspace {
			t.Errorf("KindOf = %v, want NoWorkspace", errors.KindOf(err))
		}
	})

	t.Run("no session", func(t *testing.T) {
		store, _ := newTestStore(t)
		_, err := NewRecoverer(store, nil).Recover()
		if !errors.Is(err, errors.ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		store, ws := newTestStore(t)
		testutil.WriteFile(t, ws, DefaultFileName, "{not json")
		_, err := NewRecoverer(store, nil).Recover()
		if errors.KindOf(err) != errors.KindCorruptState {
			t.Errorf("KindOf = %v, want CorruptState", errors.KindOf(err))
		}
	})

	t.Run("invalid current_node is reported, not a crash", func(t *testing.T) {
		store, ws := newTestStore(t)
		rec := validRecord()
		rec["current_node"] = "step three"
		testutil.WriteState(t, ws, rec)

		_, err := NewRecoverer(store, nil).Recover()
		var se *errors.StateError
		if !errors.As(err, &se) || se.Kind() != errors.KindInvalidState {
			t.Fatalf("err = %v, want InvalidState", err)
		}
		if !strings.Contains(se.Error(), "invalid current_node format") {
			t.Errorf("message = %q", se.Error())
		}
	})
}

func TestRecover_MissingOutputsAreWarnings(t *testing.T) {
	store, ws := newTestStore(t)
	rec := validRecord()
	rec["current_node"] = "02-structure"
	rec["completed_nodes"] = []string{"00-requirements", "01-classification"}
	rec["node_outputs"] = map[string]string{
		"00-requirements":   "requirements.json",
		"01-classification": "classification.json",
	}
	testutil.WriteState(t, ws, rec)
	testutil.WriteFile(t, ws, "requirements.json", "{}")

	rec2, err := NewRecoverer(store, nil).Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(rec2.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", rec2.Warnings)
	}
	w := rec2.Warnings[0]
	if w.Kind != errors.KindMissingOutput || w.Step != "01-classification" || w.Path != "classification.json" {
		t.Errorf("warning = %+v", w)
	}
	if rec2.ResumeFrom != "02-structure" {
		t.Errorf("ResumeFrom = %q", rec2.ResumeFrom)
	}
	if len(rec2.Completed) != 2 {
		t.Errorf("Completed = %v", rec2.Completed)
	}
}

func TestRecovery_Instructions(t *testing.T) {
	rec := &Recovery{State: &SessionState{
		SessionID:      "s1",
		CurrentNode:    "01-classification",
		CompletedNodes: []string{"00-requirements"},
		StartedAt:      "t0",
		UpdatedAt:      "t1",
		SkillName:      "pdf-tools",
	}}

	text := strings.Join(rec.Instructions(), "\n")
	for _, want := range []string{
		"Session ID: s1",
		"Completed Nodes: 00-requirements",
		"Skill Name: pdf-tools",
		"To resume, read: process/01-classification/README.md",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Skill Type") {
		t.Error("Skill Type should be omitted when empty")
	}

	rec.State.CompletedNodes = nil
	if !strings.Contains(strings.Join(rec.Instructions(), "\n"), "Completed Nodes: None") {
		t.Error("empty completed list should render as None")
	}
}
