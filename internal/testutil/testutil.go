// Package testutil provides fixtures for skillgate tests: workspaces with a
// state file, process directories with exit-validation scripts, and skill
// trees for the structure and documentation checkers.
package testutil

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// StateFileName mirrors the default state file name.
const StateFileName = "current-process.json"

// SkipIfNoBash skips the test if bash is not available.
func SkipIfNoBash(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

// SetupWorkspace creates an empty workspace and process directory pair.
func SetupWorkspace(t *testing.T) (workspaceDir, processDir string) {
	t.Helper()

	root := t.TempDir()
	workspaceDir = filepath.Join(root, "workspace")
	processDir = filepath.Join(root, "process")
	for _, dir := range []string{workspaceDir, processDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return workspaceDir, processDir
}

// WriteState marshals record as indented JSON into the workspace state file.
// Pass a map to write records that do not fit the state schema.
func WriteState(t *testing.T, workspaceDir string, record any) string {
	t.Helper()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal state: %v", err)
	}
	return WriteFile(t, workspaceDir, StateFileName, string(data))
}

// ReadState returns the raw bytes of the workspace state file.
func ReadState(t *testing.T, workspaceDir string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(workspaceDir, StateFileName))
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	return data
}

// WriteScript writes an exit-validation script for step under processDir.
// body is appended after a bash shebang.
func WriteScript(t *testing.T, processDir, step, body string) string {
	t.Helper()

	path := WriteFile(t, processDir, filepath.Join(step, "exit-validation.sh"), "#!/bin/bash\n"+body+"\n")
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatalf("failed to chmod script: %v", err)
	}
	return path
}

// WriteFile creates a file (and parent directories) relative to root.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", rel, err)
	}
	return fullPath
}

// WriteFiles creates every file in files (relative path to content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		WriteFile(t, root, rel, content)
	}
}

// MkdirAll creates directories relative to root.
func MkdirAll(t *testing.T, root string, dirs ...string) {
	t.Helper()

	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", d, err)
		}
	}
}
