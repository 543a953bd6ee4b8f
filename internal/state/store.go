package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
)

// Store reads and writes the session-state record at a fixed path.
type Store struct {
	dir  string
	path string
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used to stamp updated_at.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store for {workspaceDir}/{fileName}. An empty fileName
// selects DefaultFileName.
func NewStore(workspaceDir, fileName string, opts ...StoreOption) *Store {
	if fileName == "" {
		fileName = DefaultFileName
	}
	s := &Store{
		dir:  workspaceDir,
		path: filepath.Join(workspaceDir, fileName),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the workspace directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the state file is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat state file: %w", err)
}

// Load reads, parses and validates the record. Failure kinds are
// KindNoSession (file absent), KindCorruptState (not JSON) and
// KindInvalidState (schema violation).
func (s *Store) Load() (*SessionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStateError(errors.KindNoSession, "no session state found", nil).WithPath(s.path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return Decode(data, s.path)
}

// Decode parses and validates a record. path is used only for diagnostics.
func Decode(data []byte, path string) (*SessionState, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		if err == nil {
			err = fmt.Errorf("top-level value is not an object")
		}
		return nil, errors.NewStateError(errors.KindCorruptState, "failed to parse state file", err).WithPath(path)
	}

	if verr := Validate(raw); verr != nil {
		return nil, verr.WithPath(path)
	}

	var st SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.NewStateError(errors.KindInvalidState, "failed to decode state", err).WithPath(path)
	}
	return &st, nil
}

// Save stamps updated_at and replaces the record atomically.
func (s *Store) Save(st *SessionState) error {
	st.UpdatedAt = FormatTime(s.now())

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	return atomicWriteFile(s.path, data, 0644)
}

// Create writes a new record. It refuses to replace an existing one unless
// overwrite is set. The workspace directory is created if needed.
func (s *Store) Create(st *SessionState, overwrite bool) error {
	if !overwrite {
		exists, err := s.Exists()
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("session state already exists at %s", s.path)
		}
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return s.Save(st)
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial record.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
