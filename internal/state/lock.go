package state

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/logging"
)

// LockSuffix is appended to the state file path to form the lock file path.
const LockSuffix = ".lock"

// Lock is an advisory, PID-based lock on the state file. It only excludes
// other writers that also take the lock.
type Lock struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`

	lockFile string
	logger   *logging.Logger
}

// LockPath returns the lock file path for the store.
func (s *Store) LockPath() string {
	return s.path + LockSuffix
}

// AcquireLock takes the advisory lock for the store. A lock left behind by a
// dead process is removed. Returns an error of kind KindLocked when a live
// process holds it. logger may be nil.
func (s *Store) AcquireLock(logger *logging.Logger) (*Lock, error) {
	lockPath := s.LockPath()

	if existing, err := ReadLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			return nil, lockedError(lockPath, existing)
		}
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale lock cleaned", "old_pid", existing.PID)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
		lockFile:   lockPath,
		logger:     logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL fails if another process created the file since the check above.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadLock(lockPath); readErr == nil {
				return nil, lockedError(lockPath, existing)
			}
			return nil, errors.NewStateError(errors.KindLocked, "lock file exists", nil).WithPath(lockPath)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Debug("state lock acquired", "pid", lock.PID)
	}
	return lock, nil
}

// Release removes the lock file if this process still owns it. Safe to call
// multiple times and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := ReadLock(l.lockFile)
	if err != nil || existing.PID != l.PID {
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Debug("state lock released", "pid", l.PID)
	}
	return nil
}

// ReadLock reads a lock file.
func ReadLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

func lockedError(path string, l *Lock) error {
	return errors.NewStateError(errors.KindLocked,
		fmt.Sprintf("locked by PID %d on %s", l.PID, l.Hostname), nil).WithPath(path)
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without affecting the process.
	return p.Signal(syscall.Signal(0)) == nil
}
