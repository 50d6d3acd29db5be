package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning indicates a live daemon already owns the record.
var ErrAlreadyRunning = errors.New("daemon already running")

// Lease is held by the running daemon for its lifetime.
type Lease struct {
	record Record
	lock   *flock.Flock
	pid    int
}

// PID is the process id written to the record.
func (l *Lease) PID() int { return l.pid }

// Path is the record location.
func (l *Lease) Path() string { return l.record.Path }

// Release removes the record if it still names this lease's PID and drops
// the lock. It is safe to call more than once.
func (l *Lease) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	var errs []error
	if pid, present, err := l.record.Read(); err == nil && present && pid == l.pid {
		errs = append(errs, l.record.Remove())
	}
	errs = append(errs, l.lock.Unlock())
	l.lock = nil
	return errors.Join(errs...)
}

// Acquire claims the record at path for pid. A live recorded process or a
// held lock yields ErrAlreadyRunning and leaves the record untouched. A stale
// or unparseable record is replaced.
func Acquire(path string, pid int) (*Lease, error) {
	record := NewRecord(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid directory: %w", err)
	}

	lock := flock.New(record.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		if existing, present, readErr := record.Read(); readErr == nil && present {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, existing)
		}
		return nil, ErrAlreadyRunning
	}

	existing, present, err := record.Read()
	switch {
	case err != nil && !errors.Is(err, ErrInvalidRecord):
		_ = lock.Unlock()
		return nil, err
	case present && err == nil && processAlive(existing):
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, existing)
	case present:
		if removeErr := record.Remove(); removeErr != nil {
			_ = lock.Unlock()
			return nil, removeErr
		}
	}

	if err := record.Write(pid); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Lease{record: record, lock: lock, pid: pid}, nil
}

// StopState enumerates stop outcomes.
type StopState string

const (
	StopNotRunning StopState = "not_running"
	StopSignalled  StopState = "signalled"
	StopStale      StopState = "stale"
	StopFailed     StopState = "failed"
)

// StopResult captures the outcome of Stop. Err is set for StopFailed and when
// the record could not be removed.
type StopResult struct {
	State StopState
	PID   int
	Err   error
}

// Message renders the operator-facing line for the outcome.
func (r StopResult) Message() string {
	switch r.State {
	case StopNotRunning:
		return "Daemon is not running (no PID file)."
	case StopSignalled:
		return fmt.Sprintf("Stopped daemon (PID %d)", r.PID)
	case StopStale:
		if r.PID <= 0 {
			return "Daemon PID file is unreadable (stale PID file). Cleaning up."
		}
		return fmt.Sprintf("Daemon process %d not found (stale PID file). Cleaning up.", r.PID)
	default:
		return fmt.Sprintf("Failed to stop daemon (PID %d): %v", r.PID, r.Err)
	}
}

// Stop sends SIGTERM to the recorded process. The record is removed whenever
// one was present, whatever the signal outcome.
func Stop(path string) StopResult {
	record := NewRecord(path)
	pid, present, err := record.Read()
	if !present {
		if err != nil {
			return StopResult{State: StopFailed, Err: err}
		}
		return StopResult{State: StopNotRunning}
	}

	var result StopResult
	switch {
	case err != nil:
		result = StopResult{State: StopStale}
	default:
		sigErr := terminate(pid)
		switch {
		case sigErr == nil:
			result = StopResult{State: StopSignalled, PID: pid}
		case errors.Is(sigErr, unix.ESRCH):
			result = StopResult{State: StopStale, PID: pid}
		default:
			result = StopResult{State: StopFailed, PID: pid, Err: fmt.Errorf("signal pid %d: %w", pid, sigErr)}
		}
	}
	if removeErr := record.Remove(); removeErr != nil {
		result.Err = errors.Join(result.Err, removeErr)
	}
	return result
}

// StatusState enumerates status outcomes.
type StatusState string

const (
	StatusNotRunning StatusState = "not_running"
	StatusRunning    StatusState = "running"
	StatusStale      StatusState = "stale"
)

// StatusResult captures the outcome of Status.
type StatusResult struct {
	State StatusState
	PID   int
	Path  string
	Err   error
}

// Running reports whether a live daemon owns the record.
func (r StatusResult) Running() bool { return r.State == StatusRunning }

// Message renders the operator-facing line for the outcome.
func (r StatusResult) Message() string {
	switch r.State {
	case StatusRunning:
		return fmt.Sprintf("Daemon is running (PID %d)", r.PID)
	case StatusStale:
		if r.PID <= 0 {
			return "Daemon is not running (unreadable PID file). Cleaning up."
		}
		return fmt.Sprintf("Daemon is not running (stale PID file for %d). Cleaning up.", r.PID)
	default:
		return "Daemon is not running."
	}
}

// Status probes the recorded process and removes a stale record.
func Status(path string) StatusResult {
	record := NewRecord(path)
	pid, present, err := record.Read()
	if !present {
		return StatusResult{State: StatusNotRunning, Path: path, Err: err}
	}
	if err == nil && processAlive(pid) {
		return StatusResult{State: StatusRunning, PID: pid, Path: path}
	}
	result := StatusResult{State: StatusStale, PID: pid, Path: path}
	if removeErr := record.Remove(); removeErr != nil {
		result.Err = removeErr
	}
	return result
}
