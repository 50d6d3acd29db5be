package daemonctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidRecord reports a record whose content is not a positive PID.
var ErrInvalidRecord = errors.New("invalid pid record")

// Record is the on-disk PID file identifying the running daemon.
type Record struct {
	Path string
}

// NewRecord returns the record stored at path.
func NewRecord(path string) Record {
	return Record{Path: path}
}

// LockPath is the advisory lock file guarding record writes.
func (r Record) LockPath() string {
	return r.Path + ".lock"
}

// Read returns the recorded PID. present is false when no record exists.
// Unparseable content returns present=true and ErrInvalidRecord.
func (r Record) Read() (pid int, present bool, err error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read pid file %q: %w", r.Path, err)
	}
	pidStr := strings.TrimSpace(string(data))
	parsed, parseErr := strconv.Atoi(pidStr)
	if parseErr != nil || parsed <= 0 {
		return 0, true, fmt.Errorf("%w: %q", ErrInvalidRecord, pidStr)
	}
	return parsed, true, nil
}

// Write stores pid, creating the parent directory when needed. The record is
// written to a temp file and renamed so readers never see partial content.
func (r Record) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	tmp := r.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file %q: %w", r.Path, err)
	}
	if err := os.Rename(tmp, r.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write pid file %q: %w", r.Path, err)
	}
	return nil
}

// Remove deletes the record. A missing record is not an error.
func (r Record) Remove() error {
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", r.Path, err)
	}
	return nil
}
