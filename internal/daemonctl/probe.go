package daemonctl

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive sends signal 0. EPERM means the process exists but belongs to
// someone else, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func terminate(pid int) error {
	if pid <= 0 {
		return unix.ESRCH
	}
	return unix.Kill(pid, unix.SIGTERM)
}
