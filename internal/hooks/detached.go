package hooks

import (
	"errors"
	"os/exec"
)

// Detached launches a command and forgets it. The only thing kept is an
// error-observation callback invoked from a background reaper goroutine; the
// caller receives no handle and has nothing to clean up. Hooks keep running
// after the daemon exits.
type Detached struct {
	// OnError receives failures observed after a successful start, such as a
	// broken stdin pipe. Non-zero exit statuses are not reported.
	OnError func(err error)
}

// Start launches cmd. It returns only launch errors; it never waits.
func (d Detached) Start(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go d.reap(cmd)
	return nil
}

func (d Detached) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err == nil || d.OnError == nil {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return
	}
	d.OnError(err)
}
