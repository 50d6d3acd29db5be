// Package daemonctl manages the daemon's PID record.
//
// The record is a small file holding the daemon's process id. Acquire claims
// it for a starting daemon under an advisory lock; Stop and Status read it
// from another process, probe or signal the recorded PID, and clean up
// records left behind by a daemon that died without removing its own.
package daemonctl
