// Package daemonrun wires the daemon process together: agent files, PID
// record, logger, hook dispatcher and scheduler. It also provides the
// one-shot poll used by the CLI.
package daemonrun
