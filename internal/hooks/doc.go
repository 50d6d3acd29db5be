// Package hooks delivers messages to the project's hook scripts.
//
// Each message type maps to at most one script (on_dm, on_group_message).
// The script runs under the configured shell with the daemon's environment
// plus the project directory variable, receives the message JSON on stdin,
// and is never waited on: dispatch is fire-and-forget and a failing hook cannot
// stall or stop the poll loop.
package hooks
