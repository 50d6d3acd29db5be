// Package agent loads the per-project agent files the daemon serves:
// .claude/agent/daemon.json (relays, hooks, subscriptions, owner) and
// .claude/agent/identity.json (an opaque credential document).
//
// Both files are parsed as JSONC so hand-edited comments and trailing commas
// survive. The identity is never interpreted; it is handed to the message
// source byte for byte.
package agent
