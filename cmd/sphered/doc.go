// Package main hosts the sphered CLI entrypoint and command graph.
//
// start runs the daemon in the foreground; stop and status act on the PID
// record from another process. poll performs a single retrieval for
// debugging hooks, and config scaffolds or prints the settings file.
package main
