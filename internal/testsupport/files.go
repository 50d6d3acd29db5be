package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	defaultDaemonJSON   = `{"relays": ["wss://relay.test"], "hooks": {}, "owner_npub": "npub1owner"}`
	defaultIdentityJSON = `{"mnemonic": "test words"}`
)

// ProjectOption customizes the agent project written by NewProject.
type ProjectOption func(*projectBuilder)

type projectBuilder struct {
	t        testing.TB
	dir      string
	daemon   string
	identity string
	hooks    map[string]string
}

// NewProject writes .claude/agent/daemon.json and identity.json under a temp
// directory and returns the project directory.
func NewProject(t testing.TB, opts ...ProjectOption) string {
	t.Helper()
	b := &projectBuilder{
		t:        t,
		dir:      t.TempDir(),
		daemon:   defaultDaemonJSON,
		identity: defaultIdentityJSON,
		hooks:    map[string]string{},
	}
	for _, opt := range opts {
		opt(b)
	}

	agentDir := filepath.Join(b.dir, ".claude", "agent")
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		t.Fatalf("mkdir agent dir: %v", err)
	}
	writeFile(t, filepath.Join(agentDir, "daemon.json"), b.daemon, 0o644)
	writeFile(t, filepath.Join(agentDir, "identity.json"), b.identity, 0o600)
	for rel, body := range b.hooks {
		writeFile(t, filepath.Join(b.dir, rel), body, 0o755)
	}
	return b.dir
}

// WithDaemonJSON replaces the daemon.json content.
func WithDaemonJSON(content string) ProjectOption {
	return func(b *projectBuilder) { b.daemon = content }
}

// WithIdentityJSON replaces the identity.json content.
func WithIdentityJSON(content string) ProjectOption {
	return func(b *projectBuilder) { b.identity = content }
}

// WithHookScript writes a script at the project-relative path.
func WithHookScript(rel, body string) ProjectOption {
	return func(b *projectBuilder) { b.hooks[rel] = body }
}

// CaptureStdinScript returns a hook body that copies its stdin and the
// project env variable into files next to outPath.
func CaptureStdinScript(outPath string) string {
	return fmt.Sprintf("#!/bin/sh\ncat > %q.tmp\necho \"$CLAUDE_PROJECT_DIR\" > %q.env\nmv %q.tmp %q\n",
		outPath, outPath, outPath, outPath)
}

// WriteHelperStub writes an executable that prints output on stdout and exits
// with exitCode, returning its path.
func WriteHelperStub(t testing.TB, dir, output string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, "bin", "sphere-helper")
	body := fmt.Sprintf("#!/bin/sh\ncat <<'EOF'\n%s\nEOF\nexit %d\n", output, exitCode)
	writeFile(t, path, body, 0o755)
	return path
}

// WriteScript writes an executable script and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeFile(t, path, body, 0o755)
	return path
}

// WaitForFile polls until path exists or the timeout elapses.
func WaitForFile(t testing.TB, path string, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return nil
}

// ReadTrimmed reads a file and trims surrounding whitespace.
func ReadTrimmed(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.TrimSpace(string(data))
}

func writeFile(t testing.TB, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
