package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"sphered/internal/config"
	"sphered/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	pidFile    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPHERED_HELPER", "")
	t.Setenv("CLAUDE_PROJECT_DIR", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Hooks.Shell = "sh"
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, pidFile: cfg.Paths.PIDFile}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("sh", "-c", "exit 0")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run child: %v", err)
	}
	return cmd.Process.Pid
}

func writePID(t *testing.T, path string, pid int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running (no PID file).")
}

func TestStopStaleRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	pid := deadPID(t)
	writePID(t, env.pidFile, pid)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon process "+strconv.Itoa(pid)+" not found (stale PID file). Cleaning up.")
	if _, err := os.Stat(env.pidFile); !os.IsNotExist(err) {
		t.Fatalf("expected record removed, stat err=%v", err)
	}
}

func TestStatusReportsRunningAndStale(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon is not running.")

	writePID(t, env.pidFile, os.Getpid())
	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon is running (PID "+strconv.Itoa(os.Getpid())+")")
	requireContains(t, out, env.pidFile)

	pid := deadPID(t)
	writePID(t, env.pidFile, pid)
	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon is not running (stale PID file for "+strconv.Itoa(pid)+"). Cleaning up.")
	if _, err := os.Stat(env.pidFile); !os.IsNotExist(err) {
		t.Fatalf("expected stale record removed, stat err=%v", err)
	}
}

func TestPIDFileFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	override := filepath.Join(t.TempDir(), "other.pid")
	writePID(t, override, os.Getpid())

	out, _, err := runCLI(t, []string{"--pid-file", override, "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon is running")
}

func TestStartFailsWithoutAgentFiles(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHelper(`{"messages": []}`, 0))
	_, _, err := runCLI(t, []string{"start", "--project", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected start to fail without daemon.json")
	}
	requireContains(t, err.Error(), "daemon.json")
	if _, statErr := os.Stat(env.pidFile); !os.IsNotExist(statErr) {
		t.Fatal("start must not write a record when it fails")
	}
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"start", "--project", testsupport.NewProject(t), "--interval", "0"}, env.configPath)
	if err == nil {
		t.Fatal("expected interval error")
	}
	requireContains(t, err.Error(), "--interval")
}

func TestStartRefusesWhenRunning(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHelper(`{"messages": []}`, 0))
	writePID(t, env.pidFile, os.Getpid())

	_, _, err := runCLI(t, []string{"start", "--project", testsupport.NewProject(t)}, env.configPath)
	if err == nil {
		t.Fatal("expected already running error")
	}
	requireContains(t, err.Error(), "already running")
	if got := testsupport.ReadTrimmed(t, env.pidFile); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("record changed: %q", got)
	}
}

func TestPollPrintsHelperMessages(t *testing.T) {
	output := `{"messages": [{"kind": 4, "pubkey": "abc", "content": "hi", "created_at": 1700000000}], "polled_at": "2024-05-01T10:00:00.000Z"}`
	env := setupCLITestEnv(t, testsupport.WithHelper(output, 0))

	out, _, err := runCLI(t, []string{"poll", "--project", testsupport.NewProject(t), "--since", "1700000000"}, env.configPath)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	var decoded struct {
		Messages []map[string]any `json:"messages"`
		PolledAt string           `json:"polled_at"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode poll output %q: %v", out, err)
	}
	if len(decoded.Messages) != 1 || decoded.Messages[0]["pubkey"] != "abc" {
		t.Fatalf("unexpected messages: %+v", decoded.Messages)
	}
	if decoded.PolledAt != "2024-05-01T10:00:00.000Z" {
		t.Fatalf("unexpected polled_at: %q", decoded.PolledAt)
	}
}

func TestPollReportsHelperFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHelper("relay unreachable", 3))
	_, _, err := runCLI(t, []string{"poll", "--project", testsupport.NewProject(t)}, env.configPath)
	if err == nil {
		t.Fatal("expected poll failure")
	}
	requireContains(t, err.Error(), "exit status 3")
}

func TestConfigInitShowAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPHERED_HELPER", "")
	target := filepath.Join(t.TempDir(), "sphered.toml")

	out, _, err := runCLI(t, []string{"config", "init", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# loaded from "+target)
	requireContains(t, out, "interval_seconds = 60")

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestStopAndStatusSurviveBrokenSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("[paths\npid_file = "), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	pidFile := filepath.Join(t.TempDir(), "sphere-daemon.pid")

	out, _, err := runCLI(t, []string{"--pid-file", pidFile, "status"}, broken)
	if err != nil {
		t.Fatalf("status with broken settings: %v", err)
	}
	requireContains(t, out, "Daemon is not running.")

	writePID(t, pidFile, os.Getpid())
	out, _, err = runCLI(t, []string{"--pid-file", pidFile, "status"}, broken)
	if err != nil {
		t.Fatalf("status with broken settings: %v", err)
	}
	requireContains(t, out, "Daemon is running (PID "+strconv.Itoa(os.Getpid())+")")

	pid := deadPID(t)
	writePID(t, pidFile, pid)
	out, _, err = runCLI(t, []string{"--pid-file", pidFile, "stop"}, broken)
	if err != nil {
		t.Fatalf("stop with broken settings: %v", err)
	}
	requireContains(t, out, "Daemon process "+strconv.Itoa(pid)+" not found (stale PID file). Cleaning up.")

	out, _, err = runCLI(t, []string{"--pid-file", pidFile, "stop"}, broken)
	if err != nil {
		t.Fatalf("stop with broken settings: %v", err)
	}
	requireContains(t, out, "Daemon is not running (no PID file).")
}

func TestStartStillRejectsBrokenSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("[paths\n"), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"start", "--project", testsupport.NewProject(t)}, broken); err == nil {
		t.Fatal("expected start to fail on unreadable settings")
	}
}
