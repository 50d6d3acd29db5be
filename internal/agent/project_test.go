package agent_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sphered/internal/agent"
	"sphered/internal/testsupport"
)

func TestLoadProject(t *testing.T) {
	dir := testsupport.NewProject(t,
		testsupport.WithDaemonJSON(`{
  // relays the agent listens on
  "relays": ["wss://relay.example", " "],
  "hooks": {"on_dm": "hooks/on-dm.sh"},
  "subscriptions": {"groups": [{"id": "g1", "name": "Ops"},]},
  "owner_npub": "npub1owner",
}`),
		testsupport.WithIdentityJSON(`{"mnemonic": "(imported)"}`),
	)

	project, err := agent.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if project.Dir != dir {
		t.Fatalf("unexpected project dir: got %q want %q", project.Dir, dir)
	}
	if len(project.Config.Relays) != 1 || project.Config.Relays[0] != "wss://relay.example" {
		t.Fatalf("unexpected relays: %v", project.Config.Relays)
	}
	if project.Config.Hooks.OnDM != "hooks/on-dm.sh" {
		t.Fatalf("unexpected on_dm hook: %q", project.Config.Hooks.OnDM)
	}
	if project.Config.Hooks.OnGroupMessage != "" {
		t.Fatalf("expected on_group_message to be unset, got %q", project.Config.Hooks.OnGroupMessage)
	}
	if project.Config.OwnerNpub != "npub1owner" {
		t.Fatalf("unexpected owner: %q", project.Config.OwnerNpub)
	}
	if got := project.Config.GroupName("g1"); got != "Ops" {
		t.Fatalf("unexpected group name: %q", got)
	}
	if string(project.Identity) != `{"mnemonic": "(imported)"}` {
		t.Fatalf("identity must be passed through unchanged, got %q", project.Identity)
	}
	if project.ConfigPath != filepath.Join(dir, ".claude", "agent", "daemon.json") {
		t.Fatalf("unexpected config path: %q", project.ConfigPath)
	}
}

func TestLoadDefaultsRelay(t *testing.T) {
	dir := testsupport.NewProject(t, testsupport.WithDaemonJSON(`{}`))
	project, err := agent.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(project.Config.Relays) != 1 || project.Config.Relays[0] != agent.DefaultRelay {
		t.Fatalf("expected default relay, got %v", project.Config.Relays)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := agent.Load(dir); !errors.Is(err, agent.ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile for missing daemon.json, got %v", err)
	}

	agentDir := filepath.Join(dir, ".claude", "agent")
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(agentDir, "daemon.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write daemon.json: %v", err)
	}
	if _, err := agent.Load(dir); !errors.Is(err, agent.ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile for missing identity.json, got %v", err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := testsupport.NewProject(t, testsupport.WithDaemonJSON(`{"relays": [`))
	if _, err := agent.Load(dir); err == nil {
		t.Fatal("expected parse error")
	}

	dir = testsupport.NewProject(t, testsupport.WithIdentityJSON(`not json`))
	if _, err := agent.Load(dir); err == nil {
		t.Fatal("expected identity parse error")
	}
}

func TestResolveDir(t *testing.T) {
	explicit := t.TempDir()
	got, err := agent.ResolveDir(explicit)
	if err != nil || got != explicit {
		t.Fatalf("explicit dir: got %q err %v", got, err)
	}

	fromEnv := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", fromEnv)
	got, err = agent.ResolveDir("")
	if err != nil || got != fromEnv {
		t.Fatalf("env dir: got %q err %v", got, err)
	}

	t.Setenv("CLAUDE_PROJECT_DIR", "")
	wd := t.TempDir()
	t.Chdir(wd)
	got, err = agent.ResolveDir("")
	if err != nil {
		t.Fatalf("cwd dir: %v", err)
	}
	resolvedWD, _ := filepath.EvalSymlinks(wd)
	resolvedGot, _ := filepath.EvalSymlinks(got)
	if resolvedGot != resolvedWD {
		t.Fatalf("cwd dir: got %q want %q", got, wd)
	}
}
