package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	// AgentDir is the project-relative directory holding the agent files.
	AgentDir = ".claude/agent"
	// DaemonConfigFile and IdentityFile live inside AgentDir.
	DaemonConfigFile = "daemon.json"
	IdentityFile     = "identity.json"
	// DefaultRelay is used when daemon.json lists no relays.
	DefaultRelay = "wss://relay.testnet.unicity.network"
)

// ErrMissingFile reports that a required agent file does not exist.
var ErrMissingFile = errors.New("required agent file missing")

// Hooks maps event types to script paths. Empty means not configured.
type Hooks struct {
	OnDM           string `json:"on_dm,omitempty"`
	OnGroupMessage string `json:"on_group_message,omitempty"`
}

// Group describes a subscribed group chat.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subscriptions lists the groups the daemon listens to.
type Subscriptions struct {
	Groups []Group `json:"groups,omitempty"`
}

// GroupSettings is the agent's own group membership.
type GroupSettings struct {
	ID     string   `json:"id,omitempty"`
	Relays []string `json:"relays,omitempty"`
}

// DaemonConfig is the daemon.json content. It is not mutated after Load.
type DaemonConfig struct {
	Relays        []string      `json:"relays"`
	Hooks         Hooks         `json:"hooks"`
	Subscriptions Subscriptions `json:"subscriptions"`
	OwnerNpub     string        `json:"owner_npub,omitempty"`
	Group         GroupSettings `json:"group"`
}

// Identity is the raw identity.json document. The daemon forwards it to the
// message source without looking inside.
type Identity json.RawMessage

// Project bundles the loaded agent files with their locations.
type Project struct {
	Dir          string
	ConfigPath   string
	IdentityPath string
	Config       *DaemonConfig
	Identity     Identity
}

// ResolveDir picks the project directory: the explicit value, then
// $CLAUDE_PROJECT_DIR, then the working directory.
func ResolveDir(explicit string) (string, error) {
	dir := strings.TrimSpace(explicit)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv("CLAUDE_PROJECT_DIR"))
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory %q: %w", dir, err)
	}
	return abs, nil
}

// Load reads daemon.json and identity.json for projectDir. Both files are
// required; their absence wraps ErrMissingFile.
func Load(projectDir string) (*Project, error) {
	agentDir := filepath.Join(projectDir, AgentDir)
	project := &Project{
		Dir:          projectDir,
		ConfigPath:   filepath.Join(agentDir, DaemonConfigFile),
		IdentityPath: filepath.Join(agentDir, IdentityFile),
	}

	configData, err := readFile(project.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseDaemonConfig(configData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", project.ConfigPath, err)
	}
	project.Config = cfg

	identityData, err := readFile(project.IdentityPath)
	if err != nil {
		return nil, err
	}
	identity, err := ParseIdentity(identityData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", project.IdentityPath, err)
	}
	project.Identity = identity
	return project, nil
}

// ParseDaemonConfig decodes daemon.json, tolerating comments and trailing commas.
func ParseDaemonConfig(data []byte) (*DaemonConfig, error) {
	var cfg DaemonConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse daemon config: %w", err)
	}
	cfg.Relays = compact(cfg.Relays)
	if len(cfg.Relays) == 0 {
		cfg.Relays = []string{DefaultRelay}
	}
	cfg.Group.Relays = compact(cfg.Group.Relays)
	cfg.Hooks.OnDM = strings.TrimSpace(cfg.Hooks.OnDM)
	cfg.Hooks.OnGroupMessage = strings.TrimSpace(cfg.Hooks.OnGroupMessage)
	return &cfg, nil
}

// ParseIdentity checks that data holds a JSON value and returns the bytes
// unmodified.
func ParseIdentity(data []byte) (Identity, error) {
	if !json.Valid(jsonc.ToJSON(data)) {
		return nil, errors.New("parse identity: invalid JSON")
	}
	out := make(Identity, len(data))
	copy(out, data)
	return out, nil
}

// GroupName returns the configured display name for a subscribed group id.
func (c *DaemonConfig) GroupName(id string) string {
	if c == nil {
		return ""
	}
	for _, group := range c.Subscriptions.Groups {
		if group.ID == id {
			return group.Name
		}
	}
	return ""
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot read %s: %w", path, ErrMissingFile)
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
