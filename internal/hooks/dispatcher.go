package hooks

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"sphered/internal/agent"
	"sphered/internal/logging"
	"sphered/internal/message"
)

// Launcher starts a prepared hook command without waiting for it.
type Launcher interface {
	Start(cmd *exec.Cmd) error
}

// Options configures a Dispatcher.
type Options struct {
	ProjectDir string
	Hooks      agent.Hooks
	Shell      string
	ProjectEnv string
	Logger     *slog.Logger
	// Launcher defaults to a Detached launcher that logs reaper errors.
	Launcher Launcher
}

// Dispatcher runs the configured hook script for each message type.
type Dispatcher struct {
	projectDir string
	hooks      agent.Hooks
	shell      string
	projectEnv string
	logger     *slog.Logger
	launcher   Launcher
}

// NewDispatcher builds a dispatcher from opts.
func NewDispatcher(opts Options) *Dispatcher {
	logger := logging.NewComponentLogger(opts.Logger, "hooks")
	shell := strings.TrimSpace(opts.Shell)
	if shell == "" {
		shell = "bash"
	}
	projectEnv := strings.TrimSpace(opts.ProjectEnv)
	if projectEnv == "" {
		projectEnv = "CLAUDE_PROJECT_DIR"
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = Detached{OnError: func(err error) {
			logging.WarnWithContext(logger, "hook process error", "hook_process_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "hook may not have received the full message"),
			)
		}}
	}
	return &Dispatcher{
		projectDir: opts.ProjectDir,
		hooks:      opts.Hooks,
		shell:      shell,
		projectEnv: projectEnv,
		logger:     logger,
		launcher:   launcher,
	}
}

// ScriptFor returns the configured script path for a message type, resolved
// against the project directory. ok is false when no hook is configured.
func (d *Dispatcher) ScriptFor(t message.Type) (string, bool) {
	var configured string
	switch t {
	case message.TypeDM:
		configured = d.hooks.OnDM
	case message.TypeGroup:
		configured = d.hooks.OnGroupMessage
	}
	if configured == "" {
		return "", false
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured), true
	}
	return filepath.Join(d.projectDir, configured), true
}

// Dispatch launches the hook for msg. It never returns an error and never
// blocks on the hook process: unconfigured types are ignored, missing scripts
// and launch failures are logged.
func (d *Dispatcher) Dispatch(msg message.Message) {
	script, ok := d.ScriptFor(msg.Type)
	if !ok {
		d.logger.Debug("no hook configured", logging.String(logging.FieldMessageType, string(msg.Type)))
		return
	}
	if _, err := os.Stat(script); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.Info("hook not found", logging.String(logging.FieldHook, script))
			return
		}
		logging.WarnWithContext(d.logger, "hook not accessible", "hook_stat_failed",
			logging.String(logging.FieldHook, script),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message not delivered to hook"),
		)
		return
	}

	payload, err := msg.JSON()
	if err != nil {
		logging.WarnWithContext(d.logger, "hook payload encoding failed", "hook_payload_failed",
			logging.String(logging.FieldHook, script),
			logging.Error(err),
		)
		return
	}

	cmd := d.command(script, payload)
	if err := d.launcher.Start(cmd); err != nil {
		logging.WarnWithContext(d.logger, "hook launch failed", "hook_launch_failed",
			logging.String(logging.FieldHook, script),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the hook shell and script permissions"),
			logging.String(logging.FieldImpact, "message not delivered to hook; it will not be retried"),
		)
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "hook_launched"),
		logging.String(logging.FieldHook, script),
		logging.String(logging.FieldMessageType, string(msg.Type)),
	}
	if cmd.Process != nil {
		attrs = append(attrs, logging.Int(logging.FieldPID, cmd.Process.Pid))
	}
	d.logger.Debug("hook launched", logging.Args(attrs...)...)
}

func (d *Dispatcher) command(script string, payload []byte) *exec.Cmd {
	cmd := exec.Command(d.shell, script)
	cmd.Dir = d.projectDir
	cmd.Env = append(os.Environ(), d.projectEnv+"="+d.projectDir)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd
}
