package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"sphered/internal/message"
)

const stderrTail = 512

var commandContext = exec.CommandContext

// Option configures the Helper.
type Option func(*Helper)

// WithCommand overrides the helper command. Extra words are passed as leading
// arguments, so "node sphere-helper.mjs" works.
func WithCommand(command string) Option {
	return func(h *Helper) {
		if fields := strings.Fields(command); len(fields) > 0 {
			h.binary = fields[0]
			h.prefix = fields[1:]
		}
	}
}

// Helper retrieves messages by running the external sphere helper:
//
//	<helper> check-messages --identity <path> --config <path> --since <unix-seconds>
//
// The helper prints {"messages": [...], "polled_at": "..."} on stdout.
type Helper struct {
	binary string
	prefix []string
}

// NewHelper constructs a Helper using the default binary name.
func NewHelper(opts ...Option) *Helper {
	h := &Helper{binary: "sphere-helper"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Available reports whether the helper binary resolves on PATH or on disk.
func (h *Helper) Available() error {
	if _, err := exec.LookPath(h.binary); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHelperUnavailable, h.binary, err)
	}
	return nil
}

type helperOutput struct {
	Messages []message.Raw `json:"messages"`
	PolledAt string        `json:"polled_at"`
}

// Retrieve runs one check-messages invocation.
func (h *Helper) Retrieve(ctx context.Context, req Request) (Batch, error) {
	if req.Project == nil {
		return Batch{}, errors.New("project required")
	}
	args := append([]string{}, h.prefix...)
	args = append(args,
		"check-messages",
		"--identity", req.Project.IdentityPath,
		"--config", req.Project.ConfigPath,
		"--since", strconv.FormatInt(req.Since.Unix(), 10),
	)

	cmd := commandContext(ctx, h.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = req.Project.Dir
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Batch{}, fmt.Errorf("check-messages: %w", ctxErr)
		}
		return Batch{}, fmt.Errorf("check-messages: %w: %s", err, tail(stderr.String()))
	}

	var out helperOutput
	dec := json.NewDecoder(&stdout)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, errors.New("check-messages: empty output")
		}
		return Batch{}, fmt.Errorf("check-messages: decode output: %w", err)
	}

	batch := Batch{Messages: out.Messages}
	if out.PolledAt != "" {
		if polled, err := time.Parse(time.RFC3339Nano, out.PolledAt); err == nil {
			batch.PolledAt = polled
		}
	}
	return batch, nil
}

func tail(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > stderrTail {
		value = "..." + value[len(value)-stderrTail:]
	}
	return value
}

var _ MessageSource = (*Helper)(nil)
