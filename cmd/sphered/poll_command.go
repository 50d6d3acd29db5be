package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sphered/internal/agent"
	"sphered/internal/daemonrun"
	"sphered/internal/logging"
	"sphered/internal/message"
)

type pollOutput struct {
	Messages []message.Raw `json:"messages"`
	PolledAt string        `json:"polled_at"`
}

func newPollCommand(ctx *commandContext) *cobra.Command {
	var projectFlag string
	var sinceUnix int64
	var dispatch bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run one retrieval and print the messages as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := agent.ResolveDir(projectFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := ctx.logLevel()
			if level == "" {
				level = cfg.Logging.Level
			}
			logger, err := logging.New(logging.Options{
				Level:            level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			opts := daemonrun.PollOptions{ProjectDir: projectDir, Dispatch: dispatch, Logger: logger}
			if sinceUnix > 0 {
				opts.Since = time.Unix(sinceUnix, 0)
			}
			result, err := daemonrun.PollOnce(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}

			polledAt := result.Batch.PolledAt
			if polledAt.IsZero() {
				polledAt = result.Started
			}
			out := pollOutput{
				Messages: result.Batch.Messages,
				PolledAt: polledAt.UTC().Format(message.TimestampLayout),
			}
			if out.Messages == nil {
				out.Messages = []message.Raw{}
			}
			if result.Dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d message(s) lacked a sender or body and would not be dispatched\n", result.Dropped)
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&projectFlag, "project", "", "Project directory holding .claude/agent (default $CLAUDE_PROJECT_DIR or cwd)")
	cmd.Flags().Int64Var(&sinceUnix, "since", 0, "Unix seconds lower bound (default ten minutes ago)")
	cmd.Flags().BoolVar(&dispatch, "dispatch", false, "Also run hooks for the retrieved messages")
	return cmd
}
