package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sphered/internal/agent"
	"sphered/internal/daemonctl"
	"sphered/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var projectFlag string
	var intervalSeconds int
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the daemon in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") && intervalSeconds <= 0 {
				return fmt.Errorf("--interval must be a positive number of seconds (got %d)", intervalSeconds)
			}
			projectDir, err := agent.ResolveDir(projectFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				ProjectDir: projectDir,
				Interval:   time.Duration(intervalSeconds) * time.Second,
				LogLevel:   ctx.logLevel(),
			})
		},
	}
	startCmd.Flags().StringVar(&projectFlag, "project", "", "Project directory holding .claude/agent (default $CLAUDE_PROJECT_DIR or cwd)")
	startCmd.Flags().IntVar(&intervalSeconds, "interval", 0, "Polling interval in seconds (default from config)")

	stopCmd := &cobra.Command{
		Use:         "stop",
		Short:       "Send SIGTERM to the running daemon",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			result := daemonctl.Stop(ctx.pidFile(cmd.ErrOrStderr()))
			if result.State == daemonctl.StopFailed {
				fmt.Fprintln(cmd.ErrOrStderr(), result.Message())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message())
			if result.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %v\n", result.Err)
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:         "status",
		Short:       "Report whether the daemon is running",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			result := daemonctl.Status(ctx.pidFile(cmd.ErrOrStderr()))
			fmt.Fprintln(stdout, colorizeLine(result.Message(), statusKindForDaemon(result.State), colorize))
			if result.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %v\n", result.Err)
			}
			if result.State == daemonctl.StatusNotRunning {
				return nil
			}

			pid := "unreadable"
			if result.PID > 0 {
				pid = strconv.Itoa(result.PID)
			}
			rows := [][]string{
				{"PID file", result.Path},
				{"PID", pid},
				{"State", string(result.State)},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func statusKindForDaemon(state daemonctl.StatusState) statusKind {
	switch state {
	case daemonctl.StatusRunning:
		return statusOK
	case daemonctl.StatusStale:
		return statusWarn
	default:
		return statusInfo
	}
}
