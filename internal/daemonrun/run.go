package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"sphered/internal/agent"
	"sphered/internal/config"
	"sphered/internal/daemonctl"
	"sphered/internal/hooks"
	"sphered/internal/logging"
	"sphered/internal/scheduler"
	"sphered/internal/source"
)

// DefaultPollWindow is how far back a one-off poll looks without --since.
const DefaultPollWindow = 10 * time.Minute

// Options configures daemon process runtime behavior.
type Options struct {
	ProjectDir string
	// Interval overrides cfg.Poll.IntervalSeconds when positive.
	Interval time.Duration
	LogLevel string
	// Logger and Source replace the production logger and helper when set.
	Logger *slog.Logger
	Source source.MessageSource
}

// Run loads the project, claims the PID record and polls until ctx is
// cancelled or the process receives SIGINT or SIGTERM. Startup failures are
// returned; once polling starts only a fatal error ends the run.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	// Signals are captured before the PID record exists so a stop sent as soon
	// as the record appears shuts down cleanly instead of killing the process.
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	project, err := agent.Load(opts.ProjectDir)
	if err != nil {
		return fmt.Errorf("load agent files: %w", err)
	}

	interval := opts.Interval
	if interval == 0 {
		interval = cfg.PollInterval()
	}
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive (got %s)", interval)
	}

	src, err := resolveSource(cfg, opts.Source)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lease, err := daemonctl.Acquire(cfg.Paths.PIDFile, os.Getpid())
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lease.Release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to remove pid file: %v\n", releaseErr)
		}
	}()

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.NewFromConfig(cfg, opts.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	logger = logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	logStartup(logger, project, lease, interval)

	sched, err := scheduler.New(scheduler.Options{
		Source:     src,
		Project:    project,
		Dispatcher: newDispatcher(cfg, project, logger),
		Interval:   interval,
		Timeout:    cfg.RetrieveTimeout(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := sched.Run(signalCtx); err != nil {
		return err
	}

	logger.Info("sphere daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Int(logging.FieldPID, lease.PID()),
	)
	return nil
}

// PollOptions configures a single retrieval.
type PollOptions struct {
	ProjectDir string
	// Since defaults to now minus DefaultPollWindow.
	Since time.Time
	// Dispatch runs hooks for the retrieved messages.
	Dispatch bool
	Logger   *slog.Logger
	Source   source.MessageSource
}

// PollOnce runs one poll cycle without touching the PID record.
func PollOnce(ctx context.Context, cfg *config.Config, opts PollOptions) (scheduler.CycleResult, error) {
	if cfg == nil {
		return scheduler.CycleResult{}, fmt.Errorf("config is required")
	}
	project, err := agent.Load(opts.ProjectDir)
	if err != nil {
		return scheduler.CycleResult{}, fmt.Errorf("load agent files: %w", err)
	}
	src, err := resolveSource(cfg, opts.Source)
	if err != nil {
		return scheduler.CycleResult{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	since := opts.Since
	if since.IsZero() {
		since = time.Now().Add(-DefaultPollWindow)
	}
	var dispatcher scheduler.Dispatcher
	if opts.Dispatch {
		dispatcher = newDispatcher(cfg, project, logger)
	}

	sched, err := scheduler.New(scheduler.Options{
		Source:     src,
		Project:    project,
		Dispatcher: dispatcher,
		Interval:   DefaultPollWindow,
		Timeout:    cfg.RetrieveTimeout(),
		Since:      since,
		Logger:     logger,
	})
	if err != nil {
		return scheduler.CycleResult{}, err
	}
	result := sched.RunOnce(ctx)
	return result, result.Err
}

func resolveSource(cfg *config.Config, override source.MessageSource) (source.MessageSource, error) {
	if override != nil {
		return override, nil
	}
	helper := source.NewHelper(source.WithCommand(cfg.Source.HelperCommand))
	if err := helper.Available(); err != nil {
		if errors.Is(err, source.ErrHelperUnavailable) {
			return nil, fmt.Errorf("%w (set source.helper_command or SPHERED_HELPER)", err)
		}
		return nil, err
	}
	return helper, nil
}

func newDispatcher(cfg *config.Config, project *agent.Project, logger *slog.Logger) *hooks.Dispatcher {
	return hooks.NewDispatcher(hooks.Options{
		ProjectDir: project.Dir,
		Hooks:      project.Config.Hooks,
		Shell:      cfg.Hooks.Shell,
		ProjectEnv: cfg.Hooks.ProjectEnv,
		Logger:     logger,
	})
}

func logStartup(logger *slog.Logger, project *agent.Project, lease *daemonctl.Lease, interval time.Duration) {
	groups := make([]string, 0, len(project.Config.Subscriptions.Groups))
	for _, group := range project.Config.Subscriptions.Groups {
		name := group.Name
		if name == "" {
			name = group.ID
		}
		groups = append(groups, name)
	}
	logger.Info("sphere daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Int(logging.FieldPID, lease.PID()),
		logging.String("pid_file", lease.Path()),
		logging.String("project", project.Dir),
		logging.Duration("interval", interval),
		logging.Strings("relays", project.Config.Relays),
		logging.Strings("groups", groups),
		logging.Bool("owner_configured", project.Config.OwnerNpub != ""),
		logging.Bool("dm_hook", project.Config.Hooks.OnDM != ""),
		logging.Bool("group_hook", project.Config.Hooks.OnGroupMessage != ""),
	)
}
