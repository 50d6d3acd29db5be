package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sphered/internal/agent"
	"sphered/internal/logging"
	"sphered/internal/message"
	"sphered/internal/source"
)

// DefaultTimeout bounds a source call when Options.Timeout is unset: the
// default collection window plus grace.
const DefaultTimeout = 15 * time.Second

// Dispatcher receives every classified message in source order.
type Dispatcher interface {
	Dispatch(msg message.Message)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(msg message.Message)

// Dispatch calls f.
func (f DispatchFunc) Dispatch(msg message.Message) { f(msg) }

// State is the scheduler's mutable bookkeeping. Only the scheduler goroutine
// writes it.
type State struct {
	// Since is the watermark: the lower bound of the next retrieval.
	Since       time.Time
	Interval    time.Duration
	Cycles      int
	Failures    int
	LastSuccess time.Time
}

// Options configures a Scheduler.
type Options struct {
	Source     source.MessageSource
	Project    *agent.Project
	Dispatcher Dispatcher
	Interval   time.Duration
	Timeout    time.Duration
	// Since seeds the watermark. Zero means now minus Interval.
	Since  time.Time
	Logger *slog.Logger
	Now    func() time.Time
}

// Scheduler polls the source on a fixed interval and hands classified
// messages to the dispatcher.
type Scheduler struct {
	source     source.MessageSource
	project    *agent.Project
	dispatcher Dispatcher
	classifier message.Classifier
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
	state      State
}

// CycleResult describes one completed poll cycle.
type CycleResult struct {
	CorrelationID string
	Since         time.Time
	Started       time.Time
	Batch         source.Batch
	Messages      []message.Message
	Dropped       int
	Err           error
}

// New validates opts and returns a scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, errors.New("scheduler: message source required")
	}
	if opts.Project == nil || opts.Project.Config == nil {
		return nil, errors.New("scheduler: project required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = DispatchFunc(func(message.Message) {})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		source:     opts.Source,
		project:    opts.Project,
		dispatcher: dispatcher,
		classifier: message.NewClassifier(opts.Project.Config.OwnerNpub),
		timeout:    timeout,
		logger:     logging.NewComponentLogger(opts.Logger, "scheduler"),
		now:        now,
		state:      State{Since: opts.Since, Interval: opts.Interval},
	}, nil
}

// State returns a snapshot of the scheduler state. It is only meaningful
// between cycles.
func (s *Scheduler) State() State {
	return s.state
}

// Run polls until ctx is cancelled. The first cycle runs before the ticker is
// armed. Cycles never overlap: ticks that fire while a cycle is running are
// dropped. Cycle failures are logged and never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.seed()
	s.logger.Info("polling started",
		logging.Duration("interval", s.state.Interval),
		logging.Time("since", s.state.Since),
	)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.state.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("polling stopped", logging.Int("cycles", s.state.Cycles))
			return nil
		case <-ticker.C:
			result := s.RunOnce(ctx)
			s.skipMissedTicks(ticker, result.Started)
		}
	}
}

// RunOnce executes a single poll cycle against the current watermark.
func (s *Scheduler) RunOnce(ctx context.Context) CycleResult {
	s.seed()
	result := CycleResult{
		CorrelationID: uuid.NewString(),
		Since:         s.state.Since,
		Started:       s.now(),
	}
	ctx = logging.WithCorrelationID(ctx, result.CorrelationID)
	logger := logging.WithContext(ctx, s.logger)
	s.state.Cycles++

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	batch, err := s.source.Retrieve(callCtx, source.NewRequest(s.project, result.Since))
	cancel()
	if err != nil {
		result.Err = err
		s.state.Failures++
		if ctx.Err() != nil {
			logger.Info("poll cycle interrupted by shutdown", logging.Error(err))
			return result
		}
		logging.WarnWithContext(logger, "poll cycle failed; will retry", "poll_failed",
			logging.Error(err),
			logging.Time("since", result.Since),
			logging.String(logging.FieldErrorHint, "check the message helper and relay connectivity"),
			logging.String(logging.FieldImpact, "messages since the watermark are fetched again next cycle"),
		)
		return result
	}

	s.state.Since = result.Started
	s.state.LastSuccess = result.Started
	result.Batch = batch

	for _, raw := range batch.Messages {
		msg, ok := s.classifier.Classify(raw)
		if !ok {
			result.Dropped++
			logger.Debug("message dropped; sender or body missing",
				logging.Int("kind", raw.Kind),
				logging.String(logging.FieldEventType, "message_dropped"),
			)
			continue
		}
		result.Messages = append(result.Messages, msg)
		s.logMessage(logger, raw, msg)
		s.dispatcher.Dispatch(msg)
	}

	logger.Debug("poll cycle complete",
		logging.Int("messages", len(result.Messages)),
		logging.Int("dropped", result.Dropped),
		logging.Duration("elapsed", s.now().Sub(result.Started)),
	)
	return result
}

func (s *Scheduler) seed() {
	if s.state.Since.IsZero() {
		s.state.Since = s.now().Add(-s.state.Interval)
	}
}

func (s *Scheduler) logMessage(logger *slog.Logger, raw message.Raw, msg message.Message) {
	attrs := []logging.Attr{
		logging.String(logging.FieldMessageType, string(msg.Type)),
		logging.String(logging.FieldSender, msg.From),
		logging.Bool("priority", msg.Priority),
	}
	if msg.Type == message.TypeDM {
		logger.Info("DM received", logging.Args(attrs...)...)
		return
	}
	group := s.project.Config.GroupName(raw.GroupID)
	if group == "" {
		group = raw.GroupID
	}
	if group != "" {
		attrs = append(attrs, logging.String("group", group))
	}
	logger.Info("group message received", logging.Args(attrs...)...)
}

// skipMissedTicks drops a tick buffered during an overrunning cycle so the
// next cycle starts on the following boundary.
func (s *Scheduler) skipMissedTicks(ticker *time.Ticker, started time.Time) {
	elapsed := s.now().Sub(started)
	skipped := int(elapsed / s.state.Interval)
	select {
	case <-ticker.C:
		if skipped == 0 {
			skipped = 1
		}
	default:
	}
	if skipped > 0 {
		s.logger.Info("poll cycle overran interval; ticks skipped",
			logging.Int("skipped_ticks", skipped),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "poll_overrun"),
		)
	}
}
