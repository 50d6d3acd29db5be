package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (poll_failed, hook_launched, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for WARN and ERROR lines.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID identifies a single poll cycle across its log lines.
	FieldCorrelationID = "correlation_id"
	// FieldRunID identifies one daemon process run.
	FieldRunID = "run_id"
	// FieldPID is the process identifier of the daemon or a hook.
	FieldPID = "pid"
	// FieldHook is the resolved hook script path.
	FieldHook = "hook"
	// FieldMessageType is the classified message type (dm or group).
	FieldMessageType = "message_type"
	// FieldSender is the message sender identifier.
	FieldSender = "from"
)

type correlationKey struct{}

// WithCorrelationID stores a poll-cycle correlation id on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation id stored by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldCorrelationID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
