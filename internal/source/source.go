package source

import (
	"context"
	"errors"
	"time"

	"sphered/internal/agent"
	"sphered/internal/message"
)

// ErrHelperUnavailable reports that the retrieval helper cannot be found.
var ErrHelperUnavailable = errors.New("message helper unavailable")

// Request describes one retrieval: everything newer than Since for the
// project's identity and relays.
type Request struct {
	Since    time.Time
	Identity agent.Identity
	Config   *agent.DaemonConfig
	Project  *agent.Project
}

// NewRequest builds a request for project covering messages after since.
func NewRequest(project *agent.Project, since time.Time) Request {
	req := Request{Since: since, Project: project}
	if project != nil {
		req.Identity = project.Identity
		req.Config = project.Config
	}
	return req
}

// Batch is the result of one retrieval, in source order.
type Batch struct {
	Messages []message.Raw
	PolledAt time.Time
}

// MessageSource retrieves messages from the relay network. Implementations
// must honor ctx cancellation; the scheduler bounds every call with a deadline.
type MessageSource interface {
	Retrieve(ctx context.Context, req Request) (Batch, error)
}

// Func adapts a plain function to MessageSource.
type Func func(ctx context.Context, req Request) (Batch, error)

// Retrieve calls f.
func (f Func) Retrieve(ctx context.Context, req Request) (Batch, error) {
	return f(ctx, req)
}
