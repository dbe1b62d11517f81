// Package intent describes outbound synchronization intents and the sinks
// that acknowledge them.
package intent

import (
	"context"
	"strings"
	"time"
)

// Metadata keys set on published messages.
const (
	MetadataPath = "path"
)

// Intent asks an external synchronization backend to apply one change.
type Intent struct {
	Channel string
	Path    string
	Payload []byte
}

// Operation returns the path segment naming the change, e.g. "update" for
// "/scores/update/42".
func (in Intent) Operation() string {
	parts := strings.Split(strings.Trim(in.Path, "/"), "/")
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[1]
}

// Sink delivers intents and reports the backend's acknowledgement. The
// returned error is passed to the caller unchanged.
type Sink interface {
	Act(ctx context.Context, in Intent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, in Intent) error

// Act calls f.
func (f SinkFunc) Act(ctx context.Context, in Intent) error { return f(ctx, in) }

// Pending is an intent waiting for delivery together with the channel its
// acknowledgement is reported on.
type Pending struct {
	Intent   Intent
	Enqueued time.Time
	ctx      context.Context //nolint:containedctx // carries the submitter's deadline to the worker
	done     chan error
}

// NewPending wraps in for queued delivery.
func NewPending(ctx context.Context, in Intent) *Pending {
	return &Pending{Intent: in, Enqueued: time.Now(), ctx: ctx, done: make(chan error, 1)}
}

// Context returns the submitter's context.
func (p *Pending) Context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// Resolve reports the delivery result. Only the first call has an effect.
func (p *Pending) Resolve(err error) {
	select {
	case p.done <- err:
	default:
	}
}

// Wait blocks until the intent was delivered or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
