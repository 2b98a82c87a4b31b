// Package transport exposes the Emitter, which delivers events between
// producers and consumers through per-topic log streams
package transport

import (
	"context"
	"time"

	"github.com/kode4food/courier/cancel"
	"github.com/kode4food/courier/stream"
)

type (
	// Emitter emits events to named topics and waits for single events to
	// arrive. One log stream is held per topic, created on first use
	Emitter interface {
		// Emit appends one event carrying args to the named topic. The
		// result is true when the durable log acknowledged the append
		Emit(ctx context.Context, o EmitOptions, args ...any) (bool, error)

		// Once waits for the next event on the named topic and calls the
		// listener exactly once: with the event's args when one arrives,
		// and with no args when the wait times out, is cancelled or fails
		Once(ctx context.Context, o OnceOptions, l Listener) (Outcome, error)

		// SetStream installs a stream under the provided key, replacing
		// whatever was there
		SetStream(key string, s stream.Stream)

		// GetStream returns the stream held under key, if any
		GetStream(key string) (stream.Stream, bool)

		// ResetInternalStreams forgets every held stream without closing
		// them
		ResetInternalStreams()

		// InternalStreamType returns the constructor used for new streams
		InternalStreamType() stream.Factory
	}

	// EmitOptions control a single Emit call
	EmitOptions struct {
		Event   string
		Timeout time.Duration
	}

	// OnceOptions control a single Once call. A zero Timeout selects the
	// emitter's default; a negative one expires immediately. When Until is
	// closed the wait times out as well
	OnceOptions struct {
		Event    string
		Canceler *cancel.Token
		Timeout  time.Duration
		Until    <-chan struct{}
	}

	// Listener receives the args of a delivered event
	Listener func(args ...any)

	// Outcome describes how a Once call was resolved
	Outcome int
)

// Outcomes
const (
	Pending Outcome = iota
	Delivered
	TimedOut
	Cancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
