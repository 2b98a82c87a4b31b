package transport

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/kode4food/courier/cancel"
	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/message"
	"github.com/kode4food/courier/stream"
	"github.com/kode4food/courier/transport"
)

// wait is a single pending Once call. Its outcome is decided exactly once
type wait struct {
	id       uuid.UUID
	stream   stream.Stream
	canceler *cancel.Token
	internal *cancel.Token
	config   *config.Config
	state    atomic.Int32
}

func makeWait(
	s stream.Stream, canceler *cancel.Token, cfg *config.Config,
) *wait {
	return &wait{
		id:       uuid.New(),
		stream:   s,
		canceler: canceler,
		internal: cancel.New(true),
		config:   cfg,
	}
}

// run resolves the wait, returning the delivered args if there are any
func (w *wait) run(
	ctx context.Context, timeout time.Duration, until <-chan struct{},
) (message.Args, transport.Outcome, error) {
	if timeout < 0 || isDone(until) || ctx.Err() != nil {
		return w.expire()
	}

	ctx, stop := context.WithTimeout(ctx, timeout)
	defer stop()
	if until != nil {
		go func() {
			select {
			case <-until:
				stop()
			case <-ctx.Done():
			}
		}()
	}

	if args, ok, err := w.readOne(ctx); err != nil {
		if ctx.Err() != nil {
			return w.expire()
		}
		return w.failed(err)
	} else if ok {
		return w.deliver(args)
	}

	refetch := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(w.config.RefetchInitial),
		backoff.WithMaxInterval(w.config.RefetchMax),
		backoff.WithMaxElapsedTime(0),
	)
	poll := time.NewTimer(refetch.NextBackOff())
	defer poll.Stop()

	for {
		if !w.canceler.Read() {
			return w.cancelled()
		}
		readable := w.stream.Readable()
		appended := w.stream.Appended()
		changed := w.canceler.Changed()

		ready := w.stream.Buffered() != 0
		if !ready {
			select {
			case <-readable:
				ready = true
			case <-appended:
				if err := w.fill(ctx); err != nil {
					return w.failed(err)
				}
			case <-poll.C:
				if err := w.fill(ctx); err != nil {
					return w.failed(err)
				}
				poll.Reset(refetch.NextBackOff())
			case <-changed:
			case <-ctx.Done():
				return w.expire()
			}
		}
		if !ready || !w.live() {
			continue
		}

		args, ok, err := w.readOne(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return w.expire()
		case err != nil:
			return w.failed(err)
		case ok:
			return w.deliver(args)
		}
	}
}

// live reports whether the wait may still consume a value
func (w *wait) live() bool {
	return w.canceler.Read() && w.internal.Read() &&
		transport.Outcome(w.state.Load()) == transport.Pending
}

func (w *wait) readOne(ctx context.Context) (message.Args, bool, error) {
	res, err := w.stream.Read(ctx, 1)
	if err != nil || len(res) == 0 {
		return nil, false, err
	}
	return res[0], true, nil
}

// fill asks the stream for more entries. Expiry of ctx is not a failure;
// the caller's select notices it
func (w *wait) fill(ctx context.Context) error {
	if _, err := w.stream.Fill(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (w *wait) decide(o transport.Outcome) bool {
	return w.state.CompareAndSwap(
		int32(transport.Pending), int32(o),
	)
}

func (w *wait) deliver(
	args message.Args,
) (message.Args, transport.Outcome, error) {
	w.decide(transport.Delivered)
	return args, transport.Delivered, nil
}

func (w *wait) expire() (message.Args, transport.Outcome, error) {
	w.internal.Write(false)
	w.decide(transport.TimedOut)
	return nil, transport.TimedOut, nil
}

func (w *wait) cancelled() (message.Args, transport.Outcome, error) {
	w.decide(transport.Cancelled)
	return nil, transport.Cancelled, nil
}

func (w *wait) failed(err error) (message.Args, transport.Outcome, error) {
	w.decide(transport.Failed)
	return nil, transport.Failed, err
}

func isDone(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
