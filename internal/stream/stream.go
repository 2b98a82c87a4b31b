package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kode4food/courier/closer"
	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/internal/observability"
	"github.com/kode4food/courier/internal/sync/channel"
	"github.com/kode4food/courier/message"
	"github.com/kode4food/courier/stream"
)

type (
	// Stream is the internal implementation of a stream.Stream. It wraps
	// the state so that a finalizer can report streams that were never
	// closed
	Stream struct {
		*logStream
	}

	logStream struct {
		closer.Closer
		id       uuid.UUID
		topic    string
		capacity int
		log      durable.Log
		config   *config.Config
		metrics  *observability.Metrics
		fetches  singleflight.Group
		readable *channel.Signal
		appended *channel.Signal
		errors   chan error

		mu     sync.Mutex
		buffer []message.Args
		cursor durable.ID
		failed error
	}
)

const fetchKey = "fetch"

// Compile-time check for interface implementation
var _ stream.Stream = (*Stream)(nil)

// Make instantiates a new internal Stream reading and writing topic through
// the provided durable Log
func Make(
	topic string, capacity int, log durable.Log,
	cfg *config.Config, m *observability.Metrics,
) *Stream {
	if capacity <= 0 {
		capacity = cfg.Capacity
	}
	s := &logStream{
		id:       uuid.New(),
		topic:    topic,
		capacity: capacity,
		log:      log,
		config:   cfg,
		metrics:  m,
		readable: channel.MakeSignal(),
		appended: channel.MakeSignal(),
		errors:   make(chan error, 1),
	}
	s.Closer = makeCloser(s.onClose)

	res := &Stream{logStream: s}
	runtime.SetFinalizer(res, streamDebugFinalizer)
	return res
}

func (s *logStream) Topic() string {
	return s.topic
}

func (s *logStream) Capacity() int {
	return s.capacity
}

func (s *logStream) Cursor() durable.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *logStream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

func (s *logStream) Readable() <-chan struct{} {
	return s.readable.Wait()
}

func (s *logStream) Appended() <-chan struct{} {
	return s.appended.Wait()
}

func (s *logStream) Errors() <-chan error {
	return s.errors
}

func (s *logStream) Write(ctx context.Context, args message.Args) error {
	if err := s.usable(); err != nil {
		return err
	}
	payload, err := s.config.Codec.Encode(args)
	if err != nil {
		return fmt.Errorf("encode for topic %q: %w", s.topic, err)
	}
	_, err = s.log.Append(ctx, s.topic, payload)
	s.metrics.Appends.WithLabelValues(
		s.topic, observability.Status(err),
	).Inc()
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// the caller gave up; the log itself has not failed
			return err
		}
		return s.fail(&stream.AppendError{Topic: s.topic, Err: err})
	}
	s.appended.Notify()
	return nil
}

func (s *logStream) Read(ctx context.Context, n int) ([]message.Args, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := s.usable(); err != nil {
		return nil, err
	}
	if res := s.take(n); len(res) != 0 {
		return res, nil
	}
	if _, err := s.fill(ctx, n); err != nil {
		return nil, err
	}
	return s.take(n), nil
}

func (s *logStream) Fill(ctx context.Context) (int, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	return s.fill(ctx, s.capacity)
}

// fill joins the outstanding range read for this stream, or starts one.
// The read is detached from ctx's cancellation; an abandoned caller only
// stops waiting for it
func (s *logStream) fill(ctx context.Context, want int) (int, error) {
	ch := s.fetches.DoChan(fetchKey, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), want)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return 0, r.Err
		}
		return r.Val.(int), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *logStream) fetch(ctx context.Context, want int) (int, error) {
	s.mu.Lock()
	room := s.capacity - len(s.buffer)
	after := s.cursor
	s.mu.Unlock()

	count := min(want, room)
	if count <= 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.IOTimeout)
	defer cancel()
	entries, err := s.log.RangeRead(ctx, s.topic, after, count)
	s.metrics.Fetches.WithLabelValues(
		s.topic, observability.Status(err),
	).Inc()
	if err != nil {
		return 0, s.fail(&stream.FetchError{Topic: s.topic, Err: err})
	}
	if len(entries) == 0 {
		return 0, nil
	}

	values := make([]message.Args, 0, len(entries))
	for _, e := range entries {
		args, err := s.config.Codec.Decode(e.Payload)
		if err != nil {
			return 0, s.fail(&stream.FetchError{
				Topic: s.topic,
				Err:   fmt.Errorf("decode entry %s: %w", e.ID, err),
			})
		}
		values = append(values, args)
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, values...)
	s.cursor = entries[len(entries)-1].ID
	s.mu.Unlock()

	s.metrics.FetchedEntries.WithLabelValues(s.topic).Add(float64(len(values)))
	s.readable.Notify()
	return len(values), nil
}

func (s *logStream) take(n int) []message.Args {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := min(n, len(s.buffer))
	if k == 0 {
		return nil
	}
	res := slices.Clone(s.buffer[:k])
	s.buffer = slices.Delete(s.buffer, 0, k)
	return res
}

func (s *logStream) usable() error {
	if closer.IsClosed(s) {
		return stream.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil {
		return fmt.Errorf("%w: %w", stream.ErrFailed, s.failed)
	}
	return nil
}

// fail moves the stream into its terminal error state. Only the first
// failure is recorded and reported on the errors channel
func (s *logStream) fail(err error) error {
	s.mu.Lock()
	first := s.failed == nil
	if first {
		s.failed = err
	}
	s.mu.Unlock()

	if first {
		kind := "fetch"
		if _, ok := err.(*stream.AppendError); ok {
			kind = "append"
		}
		s.metrics.StreamErrors.WithLabelValues(s.topic, kind).Inc()
		s.config.Logger.Warn("stream failed",
			slog.String("topic", s.topic),
			slog.Any("error", err),
		)
		s.errors <- err
		// waiters find out on their next Read
		s.readable.Notify()
	}
	return err
}

func (s *logStream) onClose() {
	defer s.readable.Close()
	defer s.appended.Close()

	if s.config.Retention != config.DeleteOnClose {
		return
	}
	ctx, cancel := context.WithTimeout(
		context.Background(), s.config.IOTimeout,
	)
	defer cancel()
	if err := s.log.Delete(ctx, s.topic); err != nil {
		s.config.Logger.Debug("topic delete failed on close",
			slog.String("topic", s.topic),
			slog.Any("error", err),
		)
	}
}

func streamDebugFinalizer(s *Stream) {
	select {
	case <-s.IsClosed():
	default:
		slog.Debug("stream not closed before garbage collection",
			"id", s.id, "topic", s.topic,
		)
	}
}
