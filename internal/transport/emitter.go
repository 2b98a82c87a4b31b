package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/internal/observability"
	streamImpl "github.com/kode4food/courier/internal/stream"
	"github.com/kode4food/courier/message"
	"github.com/kode4food/courier/stream"
	"github.com/kode4food/courier/transport"
)

// Emitter is the internal implementation of a transport.Emitter
type Emitter struct {
	config  *config.Config
	metrics *observability.Metrics
	tracer  trace.Tracer
	factory stream.Factory

	mu      sync.Mutex
	streams map[string]stream.Stream
}

// Compile-time check for interface implementation
var _ transport.Emitter = (*Emitter)(nil)

// Make instantiates a new Emitter whose streams are backed by the provided
// durable Log
func Make(log durable.Log, o ...config.Option) (*Emitter, error) {
	cfg, err := config.Build(o...)
	if err != nil {
		return nil, err
	}
	m := observability.NewMetrics(cfg.Registerer)
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	return &Emitter{
		config:  cfg,
		metrics: m,
		tracer:  tracer,
		streams: map[string]stream.Stream{},
		factory: func(topic string, capacity int) stream.Stream {
			return streamImpl.Make(topic, capacity, log, cfg, m)
		},
	}, nil
}

// Emit appends args to the event's topic
func (e *Emitter) Emit(
	ctx context.Context, o transport.EmitOptions, args ...any,
) (bool, error) {
	ctx, span := e.tracer.Start(ctx, observability.SpanEmit,
		trace.WithAttributes(observability.TopicAttr(o.Event)),
	)
	defer span.End()

	s := e.getOrCreate(o.Event)
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	if err := s.Write(ctx, message.Args(args)); err != nil {
		observability.SetSpanError(span, err)
		return false, err
	}
	return true, nil
}

// Once waits for a single event on the topic and hands it to the listener
func (e *Emitter) Once(
	ctx context.Context, o transport.OnceOptions, l transport.Listener,
) (transport.Outcome, error) {
	ctx, span := e.tracer.Start(ctx, observability.SpanOnce,
		trace.WithAttributes(observability.TopicAttr(o.Event)),
	)
	defer span.End()

	w := makeWait(e.getOrCreate(o.Event), o.Canceler, e.config)
	span.SetAttributes(attribute.String(observability.AttrWaitID, w.id.String()))

	args, out, err := w.run(ctx, e.timeout(o), o.Until)
	e.metrics.OnceOutcomes.WithLabelValues(o.Event, out.String()).Inc()
	span.SetAttributes(attribute.String(observability.AttrOutcome, out.String()))
	if err != nil {
		observability.SetSpanError(span, err)
	}
	e.config.Logger.Debug("once resolved",
		slog.String("topic", o.Event),
		slog.String("id", w.id.String()),
		slog.String("outcome", out.String()),
	)

	if l != nil {
		l(args...)
	}
	return out, err
}

// SetStream installs s under key
func (e *Emitter) SetStream(key string, s stream.Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.streams[key]; !ok {
		e.metrics.Streams.Inc()
	}
	e.streams[key] = s
}

// GetStream returns the stream held under key
func (e *Emitter) GetStream(key string) (stream.Stream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.streams[key]
	return s, ok
}

// ResetInternalStreams empties the registry. The streams themselves are
// left open, and their topics are not deleted
func (e *Emitter) ResetInternalStreams() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics.Streams.Sub(float64(len(e.streams)))
	e.streams = map[string]stream.Stream{}
}

// InternalStreamType returns the constructor used for new streams
func (e *Emitter) InternalStreamType() stream.Factory {
	return e.factory
}

func (e *Emitter) getOrCreate(key string) stream.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.streams[key]; ok {
		return s
	}
	s := e.factory(key, e.config.Capacity)
	e.streams[key] = s
	e.metrics.Streams.Inc()
	return s
}

// timeout returns the wait's duration, where a negative result means the
// wait has already expired
func (e *Emitter) timeout(o transport.OnceOptions) time.Duration {
	if o.Timeout == 0 {
		return e.config.DefaultTimeout
	}
	return o.Timeout
}
