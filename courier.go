package courier

import (
	"github.com/kode4food/courier/cancel"
	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/durable/memory"
	"github.com/kode4food/courier/internal/observability"
	streamImpl "github.com/kode4food/courier/internal/stream"
	transportImpl "github.com/kode4food/courier/internal/transport"
	"github.com/kode4food/courier/stream"
	"github.com/kode4food/courier/transport"
)

// NewEmitter instantiates a new transport Emitter backed by the provided
// durable Log
func NewEmitter(
	log durable.Log, o ...config.Option,
) (transport.Emitter, error) {
	return transportImpl.Make(log, o...)
}

// NewStream instantiates a standalone log Stream for a topic
func NewStream(
	topic string, log durable.Log, o ...config.Option,
) (stream.Stream, error) {
	cfg, err := config.Build(o...)
	if err != nil {
		return nil, err
	}
	m := observability.NewMetrics(cfg.Registerer)
	return streamImpl.Make(topic, cfg.Capacity, log, cfg, m), nil
}

// NewToken instantiates a cancellation Token holding the initial value
func NewToken(initial bool) *cancel.Token {
	return cancel.New(initial)
}

// NewMemoryLog instantiates an in-process durable Log
func NewMemoryLog() *memory.Log {
	return memory.New()
}
