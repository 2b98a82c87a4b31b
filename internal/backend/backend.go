// Package backend opens the durable log and codec that a set of settings
// describes
package backend

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/durable/kafka"
	"github.com/kode4food/courier/durable/memory"
	"github.com/kode4food/courier/durable/nats"
	"github.com/kode4food/courier/durable/pebble"
	"github.com/kode4food/courier/durable/redis"
	"github.com/kode4food/courier/internal/settings"
	"github.com/kode4food/courier/message"
)

// Log is a durable.Log that holds resources until it is closed
type Log interface {
	durable.Log
	Close() error
}

type memoryLog struct {
	*memory.Log
}

// Open returns the durable Log selected by the settings
func Open(s settings.Settings) (Log, error) {
	var l Log
	var err error
	switch s.Backend {
	case settings.BackendMemory:
		l = memoryLog{memory.New()}
	case settings.BackendRedis:
		l, err = redis.Dial(s.Redis.URL, redis.WithPrefix(s.Redis.Prefix))
	case settings.BackendPebble:
		l, err = pebble.Open(pebble.Options{
			Dir:  s.Pebble.Dir,
			Sync: s.Pebble.Sync,
		})
	case settings.BackendKafka:
		l, err = kafka.Open(kafka.Options{
			Brokers:   s.Kafka.Brokers,
			FetchWait: s.Kafka.FetchWait,
		})
	case settings.BackendNATS:
		l, err = nats.Dial(nats.Options{URL: s.NATS.URL})
	default:
		err = fmt.Errorf("unknown backend %q", s.Backend)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Codec returns the payload codec selected by the settings
func Codec(s settings.Settings) (message.Codec, error) {
	switch s.Codec {
	case settings.CodecJSON:
		return message.JSON, nil
	case settings.CodecCloudEvents:
		return message.CloudEvents(s.Source)
	default:
		return nil, fmt.Errorf("unknown codec %q", s.Codec)
	}
}

// Options translates the settings into emitter and stream options
func Options(
	s settings.Settings, logger *slog.Logger,
	reg prometheus.Registerer, tracer trace.Tracer,
) ([]config.Option, error) {
	codec, err := Codec(s)
	if err != nil {
		return nil, err
	}
	retention := config.Ephemeral
	if s.Retain {
		retention = config.Durable
	}
	return []config.Option{
		config.Capacity(s.Capacity),
		config.Timeout(s.Timeout),
		config.IOTimeout(s.IOTimeout),
		config.Codec(codec),
		config.Logger(logger),
		config.Metrics(reg),
		config.Tracer(tracer),
		retention,
	}, nil
}

func (memoryLog) Close() error {
	return nil
}
