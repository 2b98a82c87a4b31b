package backend_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/internal/backend"
	"github.com/kode4food/courier/internal/observability"
	"github.com/kode4food/courier/internal/settings"
	"github.com/kode4food/courier/message"
)

func TestOpenMemory(t *testing.T) {
	as := assert.New(t)
	s := settings.Defaults()
	s.Backend = settings.BackendMemory

	l, err := backend.Open(s)
	as.NoError(err)
	defer func() { as.NoError(l.Close()) }()

	_, err = l.Append(context.Background(), "t", []byte("[]"))
	as.NoError(err)
}

func TestOpenPebble(t *testing.T) {
	as := assert.New(t)
	s := settings.Defaults()
	s.Pebble.Dir = filepath.Join(t.TempDir(), "data")

	l, err := backend.Open(s)
	as.NoError(err)
	defer func() { as.NoError(l.Close()) }()

	ctx := context.Background()
	_, err = l.Append(ctx, "t", []byte("[1]"))
	as.NoError(err)
	res, err := l.RangeRead(ctx, "t", durable.Beginning, 1)
	as.NoError(err)
	as.Len(res, 1)
}

func TestOpenUnknown(t *testing.T) {
	as := assert.New(t)
	s := settings.Defaults()
	s.Backend = "tape"
	_, err := backend.Open(s)
	as.Error(err)
}

func TestCodec(t *testing.T) {
	as := assert.New(t)
	s := settings.Defaults()

	c, err := backend.Codec(s)
	as.NoError(err)
	as.Equal(message.JSON, c)

	s.Codec = settings.CodecCloudEvents
	c, err = backend.Codec(s)
	as.NoError(err)
	b, err := c.Encode(message.Args{"x"})
	as.NoError(err)
	as.Contains(string(b), message.EventType)

	s.Codec = "morse"
	_, err = backend.Codec(s)
	as.Error(err)
}

func TestOptions(t *testing.T) {
	as := assert.New(t)
	s := settings.Defaults()
	s.Retain = true
	s.Capacity = 7

	o, err := backend.Options(s, slog.Default(),
		prometheus.NewRegistry(), observability.NoopTracer(),
	)
	as.NoError(err)

	cfg, err := config.Build(o...)
	as.NoError(err)
	as.Equal(7, cfg.Capacity)
	as.Equal(config.RetainOnClose, cfg.Retention)
	as.Equal(s.Timeout, cfg.DefaultTimeout)
	as.NotNil(cfg.Tracer)
}
