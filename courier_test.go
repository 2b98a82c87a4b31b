package courier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier"
	"github.com/kode4food/courier/config"
	"github.com/kode4food/courier/transport"
)

func TestEmitThenOnce(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()

	e, err := courier.NewEmitter(courier.NewMemoryLog())
	as.NoError(err)

	ok, err := e.Emit(ctx, transport.EmitOptions{Event: "greeting"}, "hello", 42)
	as.NoError(err)
	as.True(ok)

	var got []any
	out, err := e.Once(ctx, transport.OnceOptions{Event: "greeting"},
		func(args ...any) { got = args },
	)
	as.NoError(err)
	as.Equal(transport.Delivered, out)
	as.Equal([]any{"hello", 42.0}, got)
}

func TestNewEmitterBadOption(t *testing.T) {
	as := assert.New(t)
	e, err := courier.NewEmitter(courier.NewMemoryLog(), config.Capacity(-1))
	as.Nil(e)
	as.ErrorIs(err, config.ErrInvalidCapacity)
}

func TestNewStream(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	log := courier.NewMemoryLog()

	s, err := courier.NewStream("standalone", log, config.Capacity(4))
	as.NoError(err)
	as.Equal(4, s.Capacity())
	as.NoError(s.Write(ctx, []any{"x"}))
	as.Equal(1, log.Length("standalone"))

	s.Close()
	as.Equal(0, log.Length("standalone"))

	_, err = courier.NewStream("bad", log, config.Ephemeral, config.Durable)
	as.ErrorIs(err, config.ErrRetentionAlreadySet)
}

func TestTokenCancelsOnce(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	e, err := courier.NewEmitter(courier.NewMemoryLog())
	as.NoError(err)

	tok := courier.NewToken(true)
	time.AfterFunc(10*time.Millisecond, func() { tok.Write(false) })

	calls := 0
	out, err := e.Once(ctx, transport.OnceOptions{
		Event:    "never",
		Canceler: tok,
		Timeout:  time.Minute,
	}, func(args ...any) {
		calls++
		as.Empty(args)
	})
	as.NoError(err)
	as.Equal(transport.Cancelled, out)
	as.Equal(1, calls)
}
