package nats_test

import (
	"context"
	"testing"
	"time"

	natsd "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/durable/nats"
)

func startServer(t *testing.T) string {
	t.Helper()
	s, err := natsd.NewServer(&natsd.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

func dial(t *testing.T) *nats.Log {
	t.Helper()
	l, err := nats.Dial(nats.Options{URL: startServer(t)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAppendRangeRead(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := dial(t)

	for _, p := range []string{"a", "b", "c"} {
		_, err := l.Append(ctx, "orders/new", []byte(p))
		as.NoError(err)
	}

	res, err := l.RangeRead(ctx, "orders/new", durable.Beginning, 2)
	as.NoError(err)
	as.Len(res, 2)
	as.Equal(durable.SeqID(1), res[0].ID)
	as.Equal([]byte("b"), res[1].Payload)

	res, err = l.RangeRead(ctx, "orders/new", res[1].ID, 10)
	as.NoError(err)
	as.Len(res, 1)
	as.Equal([]byte("c"), res[0].Payload)

	res, err = l.RangeRead(ctx, "orders/new", res[0].ID, 10)
	as.NoError(err)
	as.Empty(res)
}

func TestUnknownTopic(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := dial(t)

	res, err := l.RangeRead(ctx, "missing", durable.Beginning, 5)
	as.NoError(err)
	as.Empty(res)
	as.NoError(l.Delete(ctx, "missing"))
}

func TestPurgeKeepsSequence(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := dial(t)

	_, _ = l.Append(ctx, "t", []byte("a"))
	last, _ := l.Append(ctx, "t", []byte("b"))
	as.NoError(l.Delete(ctx, "t"))

	res, err := l.RangeRead(ctx, "t", durable.Beginning, 10)
	as.NoError(err)
	as.Empty(res)

	id, err := l.Append(ctx, "t", []byte("c"))
	as.NoError(err)
	as.Equal(1, id.Compare(last))

	res, err = l.RangeRead(ctx, "t", durable.Beginning, 10)
	as.NoError(err)
	as.Len(res, 1)
	as.Equal([]byte("c"), res[0].Payload)
}
