package pebble_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/durable/pebble"
)

func openMem(t *testing.T, fs vfs.FS) *pebble.Log {
	t.Helper()
	l, err := pebble.Open(pebble.Options{Dir: "courier", FS: fs})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestOpenRequiresDir(t *testing.T) {
	as := assert.New(t)
	_, err := pebble.Open(pebble.Options{})
	as.ErrorIs(err, pebble.ErrDirRequired)
}

func TestAppendRangeRead(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := openMem(t, vfs.NewMem())
	defer func() { as.NoError(l.Close()) }()

	for _, p := range []string{"a", "b", "c"} {
		_, err := l.Append(ctx, "topic", []byte(p))
		as.NoError(err)
	}
	_, err := l.Append(ctx, "topic-2", []byte("other"))
	as.NoError(err)

	res, err := l.RangeRead(ctx, "topic", durable.Beginning, 2)
	as.NoError(err)
	as.Len(res, 2)
	as.Equal(durable.SeqID(1), res[0].ID)
	as.Equal([]byte("b"), res[1].Payload)

	res, err = l.RangeRead(ctx, "topic", res[1].ID, 10)
	as.NoError(err)
	as.Len(res, 1)
	as.Equal([]byte("c"), res[0].Payload)

	res, err = l.RangeRead(ctx, "topic", res[0].ID, 10)
	as.NoError(err)
	as.Empty(res)

	res, err = l.RangeRead(ctx, "topic-2", durable.Beginning, 10)
	as.NoError(err)
	as.Len(res, 1)
	as.Equal(durable.SeqID(1), res[0].ID)
}

func TestTopicPrefixesDoNotOverlap(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := openMem(t, vfs.NewMem())
	defer func() { _ = l.Close() }()

	_, _ = l.Append(ctx, "ab", []byte("1"))
	_, _ = l.Append(ctx, "a", []byte("2"))

	res, err := l.RangeRead(ctx, "a", durable.Beginning, 10)
	as.NoError(err)
	as.Len(res, 1)
	as.Equal([]byte("2"), res[0].Payload)
}

func TestDeleteKeepsSequence(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	l := openMem(t, vfs.NewMem())
	defer func() { _ = l.Close() }()

	_, _ = l.Append(ctx, "t", []byte("a"))
	last, _ := l.Append(ctx, "t", []byte("b"))
	as.NoError(l.Delete(ctx, "t"))

	res, err := l.RangeRead(ctx, "t", durable.Beginning, 10)
	as.NoError(err)
	as.Empty(res)

	id, err := l.Append(ctx, "t", []byte("c"))
	as.NoError(err)
	as.Equal(1, id.Compare(last))
}

func TestSequenceSurvivesReopen(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	fs := vfs.NewMem()

	l := openMem(t, fs)
	_, _ = l.Append(ctx, "t", []byte("a"))
	_, _ = l.Append(ctx, "t", []byte("b"))
	as.NoError(l.Close())

	l = openMem(t, fs)
	defer func() { _ = l.Close() }()
	id, err := l.Append(ctx, "t", []byte("c"))
	as.NoError(err)
	as.Equal(durable.SeqID(3), id)

	res, err := l.RangeRead(ctx, "t", durable.SeqID(1), 10)
	as.NoError(err)
	as.Len(res, 2)
}

func TestCancelledContext(t *testing.T) {
	as := assert.New(t)
	l := openMem(t, vfs.NewMem())
	defer func() { _ = l.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Append(ctx, "t", nil)
	as.ErrorIs(err, context.Canceled)
	_, err = l.RangeRead(ctx, "t", durable.Beginning, 1)
	as.ErrorIs(err, context.Canceled)
	as.ErrorIs(l.Delete(ctx, "t"), context.Canceled)
}
