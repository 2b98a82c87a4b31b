// Package pebble stores topics in an embedded Pebble database. Each topic
// keeps its entries under a length-prefixed key range next to a metadata key
// holding the last assigned sequence, so sequences survive both restarts and
// topic deletion.
package pebble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/kode4food/courier/durable"
)

type (
	// Options configures Open
	Options struct {
		// Dir is the database directory
		Dir string

		// FS overrides the filesystem, vfs.NewMem() gives an in-memory store
		FS vfs.FS

		// Sync forces a WAL sync on every append
		Sync bool
	}

	// Log is a durable.Log kept in a Pebble database
	Log struct {
		db      *pebble.DB
		owned   bool
		write   *pebble.WriteOptions
		mu      sync.Mutex
		lastSeq map[string]uint64
	}
)

var (
	topicPrefix = []byte("t/")
	entryTag    = byte('e')
	metaTag     = byte('m')
)

// ErrDirRequired is returned when Options carry neither a Dir nor an FS
var ErrDirRequired = errors.New("pebble: directory is required")

// Compile-time check for interface implementation
var _ durable.Log = (*Log)(nil)

// Open opens or creates a database and returns a Log that owns it
func Open(o Options) (*Log, error) {
	if o.Dir == "" && o.FS == nil {
		return nil, ErrDirRequired
	}
	po := &pebble.Options{FS: o.FS}
	db, err := pebble.Open(o.Dir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %q: %w", o.Dir, err)
	}
	l := New(db, o.Sync)
	l.owned = true
	return l, nil
}

// New returns a Log over an already opened database. Closing the Log leaves
// the database open
func New(db *pebble.DB, sync bool) *Log {
	write := pebble.NoSync
	if sync {
		write = pebble.Sync
	}
	return &Log{
		db:      db,
		write:   write,
		lastSeq: map[string]uint64{},
	}
}

// Close closes the database if the Log opened it
func (l *Log) Close() error {
	if !l.owned {
		return nil
	}
	return l.db.Close()
}

// Append stores payload under the topic's next sequence number
func (l *Log) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	if err := ctx.Err(); err != nil {
		return durable.Beginning, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	last, err := l.last(topic)
	if err != nil {
		return durable.Beginning, err
	}
	seq := last + 1

	b := l.db.NewBatch()
	defer b.Close()
	if err := b.Set(entryKey(topic, seq), payload, nil); err != nil {
		return durable.Beginning, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(metaKey(topic), meta[:], nil); err != nil {
		return durable.Beginning, err
	}
	if err := b.Commit(l.write); err != nil {
		return durable.Beginning, fmt.Errorf("pebble: commit: %w", err)
	}
	l.lastSeq[topic] = seq
	return durable.SeqID(seq), nil
}

// RangeRead returns up to max entries following the after cursor
func (l *Log) RangeRead(
	ctx context.Context, topic string, after durable.ID, max int,
) ([]durable.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max <= 0 || after.Major != 0 || after.Minor == math.MaxUint64 {
		return nil, nil
	}

	it, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: entryKey(topic, after.Minor+1),
		UpperBound: entryBound(topic),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble: iterate: %w", err)
	}
	defer it.Close()

	var res []durable.Entry
	for ok := it.First(); ok && len(res) < max; ok = it.Next() {
		key := it.Key()
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		res = append(res, durable.Entry{
			ID:      durable.SeqID(seq),
			Payload: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("pebble: iterate: %w", err)
	}
	return res, nil
}

// Delete removes every entry of the topic, keeping its sequence metadata
func (l *Log) Delete(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := entryKey(topic, 0)
	if err := l.db.DeleteRange(start, entryBound(topic), l.write); err != nil {
		return fmt.Errorf("pebble: delete range: %w", err)
	}
	return nil
}

// last returns the topic's last assigned sequence. l.mu must be held
func (l *Log) last(topic string) (uint64, error) {
	if seq, ok := l.lastSeq[topic]; ok {
		return seq, nil
	}
	val, closer, err := l.db.Get(metaKey(topic))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pebble: read meta: %w", err)
	}
	defer func() { _ = closer.Close() }()
	if len(val) < 8 {
		return 0, fmt.Errorf("pebble: corrupt meta for topic %q", topic)
	}
	seq := binary.BigEndian.Uint64(val[:8])
	l.lastSeq[topic] = seq
	return seq, nil
}

func prefix(topic string, extra int) []byte {
	k := make([]byte, 0, len(topicPrefix)+4+len(topic)+1+extra)
	k = append(k, topicPrefix...)
	k = binary.BigEndian.AppendUint32(k, uint32(len(topic)))
	return append(k, topic...)
}

func entryKey(topic string, seq uint64) []byte {
	k := append(prefix(topic, 8), entryTag)
	return binary.BigEndian.AppendUint64(k, seq)
}

func entryBound(topic string) []byte {
	return append(prefix(topic, 0), entryTag+1)
}

func metaKey(topic string) []byte {
	return append(prefix(topic, 0), metaTag)
}
