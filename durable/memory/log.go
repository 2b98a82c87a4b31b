// Package memory provides an in-process durable.Log. Entries survive for the
// life of the Log value only; it is meant for tests, single-process wiring,
// and as a reference for the other backends.
package memory

import (
	"context"
	"sync"

	"github.com/kode4food/courier/durable"
)

type (
	// Log manages a set of topics, each made of a chain of fixed-capacity
	// segments holding log entries
	Log struct {
		topics      map[string]*topicLog
		segmentSize uint32
		mu          sync.RWMutex
	}

	topicLog struct {
		head    *segment
		tail    *segment
		start   uint64 // sequence of the last discarded entry
		lastSeq uint64
		mu      sync.RWMutex
	}

	// segment holds a contiguous run of entries beginning at first
	segment struct {
		next    *segment
		first   uint64
		entries []durable.Entry
	}
)

// DefaultSegmentSize is the number of entries allocated per segment
const DefaultSegmentSize = 256

// Compile-time check for interface implementation
var _ durable.Log = (*Log)(nil)

// New returns an empty Log using the default segment size
func New() *Log {
	return NewWithSegmentSize(DefaultSegmentSize)
}

// NewWithSegmentSize returns an empty Log whose segments hold size entries
func NewWithSegmentSize(size uint32) *Log {
	if size == 0 {
		size = DefaultSegmentSize
	}
	return &Log{
		topics:      map[string]*topicLog{},
		segmentSize: size,
	}
}

// Append adds a copy of payload to the topic and returns its sequence ID
func (l *Log) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	if err := ctx.Err(); err != nil {
		return durable.Beginning, err
	}
	t := l.topic(topic, true)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeq++
	e := durable.Entry{
		ID:      durable.SeqID(t.lastSeq),
		Payload: append([]byte(nil), payload...),
	}
	tail := t.tail
	if tail == nil || len(tail.entries) == cap(tail.entries) {
		s := &segment{
			first:   t.lastSeq,
			entries: make([]durable.Entry, 0, l.segmentSize),
		}
		if tail == nil {
			t.head = s
		} else {
			tail.next = s
		}
		t.tail = s
		tail = s
	}
	tail.entries = append(tail.entries, e)
	return e.ID, nil
}

// RangeRead returns up to max entries that follow the after cursor. If the
// cursor precedes discarded entries, reading resumes at the first retained
func (l *Log) RangeRead(
	ctx context.Context, topic string, after durable.ID, max int,
) ([]durable.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := l.topic(topic, false)
	if t == nil || max <= 0 {
		return nil, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	next := after.Minor + 1
	if after.Major != 0 || next == 0 {
		return nil, nil
	}
	if next <= t.start {
		next = t.start + 1
	}

	var res []durable.Entry
	for curr := t.head; curr != nil && len(res) < max; curr = curr.next {
		last := curr.first + uint64(len(curr.entries))
		if next >= last {
			continue
		}
		if next < curr.first {
			next = curr.first
		}
		for i := next - curr.first; i < uint64(len(curr.entries)); i++ {
			res = append(res, curr.entries[i])
			if len(res) == max {
				break
			}
		}
		next = last
	}
	return res, nil
}

// Delete discards every entry of the topic. Sequence numbers keep
// increasing so that existing cursors never observe reused IDs
func (l *Log) Delete(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := l.topic(topic, false)
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.head = nil
	t.tail = nil
	t.start = t.lastSeq
	return nil
}

// Length returns the number of retained entries in the topic
func (l *Log) Length(topic string) int {
	t := l.topic(topic, false)
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(t.lastSeq - t.start)
}

func (l *Log) topic(name string, create bool) *topicLog {
	l.mu.RLock()
	t, ok := l.topics[name]
	l.mu.RUnlock()
	if ok || !create {
		return t
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.topics[name]; ok {
		return t
	}
	t = &topicLog{}
	l.topics[name] = t
	return t
}
