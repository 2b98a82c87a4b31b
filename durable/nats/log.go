// Package nats keeps each topic in its own JetStream stream. Stream
// sequence numbers serve as entry IDs, and deleting a topic purges its
// stream so that sequences keep increasing.
package nats

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/kode4food/courier/durable"
)

type (
	// Options configures Dial
	Options struct {
		URL      string
		Storage  nats.StorageType
		Replicas int
	}

	// Log is a durable.Log stored in NATS JetStream
	Log struct {
		conn     *nats.Conn
		js       nats.JetStreamContext
		storage  nats.StorageType
		replicas int

		mu      sync.Mutex
		ensured map[string]bool
	}
)

// Naming of the JetStream streams and subjects that back topics
const (
	StreamPrefix  = "COURIER_"
	SubjectPrefix = "courier."
)

// Compile-time check for interface implementation
var _ durable.Log = (*Log)(nil)

// Dial connects to the server and returns a Log that owns the connection
func Dial(o Options) (*Log, error) {
	url := o.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats: jetstream context: %w", err)
	}
	replicas := o.Replicas
	if replicas <= 0 {
		replicas = 1
	}
	return &Log{
		conn:     nc,
		js:       js,
		storage:  o.Storage,
		replicas: replicas,
		ensured:  map[string]bool{},
	}, nil
}

// Close drains nothing and closes the connection
func (l *Log) Close() error {
	l.conn.Close()
	return nil
}

// Append publishes payload to the topic's stream, creating it if needed
func (l *Log) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	if err := l.ensure(ctx, topic); err != nil {
		return durable.Beginning, err
	}
	ack, err := l.js.Publish(subjectName(topic), payload, nats.Context(ctx))
	if err != nil {
		return durable.Beginning, fmt.Errorf("nats: publish: %w", err)
	}
	return durable.SeqID(ack.Sequence), nil
}

// RangeRead fetches up to limit messages following the after cursor
func (l *Log) RangeRead(
	ctx context.Context, topic string, after durable.ID, limit int,
) ([]durable.Entry, error) {
	if limit <= 0 || after.Major != 0 {
		return nil, nil
	}
	name := streamName(topic)
	info, err := l.js.StreamInfo(name, nats.Context(ctx))
	if errors.Is(err, nats.ErrStreamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nats: stream info: %w", err)
	}

	seq := max(after.Minor+1, info.State.FirstSeq)
	var res []durable.Entry
	for ; seq <= info.State.LastSeq && len(res) < limit; seq++ {
		m, err := l.js.GetMsg(name, seq, nats.Context(ctx))
		if errors.Is(err, nats.ErrMsgNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("nats: get message %d: %w", seq, err)
		}
		res = append(res, durable.Entry{
			ID:      durable.SeqID(m.Sequence),
			Payload: m.Data,
		})
	}
	return res, nil
}

// Delete purges the topic's stream
func (l *Log) Delete(ctx context.Context, topic string) error {
	err := l.js.PurgeStream(streamName(topic), nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("nats: purge: %w", err)
	}
	return nil
}

func (l *Log) ensure(ctx context.Context, topic string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ensured[topic] {
		return nil
	}
	_, err := l.js.AddStream(&nats.StreamConfig{
		Name:     streamName(topic),
		Subjects: []string{subjectName(topic)},
		Storage:  l.storage,
		Replicas: l.replicas,
	}, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("nats: add stream: %w", err)
	}
	l.ensured[topic] = true
	return nil
}

// Topic names may hold characters that stream names and subjects reject
func streamName(topic string) string {
	return StreamPrefix + hex.EncodeToString([]byte(topic))
}

func subjectName(topic string) string {
	return SubjectPrefix + hex.EncodeToString([]byte(topic))
}
