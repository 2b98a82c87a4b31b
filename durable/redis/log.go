// Package redis keeps each topic in a Redis Stream. Entries are appended
// with XADD under a single "event" field, read with non-blocking XREAD
// after the cursor, and a topic is deleted by removing its key.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kode4food/courier/durable"
)

type (
	// Client is the subset of the go-redis client the Log needs.
	// *goredis.Client and goredis.UniversalClient both satisfy it
	Client interface {
		XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
		XRead(ctx context.Context, a *goredis.XReadArgs) *goredis.XStreamSliceCmd
		Del(ctx context.Context, keys ...string) *goredis.IntCmd
	}

	// Log is a durable.Log stored in Redis Streams
	Log struct {
		client Client
		prefix string
		closer func() error
	}

	// Option configures a Log
	Option func(*Log)
)

// EventField is the stream entry field holding the encoded payload
const EventField = "event"

// ErrBadEntry is returned when a stream entry lacks a usable event field
var ErrBadEntry = errors.New("redis: malformed stream entry")

// Compile-time check for interface implementation
var _ durable.Log = (*Log)(nil)

// WithPrefix namespaces every topic key
func WithPrefix(p string) Option {
	return func(l *Log) {
		l.prefix = p
	}
}

// New returns a Log using an existing client. Closing the Log leaves the
// client open
func New(c Client, o ...Option) *Log {
	l := &Log{client: c}
	for _, fn := range o {
		fn(l)
	}
	return l
}

// Dial connects to the Redis server described by url (redis://...) and
// returns a Log that owns the connection
func Dial(url string, o ...Option) (*Log, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := goredis.NewClient(opts)
	l := New(c, o...)
	l.closer = c.Close
	return l, nil
}

// Close releases the connection if the Log opened it
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

// Append adds payload to the topic's stream
func (l *Log) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	res, err := l.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: l.key(topic),
		Values: []any{EventField, payload},
	}).Result()
	if err != nil {
		return durable.Beginning, fmt.Errorf("redis: xadd: %w", err)
	}
	return durable.ParseID(res)
}

// RangeRead returns up to max entries following the after cursor without
// blocking
func (l *Log) RangeRead(
	ctx context.Context, topic string, after durable.ID, max int,
) ([]durable.Entry, error) {
	if max <= 0 {
		return nil, nil
	}
	cursor := "0"
	if !after.IsZero() {
		cursor = after.String()
	}
	streams, err := l.client.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{l.key(topic), cursor},
		Count:   int64(max),
		Block:   -1,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: xread: %w", err)
	}

	var res []durable.Entry
	for _, s := range streams {
		for _, m := range s.Messages {
			e, err := toEntry(m)
			if err != nil {
				return nil, err
			}
			res = append(res, e)
		}
	}
	return res, nil
}

// Delete removes the topic's stream
func (l *Log) Delete(ctx context.Context, topic string) error {
	if err := l.client.Del(ctx, l.key(topic)).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

func (l *Log) key(topic string) string {
	return l.prefix + topic
}

func toEntry(m goredis.XMessage) (durable.Entry, error) {
	id, err := durable.ParseID(m.ID)
	if err != nil {
		return durable.Entry{}, err
	}
	var payload []byte
	switch v := m.Values[EventField].(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return durable.Entry{}, fmt.Errorf("%w: %s", ErrBadEntry, m.ID)
	}
	return durable.Entry{ID: id, Payload: payload}, nil
}
