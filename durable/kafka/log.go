// Package kafka keeps each topic in partition 0 of a Kafka topic, which
// gives the total order a log stream relies on. Entry IDs carry the record
// offset plus one in Minor, so the zero ID still precedes every record.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/kode4food/courier/durable"
)

type (
	// Options configures Open
	Options struct {
		Brokers []string

		// FetchWait bounds how long a range read waits for records
		FetchWait time.Duration

		// ClientOpts are appended to every client the Log creates
		ClientOpts []kgo.Opt
	}

	// Log is a durable.Log stored in Kafka
	Log struct {
		producer producer
		reader   reader
		admin    admin
	}

	// producer abstracts the client methods used by Append
	producer interface {
		ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
		Close()
	}

	// reader returns up to max records of partition 0 starting at offset
	reader interface {
		read(
			ctx context.Context, topic string, offset int64, max int,
		) ([]*kgo.Record, error)
	}

	// admin abstracts the kadm client methods used by Delete
	admin interface {
		DeleteTopics(
			ctx context.Context, topics ...string,
		) (kadm.DeleteTopicResponses, error)
	}

	// partitionReader consumes with a short-lived client per read, so
	// that every stream can read from its own cursor
	partitionReader struct {
		opts []kgo.Opt
		wait time.Duration
	}
)

// DefaultFetchWait is used when Options leave FetchWait unset
const DefaultFetchWait = 250 * time.Millisecond

const partition int32 = 0

// ErrNoBrokers is returned when Options carry no seed brokers
var ErrNoBrokers = errors.New("kafka: at least one broker is required")

// Compile-time check for interface implementation
var _ durable.Log = (*Log)(nil)

// Open connects to the cluster
func Open(o Options) (*Log, error) {
	if len(o.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	wait := o.FetchWait
	if wait <= 0 {
		wait = DefaultFetchWait
	}
	base := append([]kgo.Opt{kgo.SeedBrokers(o.Brokers...)}, o.ClientOpts...)

	cl, err := kgo.NewClient(slices.Concat(base, []kgo.Opt{
		kgo.RecordPartitioner(kgo.ManualPartitioner()),
		kgo.AllowAutoTopicCreation(),
	})...)
	if err != nil {
		return nil, fmt.Errorf("kafka: client: %w", err)
	}
	return &Log{
		producer: cl,
		reader:   &partitionReader{opts: base, wait: wait},
		admin:    kadm.NewClient(cl),
	}, nil
}

// Close shuts down the producing client
func (l *Log) Close() error {
	l.producer.Close()
	return nil
}

// Append produces payload to partition 0 of the topic
func (l *Log) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	rec, err := l.producer.ProduceSync(ctx, &kgo.Record{
		Topic:     topic,
		Partition: partition,
		Value:     payload,
	}).First()
	if err != nil {
		return durable.Beginning, fmt.Errorf("kafka: produce: %w", err)
	}
	return durable.SeqID(uint64(rec.Offset) + 1), nil
}

// RangeRead returns up to max records following the after cursor
func (l *Log) RangeRead(
	ctx context.Context, topic string, after durable.ID, max int,
) ([]durable.Entry, error) {
	if max <= 0 || after.Major != 0 {
		return nil, nil
	}
	offset := int64(after.Minor)
	recs, err := l.reader.read(ctx, topic, offset, max)
	if err != nil {
		return nil, fmt.Errorf("kafka: fetch: %w", err)
	}

	res := make([]durable.Entry, 0, len(recs))
	for _, r := range recs {
		if r.Partition != partition || r.Offset < offset {
			continue
		}
		res = append(res, durable.Entry{
			ID:      durable.SeqID(uint64(r.Offset) + 1),
			Payload: r.Value,
		})
		if len(res) == max {
			break
		}
	}
	return res, nil
}

// Delete removes the Kafka topic. A topic that does not exist is already
// deleted
func (l *Log) Delete(ctx context.Context, topic string) error {
	resp, err := l.admin.DeleteTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("kafka: delete topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.UnknownTopicOrPartition) {
			return fmt.Errorf("kafka: delete topic %q: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *partitionReader) read(
	ctx context.Context, topic string, offset int64, max int,
) ([]*kgo.Record, error) {
	cl, err := kgo.NewClient(slices.Concat(p.opts, []kgo.Opt{
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
			topic: {partition: kgo.NewOffset().At(offset)},
		}),
	})...)
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(ctx, p.wait)
	defer cancel()
	fetches := cl.PollRecords(ctx, max)

	var res []*kgo.Record
	var fetchErr error
	fetches.EachError(func(_ string, _ int32, err error) {
		switch {
		case errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, context.Canceled),
			errors.Is(err, kerr.UnknownTopicOrPartition):
		default:
			fetchErr = errors.Join(fetchErr, err)
		}
	})
	if fetchErr != nil {
		return nil, fetchErr
	}
	fetches.EachRecord(func(r *kgo.Record) {
		res = append(res, r)
	})
	return res, nil
}
