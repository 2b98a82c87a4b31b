package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/kode4food/courier/closer"
	"github.com/kode4food/courier/durable"
	"github.com/kode4food/courier/message"
)

type (
	// Stream is a bidirectional, backpressured view of one durable topic.
	// Writes append to the topic. Reads drain a bounded buffer that is
	// refilled from the topic on demand, starting after the Stream's own
	// cursor. A Stream is safe for concurrent use
	Stream interface {
		closer.Closer

		// Topic returns the name of the durable topic
		Topic() string

		// Cursor returns the ID of the last entry fetched into the buffer
		Cursor() durable.ID

		// Buffered returns the number of values waiting to be read
		Buffered() int

		// Capacity returns the buffer's high-water mark
		Capacity() int

		// Write encodes args and appends them to the topic
		Write(ctx context.Context, args message.Args) error

		// Read removes up to n values from the buffer. When the buffer is
		// empty, one range read is performed first. An empty result means
		// nothing is available right now
		Read(ctx context.Context, n int) ([]message.Args, error)

		// Fill fetches into the buffer without consuming anything and
		// returns the number of values added
		Fill(ctx context.Context) (int, error)

		// Readable returns a channel that is closed the next time values
		// are added to the buffer
		Readable() <-chan struct{}

		// Appended returns a channel that is closed the next time Write
		// succeeds on this Stream
		Appended() <-chan struct{}

		// Errors returns a channel that receives the error that moved the
		// Stream into its failed state. At most one error is ever sent
		Errors() <-chan error
	}

	// Factory constructs a Stream for a topic with the given capacity
	Factory func(topic string, capacity int) Stream

	// AppendError reports a failed append to the durable log
	AppendError struct {
		Topic string
		Err   error
	}

	// FetchError reports a failed range read, or an entry that could not
	// be decoded
	FetchError struct {
		Topic string
		Err   error
	}
)

// Error messages
var (
	ErrClosed = errors.New("stream is closed")
	ErrFailed = errors.New("stream has failed")
)

func (e *AppendError) Error() string {
	return fmt.Sprintf("append to topic %q: %s", e.Topic, e.Err)
}

func (e *AppendError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from topic %q: %s", e.Topic, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
