// Package durable defines the capability a Log Stream needs from its
// backing store: an append-only, totally ordered log per topic that can be
// read after a cursor and deleted.
package durable

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Log is an append-only ordered store of entries, partitioned by topic
	Log interface {
		// Append adds a payload to the end of the topic's log and returns
		// the ID it was assigned
		Append(ctx context.Context, topic string, payload []byte) (ID, error)

		// RangeRead returns up to max entries whose IDs are strictly greater
		// than after, in log order. An empty result is not an error
		RangeRead(
			ctx context.Context, topic string, after ID, max int,
		) ([]Entry, error)

		// Delete discards the topic's contents
		Delete(ctx context.Context, topic string) error
	}

	// Entry is a single payload stored in a Log
	Entry struct {
		ID      ID
		Payload []byte
	}

	// ID orders the entries of a topic. The zero ID sorts before every
	// assigned ID and serves as the initial cursor. Sequence-based stores
	// only use Minor
	ID struct {
		Major uint64
		Minor uint64
	}
)

// ErrInvalidID is returned when an entry ID cannot be parsed
var ErrInvalidID = errors.New("invalid entry id")

// Beginning is the cursor that precedes every entry
var Beginning ID

// SeqID returns the ID for a simple sequence number
func SeqID(seq uint64) ID {
	return ID{Minor: seq}
}

// ParseID parses IDs in either "major-minor" or plain "seq" form
func ParseID(s string) (ID, error) {
	major, minor, found := strings.Cut(s, "-")
	if !found {
		seq, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		return SeqID(seq), nil
	}
	ma, err := strconv.ParseUint(major, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	mi, err := strconv.ParseUint(minor, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID{Major: ma, Minor: mi}, nil
}

// Compare returns -1, 0 or +1 depending on whether i sorts before, equal
// to, or after o
func (i ID) Compare(o ID) int {
	if c := cmp.Compare(i.Major, o.Major); c != 0 {
		return c
	}
	return cmp.Compare(i.Minor, o.Minor)
}

// IsZero reports whether the ID is the Beginning
func (i ID) IsZero() bool {
	return i == Beginning
}

// String renders the ID in "major-minor" form
func (i ID) String() string {
	return strconv.FormatUint(i.Major, 10) + "-" +
		strconv.FormatUint(i.Minor, 10)
}
