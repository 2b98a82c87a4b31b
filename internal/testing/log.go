package testing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kode4food/courier/durable"
)

// SpyLog wraps a durable.Log, counting calls and optionally failing them
type SpyLog struct {
	durable.Log
	Appends    atomic.Int32
	RangeReads atomic.Int32
	Deletes    atomic.Int32

	mu        sync.Mutex
	appendErr error
	rangeErr  error
	deleteErr error
	rangeHook func()
}

// NewSpyLog wraps the provided Log
func NewSpyLog(l durable.Log) *SpyLog {
	return &SpyLog{Log: l}
}

// FailAppends causes every subsequent Append to return err
func (s *SpyLog) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

// FailRangeReads causes every subsequent RangeRead to return err
func (s *SpyLog) FailRangeReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeErr = err
}

// FailDeletes causes every subsequent Delete to return err
func (s *SpyLog) FailDeletes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// OnRangeRead installs a hook that runs before each RangeRead reaches the
// wrapped Log
func (s *SpyLog) OnRangeRead(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeHook = fn
}

func (s *SpyLog) Append(
	ctx context.Context, topic string, payload []byte,
) (durable.ID, error) {
	s.Appends.Add(1)
	s.mu.Lock()
	err := s.appendErr
	s.mu.Unlock()
	if err != nil {
		return durable.Beginning, err
	}
	return s.Log.Append(ctx, topic, payload)
}

func (s *SpyLog) RangeRead(
	ctx context.Context, topic string, after durable.ID, max int,
) ([]durable.Entry, error) {
	s.RangeReads.Add(1)
	s.mu.Lock()
	err := s.rangeErr
	hook := s.rangeHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return s.Log.RangeRead(ctx, topic, after, max)
}

func (s *SpyLog) Delete(ctx context.Context, topic string) error {
	s.Deletes.Add(1)
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Log.Delete(ctx, topic)
}
