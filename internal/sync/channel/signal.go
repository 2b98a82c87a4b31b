package channel

import "sync"

// Signal is a broadcast readiness notification. Every receiver holding a
// channel returned by Wait is released by the next call to Notify. Unlike a
// Cond, the channel can participate in a select. Receivers that call Wait
// after a Notify are not released by it
type Signal struct {
	ready  chan struct{}
	mu     sync.Mutex
	closed bool
}

// MakeSignal returns a new Signal
func MakeSignal() *Signal {
	return &Signal{
		ready: make(chan struct{}),
	}
}

// Wait returns the channel that will be closed by the next Notify
func (s *Signal) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Notify releases every current waiter without blocking the caller
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.ready)
	s.ready = make(chan struct{})
}

// Close releases every current and future waiter. Subsequent calls to Notify
// and Close have no effect
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ready)
}
