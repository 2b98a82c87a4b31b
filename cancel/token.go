// Package cancel provides a shared boolean cell that independent call sites
// can read and write, broadcasting every write to the callers currently
// watching it.
package cancel

import (
	"sync"

	"github.com/kode4food/courier/internal/sync/channel"
)

// Token is a shared cancellation cell. A Token holding true is "live"; any
// holder may write false to ask cooperating operations to stand down. Writes
// are last-write-wins and are broadcast to current watchers only
type Token struct {
	mu      sync.Mutex
	value   bool
	changed *channel.Signal
}

// New returns a Token holding the initial value
func New(initial bool) *Token {
	return &Token{
		value:   initial,
		changed: channel.MakeSignal(),
	}
}

// Read returns the current value without changing it. A nil Token is
// always live
func (t *Token) Read() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Write replaces the value and broadcasts the change to every caller
// currently waiting on Changed, even if the value is the same
func (t *Token) Write(value bool) {
	t.mu.Lock()
	t.value = value
	t.mu.Unlock()
	t.changed.Notify()
}

// Changed returns a channel that is closed by the next Write. A nil Token
// returns a nil channel, which never fires
func (t *Token) Changed() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.changed.Wait()
}
