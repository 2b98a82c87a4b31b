package stream

import (
	"sync"

	"github.com/kode4food/courier/closer"
)

// Closer closes exactly once, running its onClose hook after the closed
// channel has been closed
type Closer struct {
	closed  chan struct{}
	once    sync.Once
	onClose func()
}

func makeCloser(onClose func()) closer.Closer {
	return &Closer{
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

func (c *Closer) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.onClose != nil {
			c.onClose()
		}
	})
}

func (c *Closer) IsClosed() <-chan struct{} {
	return c.closed
}
