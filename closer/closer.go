package closer

// Closer is any resource that can be closed once and observed for closure
type Closer interface {
	// Close releases the resource. Calling it more than once has no effect
	Close()

	// IsClosed returns a channel that is closed when the resource is
	IsClosed() <-chan struct{}
}

// IsClosed reports whether the provided Closer has already been closed
func IsClosed(c Closer) bool {
	select {
	case <-c.IsClosed():
		return true
	default:
		return false
	}
}
