package testing

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// SlogCapture is a slog.Handler that keeps the records it receives so that
// tests can wait for a particular message
type SlogCapture struct {
	Logs     chan slog.Record
	minLevel slog.Leveler
}

// NewSlogCapture returns a handler that captures records at or above level
func NewSlogCapture(level slog.Level) *SlogCapture {
	return &SlogCapture{
		Logs:     make(chan slog.Record, 64),
		minLevel: level,
	}
}

// Install makes the capture the default logger until the returned function
// is called
func (h *SlogCapture) Install() func() {
	old := slog.Default()
	slog.SetDefault(slog.New(h))
	return func() { slog.SetDefault(old) }
}

// WaitFor returns the first record whose message contains substr. The poll
// function runs between checks, and ok is false if nothing matched in time
func (h *SlogCapture) WaitFor(
	substr string, timeout time.Duration, poll func(),
) (slog.Record, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case r := <-h.Logs:
			if strings.Contains(r.Message, substr) {
				return r, true
			}
		case <-deadline:
			return slog.Record{}, false
		case <-time.After(10 * time.Millisecond):
			if poll != nil {
				poll()
			}
		}
	}
}

func (h *SlogCapture) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel.Level()
}

func (h *SlogCapture) Handle(_ context.Context, r slog.Record) error {
	select {
	case h.Logs <- r:
	default:
	}
	return nil
}

func (h *SlogCapture) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *SlogCapture) WithGroup(_ string) slog.Handler {
	return h
}
