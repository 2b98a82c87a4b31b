package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/kode4food/courier/cancel"
)

// watchInterrupt writes false to tok when the process is interrupted or
// ctx ends. The returned function stops watching
func watchInterrupt(ctx context.Context, tok *cancel.Token) func() {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			tok.Write(false)
		case <-done:
		}
	}()
	return func() {
		close(done)
		stop()
	}
}
