package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kode4food/courier/cancel"
	"github.com/kode4food/courier/transport"
)

// ErrTimedOut is returned when once gives up waiting for an event
var ErrTimedOut = errors.New("timed out waiting for event")

func newOnceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once <topic>",
		Short: "Wait for events on a topic and print their args as JSON",
		Long: `Wait for events on a topic and print the args of each as a JSON array,
one per line. Every run reads the topic from its beginning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			count, _ := cmd.Flags().GetInt("count")
			topic := args[0]

			ctx := cmd.Context()
			tok := cancel.New(true)
			stop := watchInterrupt(ctx, tok)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return a.withEmitter(func(e transport.Emitter) error {
				for i := 0; i < count; i++ {
					var encErr error
					out, err := e.Once(ctx, transport.OnceOptions{
						Event:    topic,
						Canceler: tok,
						Timeout:  timeout,
					}, func(args ...any) {
						if len(args) == 0 {
							return
						}
						encErr = enc.Encode(args)
					})
					if err != nil {
						return err
					}
					switch out {
					case transport.Delivered:
						if encErr != nil {
							return encErr
						}
					case transport.Cancelled:
						return nil
					default:
						return fmt.Errorf("%w on %s", ErrTimedOut, topic)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Duration("timeout", 0, "how long to wait for each event (0 = configured default)")
	cmd.Flags().IntP("count", "n", 1, "number of events to receive")
	return cmd
}
