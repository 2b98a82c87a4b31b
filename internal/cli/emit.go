package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kode4food/courier/transport"
)

func newEmitCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit <topic> [arg...]",
		Short: "Append one event to a topic",
		Long: `Append one event to a topic. Each argument that parses as JSON is sent
as that value; anything else is sent as a string.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			topic := args[0]
			values := parseArgs(args[1:])

			return a.withEmitter(func(e transport.Emitter) error {
				ok, err := e.Emit(cmd.Context(), transport.EmitOptions{
					Event:   topic,
					Timeout: timeout,
				}, values...)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("emit to %s was not acknowledged", topic)
				}
				a.logger.Info("emitted",
					slog.String("topic", topic),
					slog.Int("args", len(values)),
				)
				return nil
			})
		},
	}
	cmd.Flags().Duration("timeout", 0, "bound on the append (0 = none)")
	return cmd
}

func parseArgs(args []string) []any {
	res := make([]any, len(args))
	for i, s := range args {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			res[i] = v
			continue
		}
		res[i] = s
	}
	return res
}
