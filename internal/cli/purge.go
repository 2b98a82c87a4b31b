package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kode4food/courier/internal/backend"
)

func newPurgeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <topic>...",
		Short: "Delete the contents of topics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLog(func(l backend.Log) error {
				for _, topic := range args {
					if err := l.Delete(cmd.Context(), topic); err != nil {
						return err
					}
					a.logger.Info("purged", slog.String("topic", topic))
				}
				return nil
			})
		},
	}
}
