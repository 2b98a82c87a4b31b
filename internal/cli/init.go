package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kode4food/courier/internal/settings"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "courier.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := settings.WriteDefault(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
}
