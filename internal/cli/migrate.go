package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			schema, err := a.backend.Schema()
			if err != nil {
				return err
			}
			if err := schema.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			applied, err := schema.Applied(cmd.Context())
			if err != nil {
				return err
			}

			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"applied": applied})
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
