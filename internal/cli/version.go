package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/queryshelf/pkg/queryshelf"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the queryshelf version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "queryshelf v%s\nmodule: %s\n", queryshelf.Version, queryshelf.ModulePath)
			return nil
		},
	}
}
