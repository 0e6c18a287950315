package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/queryshelf/internal/sqlite"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write every saved query to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.backend.Queries()
			if err != nil {
				return err
			}
			n, err := sqlite.ExportJSONL(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]int{"exported": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d queries to %s\n", n, args[0])
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Load saved queries from a JSONL file, keeping existing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			res, err := sqlite.ImportJSONL(cmd.Context(), store, args[0], time.Now().Unix())
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d queries (%d already present, %d invalid)\n",
				res.Imported, res.Conflicts, res.Invalid)
			return nil
		},
	}
}
