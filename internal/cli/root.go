// Package cli implements the queryshelf command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "queryshelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "queryshelf",
		Short: "A catalog of saved SQL queries",
		Long: "queryshelf stores named SQL queries per database, suggests titles and\n" +
			"descriptions for them, and serves them over HTTP.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.queryshelf-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newMigrateCmd(),
		newServeCmd(),
		newSaveCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newSuggestCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "queryshelf:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps err to exitUserError for mistakes the caller can fix and
// exitSysError for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrConflict),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrNoStructuredOutput),
		errors.Is(err, errUsage):
		return exitUserError
	}
	return exitSysError
}

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage error")
