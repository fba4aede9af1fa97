// Package warpcli implements the warp command line.
package warpcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"warpdir/internal/version"
)

func NewRootCommand() *cobra.Command {
	opts := newDefaultOptions()
	cmd := &cobra.Command{
		Use:   "warp",
		Short: "Jump to frequently and recently visited directories",
		Long: `warp remembers the directories you visit and ranks them by frecency.
"warp <pattern>" prints the best match for a fuzzy pattern; see "warp init"
for the shell hook that records visits and adds a "z" function.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version.String()

	withOptionsContext(cmd, opts)
	bindFlags(cmd, opts)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts := optionsFrom(cmd); opts != nil {
			return opts.Prepare(cmd.ErrOrStderr())
		}
		return nil
	}

	cmd.AddCommand(
		newInsertCommand(),
		newDeleteCommand(),
		newQueryCommand(),
		newListCommand(),
		newClearCommand(),
		newImportCommand(),
		newExportCommand(),
		newServerCommand(),
		newConfigCommand(),
		newInitCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
