package warpcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"warpdir/internal/config"
	"warpdir/internal/database"
	"warpdir/internal/warpd"
)

func bindFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "f", string(database.FormatZcd), "file format: zcd|z|sqlite")
}

func newImportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all entries with the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := mustOptions(cmd)
			if err != nil {
				return err
			}
			f, err := database.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			db, err := openDirect(cfg)
			if err != nil {
				return err
			}
			n, err := db.Import(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			if err := db.Save(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries from %s\n", n, args[0])
			return err
		},
	}
	bindFormatFlag(cmd, &format)
	return cmd
}

func newExportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write all entries to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := mustOptions(cmd)
			if err != nil {
				return err
			}
			f, err := database.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			if err := flushServer(cfg); err != nil {
				return err
			}
			db, err := database.Open(database.Options{Datafile: cfg.Datafile})
			if err != nil {
				return err
			}
			n, err := db.Export(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", n, args[0])
			return err
		},
	}
	bindFormatFlag(cmd, &format)
	return cmd
}

// flushServer makes a running server write its pending changes, so the
// datafile is current before it is read.
func flushServer(cfg *config.Config) error {
	if !warpd.Alive(socketNetwork, cfg.Socket) {
		return nil
	}
	c, err := warpd.Dial(socketNetwork, cfg.Socket)
	if err != nil {
		return err
	}
	if err := c.Restart(); err != nil {
		_ = c.Close()
		return err
	}
	return c.Close()
}
