package warpcli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"warpdir/internal/config"
	"warpdir/internal/model"
)

// absPath makes a command-line path absolute and strips trailing slashes.
func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return model.NormalizePath(abs), nil
}

// withBackend loads the config, opens a backend and closes it afterwards.
// Close errors matter: for the server backend they mean a write may not have
// been applied.
func withBackend(cmd *cobra.Command, fn func(cfg *config.Config, b Backend) error) (err error) {
	opts, err := mustOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	b, err := openBackend(cfg, opts.Direct, nil, opts.Logger())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(cfg, b)
}

func newInsertCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "insert <path>",
		Aliases: []string{"add"},
		Short:   "Record a visit to a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, func(cfg *config.Config, b Backend) error {
				if config.NewExcluder(cfg.ExcludeDirs).Excluded(path) {
					optionsFrom(cmd).Logger().Debug("path excluded", "path", path)
					return nil
				}
				return b.Insert(path)
			})
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <path>",
		Aliases: []string{"rm"},
		Short:   "Forget a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, func(_ *config.Config, b Backend) error {
				return b.Delete(path)
			})
		},
	}
}

func newListCommand() *cobra.Command {
	var jsonl bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List remembered directories, best first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(_ *config.Config, b Backend) error {
				items, err := b.List()
				if err != nil {
					return err
				}
				out := RenderTable(items)
				if jsonl {
					out = RenderJSONL(items)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "output as JSONL")
	return cmd
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every directory and remove the datafile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := mustOptions(cmd)
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
			n := db.Len()
			if err := db.Clear(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
			return err
		},
	}
}
