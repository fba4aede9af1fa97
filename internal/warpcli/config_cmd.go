package warpcli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"warpdir/internal/config"
)

func newConfigCommand() *cobra.Command {
	var generate, force, showPath bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, locate or generate the configuration",
		Long: `Without flags, print the effective configuration as YAML.
--path prints the file warp reads; --generate writes a commented default there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := mustOptions(cmd)
			if err != nil {
				return err
			}
			path := opts.ConfigPath
			if path == "" {
				if path, err = config.ResolvePath(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch {
			case generate:
				if err := config.Generate(path, force); err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "wrote %s\n", path)
				return err
			case showPath:
				_, err = fmt.Fprintln(out, path)
				return err
			}

			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "write the default config file")
	cmd.Flags().BoolVar(&force, "force", false, "with --generate, replace an existing file")
	cmd.Flags().BoolVar(&showPath, "path", false, "print the config file location")
	cmd.MarkFlagsMutuallyExclusive("generate", "path")
	return cmd
}
