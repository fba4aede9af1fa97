package warpcli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"warpdir/internal/config"
	"warpdir/internal/version"
	"warpdir/internal/warpd"
)

func newServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the warpd background server",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the server in the foreground",
			Args:  cobra.NoArgs,
			RunE:  runServer,
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Save and stop the running server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(c *warpd.Client) error {
					if err := c.Stop(); err != nil {
						return err
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "server stopping")
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Save and reload the server's datafile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(c *warpd.Client) error {
					if err := c.Restart(); err != nil {
						return err
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "server reloaded")
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether a server is running",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(c *warpd.Client) error {
					st, err := c.Status()
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
					fmt.Fprintf(tw, "address\t%s\n", st.Address)
					fmt.Fprintf(tw, "pid\t%d\n", st.PID)
					fmt.Fprintf(tw, "version\t%s\n", st.Version)
					fmt.Fprintf(tw, "entries\t%d\n", st.Entries)
					fmt.Fprintf(tw, "unsaved\t%t\n", st.Dirty)
					fmt.Fprintf(tw, "uptime\t%s\n", time.Since(st.StartedAt).Round(time.Second))
					return tw.Flush()
				})
			},
		},
	)
	return cmd
}

// withClient runs fn against the configured server. A missing server is
// reported, not treated as an error.
func withClient(cmd *cobra.Command, fn func(*warpd.Client) error) (err error) {
	opts, err := mustOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if !warpd.Alive(socketNetwork, cfg.Socket) {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "server not running (%s)\n", cfg.Socket)
		return err
	}
	c, err := warpd.Dial(socketNetwork, cfg.Socket)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

func runServer(cmd *cobra.Command, args []string) error {
	opts, err := mustOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	return serve(cmd, cfg, opts)
}

// serve runs warpd in the foreground until SIGINT, SIGTERM or a Stop request.
func serve(cmd *cobra.Command, cfg *config.Config, opts *Options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return warpd.ListenAndServe(ctx, cfg, opts.Logger(), opts.level)
}

// NewDaemonCommand is the root command of the warpd binary.
func NewDaemonCommand() *cobra.Command {
	opts := newDefaultOptions()
	cmd := &cobra.Command{
		Use:          "warpd",
		Short:        "Serve the warp database to many clients over a unix socket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runServer,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version.String()

	withOptionsContext(cmd, opts)
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $WARP_CONFIG or ~/.config/warp/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging to stderr")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.Prepare(cmd.ErrOrStderr())
	}
	return cmd
}
