package warpcli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"warpdir/internal/config"
)

type Options struct {
	ConfigPath string
	Verbose    bool
	// Direct skips the server probe and always opens the datafile.
	Direct bool

	cfg    *config.Config
	level  *slog.LevelVar
	logger *slog.Logger
}

// Prepare builds the logger. The config is loaded on first use so commands
// like "config --generate" still work when the current file is broken.
func (o *Options) Prepare(stderr io.Writer) error {
	if o.level == nil {
		o.level = new(slog.LevelVar)
	}
	if o.Verbose {
		o.level.Set(slog.LevelDebug)
	}
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: o.level}))
	return nil
}

// Config loads and caches the configuration.
func (o *Options) Config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.Debug && o.level != nil {
		o.level.Set(slog.LevelDebug)
	}
	o.cfg = cfg
	return cfg, nil
}

func (o *Options) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

type optionsKey struct{}

func optionsFrom(cmd *cobra.Command) *Options {
	if cmd == nil {
		return nil
	}
	root := cmd.Root()
	if root == nil {
		root = cmd
	}
	v := root.Context().Value(optionsKey{})
	opts, _ := v.(*Options)
	return opts
}

func mustOptions(cmd *cobra.Command) (*Options, error) {
	opts := optionsFrom(cmd)
	if opts == nil {
		return nil, fmt.Errorf("options missing")
	}
	return opts, nil
}

func bindFlags(cmd *cobra.Command, opts *Options) {
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "config file (default $WARP_CONFIG or ~/.config/warp/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "debug logging to stderr")
	cmd.PersistentFlags().BoolVar(&opts.Direct, "direct", opts.Direct, "use the datafile directly even if a server is running")
}

func ExecuteForTest(cmd *cobra.Command) (string, Options, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()

	opts := optionsFrom(cmd)
	if opts == nil {
		return out.String(), Options{}, err
	}
	return out.String(), *opts, err
}

func newDefaultOptions() *Options {
	return &Options{level: new(slog.LevelVar)}
}

func withOptionsContext(cmd *cobra.Command, opts *Options) {
	cmd.SetContext(context.WithValue(context.Background(), optionsKey{}, opts))
}
