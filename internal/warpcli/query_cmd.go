package warpcli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"warpdir/internal/core/explain"
	"warpdir/internal/fuzzy"
)

// ErrNoMatch makes "cd $(warp query x)" fail instead of going home.
var ErrNoMatch = errors.New("no match")

type queryFlags struct {
	all     bool
	jsonl   bool
	explain string
	matcher string
}

func newQueryCommand() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:     "query <pattern>...",
		Aliases: []string{"q"},
		Short:   "Print the best directory for a fuzzy pattern",
		Long: `Print the best directory for a fuzzy pattern. Several arguments are
joined with spaces. With --all every match is printed, best first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), f)
		},
	}
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "print every match")
	cmd.Flags().BoolVar(&f.jsonl, "jsonl", false, "output as JSONL (implies --all)")
	cmd.Flags().StringVar(&f.explain, "explain", "", "print scoring details to stderr: text|json")
	cmd.Flags().Lookup("explain").NoOptDefVal = explainText
	cmd.Flags().StringVar(&f.matcher, "matcher", "", "score in process with this matcher: fzy|naive")
	return cmd
}

func runQuery(cmd *cobra.Command, pattern string, f queryFlags) error {
	opts, err := mustOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	var override *fuzzy.Matcher
	if f.matcher != "" {
		m, err := fuzzy.ParseMatcher(f.matcher)
		if err != nil {
			return err
		}
		override = &m
	}

	var ex *ExplainCollector
	if f.explain != "" {
		format, err := parseExplainFormat(f.explain)
		if err != nil {
			return err
		}
		ex = NewExplainCollector(format)
	}

	b, err := openBackend(cfg, opts.Direct, override, opts.Logger())
	if err != nil {
		return err
	}
	defer b.Close()

	var sink explain.Explain
	if ex != nil {
		ex.KV("pattern", pattern)
		sink = ex
	}
	items, err := b.Query(pattern, sink)
	if err != nil {
		return err
	}
	if ex != nil {
		_ = ex.Emit(cmd.ErrOrStderr())
	}
	if len(items) == 0 {
		return fmt.Errorf("%w for %q", ErrNoMatch, pattern)
	}

	out := cmd.OutOrStdout()
	switch {
	case f.jsonl:
		_, err = fmt.Fprint(out, RenderJSONL(items))
	case f.all:
		_, err = fmt.Fprint(out, RenderPaths(items))
	default:
		_, err = fmt.Fprint(out, RenderPaths(items[:1]))
	}
	return err
}
