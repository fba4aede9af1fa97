package warpcli

import (
	"strings"

	"github.com/spf13/cobra"
)

// RewriteArgsForImplicitQuery turns "warp foo" into "warp query foo" when the
// first positional argument is not a known command.
func RewriteArgsForImplicitQuery(root *cobra.Command, args []string) []string {
	if root == nil || len(args) == 0 {
		return args
	}

	first, ok := firstPositionalArg(args)
	if !ok {
		return args
	}
	if knownCommands(root)[first] {
		return args
	}
	return append([]string{"query"}, args...)
}

func knownCommands(root *cobra.Command) map[string]bool {
	known := map[string]bool{
		"help":       true,
		"completion": true,
	}
	for _, c := range root.Commands() {
		if c == nil {
			continue
		}
		known[c.Name()] = true
		for _, a := range c.Aliases {
			known[a] = true
		}
	}
	return known
}

func firstPositionalArg(args []string) (string, bool) {
	skipNext := false
	positionalOnly := false

	for _, raw := range args {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		if skipNext {
			skipNext = false
			continue
		}
		if positionalOnly {
			return a, true
		}
		if a == "--" {
			positionalOnly = true
			continue
		}

		if strings.HasPrefix(a, "--") {
			if strings.Contains(a, "=") {
				continue
			}
			switch strings.TrimPrefix(a, "--") {
			case "config", "matcher", "format", "shell":
				skipNext = true
			}
			continue
		}

		if strings.HasPrefix(a, "-") && a != "-" {
			// -c takes a value unless it is attached (-cfile).
			if a == "-c" {
				skipNext = true
			}
			continue
		}

		return a, true
	}
	return "", false
}
