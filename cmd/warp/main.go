package main

import (
	"os"

	"warpdir/internal/warpcli"
)

func main() {
	root := warpcli.NewRootCommand()
	root.SetArgs(warpcli.RewriteArgsForImplicitQuery(root, os.Args[1:]))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
