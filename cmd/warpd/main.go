package main

import (
	"errors"
	"fmt"
	"os"

	"warpdir/internal/warpcli"
	"warpdir/internal/warpd"
)

func main() {
	if err := warpcli.NewDaemonCommand().Execute(); err != nil {
		if errors.Is(err, warpd.ErrServerRunning) {
			_, _ = fmt.Fprintln(os.Stderr, "Try: warp server stop")
		}
		os.Exit(1)
	}
}
