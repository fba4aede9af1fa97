package config

import (
	"log/slog"
	"time"

	"warpdir/internal/core/watch"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the config at path whenever it changes and hands the new
// value to onChange. Invalid edits are logged and skipped, so the previous
// config stays in effect.
func Watch(path string, logger *slog.Logger, onChange func(*Config)) (*watch.Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return watch.NewWatcher(path, watch.Options{
		Debounce: reloadDebounce,
		Logger:   logger,
		OnChange: func(p string) {
			logger.Info("config file changed, reloading", "path", p)
			cfg, err := Load(p)
			if err != nil {
				logger.Error("config reload failed", "error", err)
				return
			}
			onChange(cfg)
		},
	})
}
