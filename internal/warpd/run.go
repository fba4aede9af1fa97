package warpd

import (
	"context"
	"log/slog"

	"warpdir/internal/config"
	"warpdir/internal/database"
)

// ListenAndServe opens the configured database and serves it on cfg.Socket
// until ctx is done or a client sends Stop. When level is non-nil it follows
// the debug flag of reloaded configs.
func ListenAndServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, level *slog.LevelVar) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.Open(database.Options{
		Datafile: cfg.Datafile,
		Matcher:  cfg.MatcherStrategy(),
	})
	if err != nil {
		return err
	}
	logger.Info("database loaded", "path", db.Path(), "entries", db.Len())

	svc := NewService(db, ServiceOptions{
		SaveDelay: cfg.SaveDelay,
		Excluder:  config.NewExcluder(cfg.ExcludeDirs),
		Logger:    logger,
	})
	srv := NewServer(svc, Options{
		Listen:     cfg.Socket,
		Logger:     logger,
		ConfigPath: cfg.Path,
		OnConfig: func(c *config.Config) {
			if level == nil {
				return
			}
			if c.Debug {
				level.Set(slog.LevelDebug)
			} else {
				level.Set(slog.LevelInfo)
			}
		},
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "reason", context.Cause(ctx))
			_ = srv.Close()
		case <-done:
		}
	}()

	return srv.Run()
}
