package warpcli

import (
	"errors"
	"fmt"
	"log/slog"

	"warpdir/internal/config"
	"warpdir/internal/core/explain"
	"warpdir/internal/database"
	"warpdir/internal/fuzzy"
	"warpdir/internal/model"
	"warpdir/internal/warpd"
)

const socketNetwork = "unix"

// errServerRunning is returned by commands that rewrite the datafile while a
// server owns it.
var errServerRunning = errors.New("a warpd server is running; stop it first with: warp server stop")

// Backend is where one invocation sends its operations: a running server, or
// the datafile opened in process. Both give the same results.
type Backend interface {
	Insert(path string) error
	Delete(path string) error
	Query(pattern string, ex explain.Explain) ([]model.Entry, error)
	List() ([]model.Entry, error)
	Close() error
}

// openBackend uses the server when one answers on the configured socket,
// unless direct is set or a matcher override asks for in-process scoring.
func openBackend(cfg *config.Config, direct bool, matcher *fuzzy.Matcher, logger *slog.Logger) (Backend, error) {
	if !direct && matcher == nil && warpd.Alive(socketNetwork, cfg.Socket) {
		c, err := warpd.Dial(socketNetwork, cfg.Socket)
		if err == nil {
			logger.Debug("using server", "socket", cfg.Socket)
			return &serverBackend{client: c}, nil
		}
		logger.Debug("server probe succeeded but dial failed, using datafile", "error", err)
	}

	m := cfg.MatcherStrategy()
	if matcher != nil {
		m = *matcher
	}
	db, err := database.Open(database.Options{Datafile: cfg.Datafile, Matcher: m})
	if err != nil {
		return nil, err
	}
	logger.Debug("using datafile", "path", db.Path(), "entries", db.Len())
	return &directBackend{db: db}, nil
}

type serverBackend struct {
	client *warpd.Client
}

func (b *serverBackend) Insert(path string) error { return b.client.Insert(path) }

func (b *serverBackend) Delete(path string) error { return b.client.Delete(path) }

func (b *serverBackend) Query(pattern string, ex explain.Explain) ([]model.Entry, error) {
	ex = explain.OrDiscard(ex)
	ex.KV("mode", "server")
	stop := ex.Timer("roundtrip")
	items, err := b.client.Query(pattern)
	stop()
	if err != nil {
		return nil, err
	}
	ex.KV("matched", len(items))
	return items, nil
}

func (b *serverBackend) List() ([]model.Entry, error) { return b.client.List() }

func (b *serverBackend) Close() error { return b.client.Close() }

// directBackend writes the datafile after every mutation since the process
// exits right after.
type directBackend struct {
	db *database.Database
}

func (b *directBackend) Insert(path string) error {
	b.db.InsertOrUpdate(path)
	return b.save()
}

func (b *directBackend) Delete(path string) error {
	b.db.Delete(path)
	return b.save()
}

func (b *directBackend) Query(pattern string, ex explain.Explain) ([]model.Entry, error) {
	explain.OrDiscard(ex).KV("mode", "direct")
	return b.db.QueryExplain(pattern, ex), nil
}

func (b *directBackend) List() ([]model.Entry, error) { return b.db.List(), nil }

func (b *directBackend) Close() error { return nil }

func (b *directBackend) save() error {
	if err := b.db.Save(); err != nil {
		return fmt.Errorf("save datafile: %w", err)
	}
	return nil
}

// openDirect opens the datafile for commands that replace its contents. They
// refuse to run while a server holds the data in memory.
func openDirect(cfg *config.Config) (*database.Database, error) {
	if warpd.Alive(socketNetwork, cfg.Socket) {
		return nil, errServerRunning
	}
	return database.Open(database.Options{Datafile: cfg.Datafile, Matcher: cfg.MatcherStrategy()})
}
