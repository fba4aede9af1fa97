package warpd

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"warpdir/internal/config"
	"warpdir/internal/core/watch"
	"warpdir/internal/database"
	"warpdir/internal/fuzzy"
	"warpdir/internal/model"
	"warpdir/internal/version"
)

const saveKey = "datafile"

type ServiceOptions struct {
	// SaveDelay defers datafile writes after a mutation; defaults to
	// config.DefaultDelay.
	SaveDelay time.Duration
	Excluder  *config.Excluder
	CacheSize int
	Logger    *slog.Logger
}

// Service owns the shared database. Every operation holds mu for its whole
// duration, so readers never see a half-applied mutation.
type Service struct {
	mu       sync.Mutex
	db       *database.Database
	excluder *config.Excluder
	cache    *QueryCache
	saver    *watch.Debouncer
	logger   *slog.Logger

	startedAt time.Time
}

func NewService(db *database.Database, opts ServiceOptions) *Service {
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = config.DefaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		db:        db,
		excluder:  opts.Excluder,
		cache:     NewQueryCache(opts.CacheSize),
		saver:     watch.NewDebouncer(opts.SaveDelay),
		logger:    logger,
		startedAt: time.Now(),
	}
	s.saver.OnFire(func([]string) {
		if err := s.Flush(); err != nil {
			s.logger.Error("save datafile", "path", s.db.Path(), "error", err)
		}
	})
	return s
}

func (s *Service) Insert(path string) {
	path = model.NormalizePath(path)
	if path == "" {
		return
	}

	s.mu.Lock()
	excluded := s.excluder.Excluded(path)
	if !excluded {
		s.db.InsertOrUpdate(path)
	}
	s.mu.Unlock()

	if excluded {
		s.logger.Debug("insert skipped, path excluded", "path", path)
		return
	}
	s.saver.Push(saveKey)
}

func (s *Service) Delete(path string) {
	path = model.NormalizePath(path)
	if path == "" {
		return
	}

	s.mu.Lock()
	s.db.Delete(path)
	s.mu.Unlock()

	s.saver.Push(saveKey)
}

// Query serves repeated patterns from the cache. The cache holds matches
// before the existence check, which runs on every answer, so a hit equals a
// fresh query even after a directory comes back.
func (s *Service) Query(pattern string) []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ver := s.db.Version()
	matcher := s.db.Matcher().String()
	items, ok := s.cache.Get(ver, matcher, pattern)
	if !ok {
		items = s.db.Matches(pattern)
		s.cache.Put(ver, matcher, pattern, items)
	}

	out := items[:0:0]
	for _, e := range items {
		if s.db.Exists(e.Path) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) List() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.List()
}

func (s *Service) Status(address string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		PID:       os.Getpid(),
		Entries:   s.db.Len(),
		Dirty:     s.db.Dirty(),
		Version:   version.String(),
		StartedAt: s.startedAt,
		Address:   address,
	}
}

// Flush writes pending changes now.
func (s *Service) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Save()
}

// Restart saves pending changes and reloads the datafile.
func (s *Service) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Save(); err != nil {
		return fmt.Errorf("save before reload: %w", err)
	}
	if err := s.db.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.cache.Purge()
	return nil
}

// ApplyConfig picks up the reloadable parts of a new config.
func (s *Service) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.excluder = config.NewExcluder(cfg.ExcludeDirs)
	s.db.SetMatcher(cfg.MatcherStrategy())
	s.logger.Info("config applied", "exclude_dirs", len(cfg.ExcludeDirs), "matcher", cfg.Matcher)
}

func (s *Service) SetMatcher(m fuzzy.Matcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.SetMatcher(m)
}

// Close drops any scheduled save and writes pending changes.
func (s *Service) Close() error {
	s.saver.Stop()
	return s.Flush()
}
