// Package frecency keeps the in-memory index of visited paths and ranks them
// by a blend of visit frequency and recency.
package frecency

import (
	"os"
	"slices"
	"strings"
	"time"

	"warpdir/internal/core/explain"
	"warpdir/internal/fuzzy"
	"warpdir/internal/model"
)

type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Exists reports whether a path is still valid; defaults to PathExists.
	Exists func(path string) bool
	// Matcher defaults to fuzzy.Fzy.
	Matcher fuzzy.Matcher
}

// Store is not safe for concurrent use; owners serialize access.
type Store struct {
	entries map[string]model.Entry
	now     func() time.Time
	exists  func(string) bool
	matcher fuzzy.Matcher
	version uint64
}

func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Exists == nil {
		opts.Exists = PathExists
	}
	return &Store{
		entries: map[string]model.Entry{},
		now:     opts.Now,
		exists:  opts.Exists,
		matcher: opts.Matcher,
	}
}

func (s *Store) Len() int { return len(s.entries) }

// Version changes on every mutation.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) Matcher() fuzzy.Matcher { return s.matcher }

func (s *Store) SetMatcher(m fuzzy.Matcher) {
	if s.matcher != m {
		s.matcher = m
		s.version++
	}
}

func (s *Store) Exists(path string) bool { return s.exists(path) }

func (s *Store) Get(path string) (model.Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// InsertOrUpdate records a visit to path.
func (s *Store) InsertOrUpdate(path string) {
	now := s.now().Unix()
	s.version++

	e, ok := s.entries[path]
	if !ok {
		s.entries[path] = model.Entry{Path: path, Rank: 1.0, LastAccessed: now, VisitCount: 1}
		return
	}
	e.VisitCount++
	e.Rank = Frecency(now, e.LastAccessed, e.VisitCount)
	e.LastAccessed = now
	s.entries[path] = e
}

func (s *Store) Delete(path string) {
	s.version++
	delete(s.entries, path)
}

// Put stores e as-is apart from clamping its rank. Loaders use it.
func (s *Store) Put(e model.Entry) {
	if e.VisitCount < 1 {
		e.VisitCount = 1
	}
	e.Rank = model.ClampRank(e.Rank)
	s.version++
	s.entries[e.Path] = e
}

// Replace swaps the whole index for entries.
func (s *Store) Replace(entries []model.Entry) {
	s.entries = make(map[string]model.Entry, len(entries))
	for _, e := range entries {
		s.Put(e)
	}
	s.version++
}

func (s *Store) Clear() {
	s.version++
	clear(s.entries)
}

// RefreshRanks recomputes every rank against the current time and drops
// entries whose path no longer exists. It returns the number dropped.
func (s *Store) RefreshRanks() int {
	now := s.now().Unix()
	s.version++

	dropped := 0
	for path, e := range s.entries {
		if !s.exists(path) {
			delete(s.entries, path)
			dropped++
			continue
		}
		e.Rank = Frecency(now, e.LastAccessed, e.VisitCount)
		s.entries[path] = e
	}
	return dropped
}

// Entries returns every entry, valid or not, in descending order.
func (s *Store) Entries() []model.Entry {
	out := s.snapshot(false)
	sortDesc(out)
	return out
}

// List returns the entries whose path still exists, in descending order.
func (s *Store) List() []model.Entry {
	out := s.snapshot(true)
	sortDesc(out)
	return out
}

func (s *Store) Query(pattern string) []model.Entry {
	return s.QueryExplain(pattern, nil)
}

type candidate struct {
	entry model.Entry
	score int64
}

// QueryExplain matches pattern against every valid entry. Entries whose
// quantized score is not positive are dropped; the rest are ordered by score
// and then by Compare, both descending.
func (s *Store) QueryExplain(pattern string, ex explain.Explain) []model.Entry {
	ex = explain.OrDiscard(ex)
	stop := ex.Timer("match")
	valid := s.snapshot(true)
	out := s.rank(pattern, valid)
	stop()

	ex.KV("matcher", s.matcher.String())
	ex.KV("entries", len(s.entries))
	ex.KV("candidates", len(valid))
	ex.KV("matched", len(out))
	if len(out) > 0 {
		ex.KV("top_score", fuzzy.Quantize(s.matcher.MatchScore(pattern, out[0].Path)))
	}
	return out
}

// Matches is Query without the existence check. Dropping the entries that
// fail Exists from its result gives exactly what Query returns.
func (s *Store) Matches(pattern string) []model.Entry {
	return s.rank(pattern, s.snapshot(false))
}

// rank keeps the entries that match pattern and orders them. entries must be
// in path order.
func (s *Store) rank(pattern string, entries []model.Entry) []model.Entry {
	cands := make([]candidate, 0, len(entries))
	for _, e := range entries {
		q := fuzzy.Quantize(s.matcher.MatchScore(pattern, e.Path))
		if q <= 0 {
			continue
		}
		cands = append(cands, candidate{entry: e, score: q})
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return Compare(b.entry, a.entry)
	})

	out := make([]model.Entry, len(cands))
	for i, c := range cands {
		out[i] = c.entry
	}
	return out
}

// snapshot copies entries in ascending path order so equal-ranked entries
// come out in a stable order.
func (s *Store) snapshot(onlyValid bool) []model.Entry {
	out := make([]model.Entry, 0, len(s.entries))
	for path, e := range s.entries {
		if onlyValid && !s.exists(path) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b model.Entry) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func sortDesc(entries []model.Entry) {
	slices.SortStableFunc(entries, func(a, b model.Entry) int { return Compare(b, a) })
}
