// Package database binds the in-memory frecency store to its datafile.
package database

import (
	"fmt"
	"strings"
	"time"

	"warpdir/internal/core/explain"
	"warpdir/internal/datafile"
	"warpdir/internal/frecency"
	"warpdir/internal/fuzzy"
	"warpdir/internal/model"
)

type Options struct {
	// Datafile may start with "~".
	Datafile string
	Matcher  fuzzy.Matcher
	Now      func() time.Time
	Exists   func(path string) bool
}

// Database is not safe for concurrent use.
type Database struct {
	path  string
	store *frecency.Store
	dirty bool
}

// Open loads the datafile. A missing file gives an empty database; a
// malformed one fails the whole open.
func Open(opts Options) (*Database, error) {
	if strings.TrimSpace(opts.Datafile) == "" {
		return nil, fmt.Errorf("datafile is required")
	}
	path, err := datafile.ExpandHome(opts.Datafile)
	if err != nil {
		return nil, err
	}

	db := &Database{
		path: path,
		store: frecency.New(frecency.Options{
			Now:     opts.Now,
			Exists:  opts.Exists,
			Matcher: opts.Matcher,
		}),
	}
	if err := db.Reload(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *Database) Path() string { return db.path }

func (db *Database) Dirty() bool { return db.dirty }

func (db *Database) Len() int { return db.store.Len() }

// Version changes whenever the visible contents may have changed.
func (db *Database) Version() uint64 { return db.store.Version() }

func (db *Database) Matcher() fuzzy.Matcher { return db.store.Matcher() }

func (db *Database) SetMatcher(m fuzzy.Matcher) { db.store.SetMatcher(m) }

func (db *Database) Exists(path string) bool { return db.store.Exists(path) }

// InsertOrUpdate records a visit and then refreshes every rank, so all
// entries are ranked against the same instant.
func (db *Database) InsertOrUpdate(path string) {
	db.store.InsertOrUpdate(path)
	db.store.RefreshRanks()
	db.dirty = true
}

func (db *Database) Delete(path string) {
	db.store.Delete(path)
	db.dirty = true
}

func (db *Database) Query(pattern string) []model.Entry {
	return db.store.Query(pattern)
}

// Matches ranks every entry against pattern without checking that paths
// still exist.
func (db *Database) Matches(pattern string) []model.Entry {
	return db.store.Matches(pattern)
}

func (db *Database) QueryExplain(pattern string, ex explain.Explain) []model.Entry {
	return db.store.QueryExplain(pattern, ex)
}

func (db *Database) List() []model.Entry {
	return db.store.List()
}

// Save rewrites the datafile when there are unsaved changes.
func (db *Database) Save() error {
	if !db.dirty {
		return nil
	}
	if err := datafile.Write(db.path, datafile.Zcd, db.store.Entries()); err != nil {
		return err
	}
	db.dirty = false
	return nil
}

// Clear empties the database and removes the datafile.
func (db *Database) Clear() error {
	db.store.Clear()
	db.dirty = true
	if err := datafile.Remove(db.path); err != nil {
		return err
	}
	db.dirty = false
	return nil
}

// Reload discards in-memory state and re-reads the datafile. On error the
// current contents are kept.
func (db *Database) Reload() error {
	entries, err := datafile.Read(db.path, datafile.Zcd)
	if err != nil {
		return err
	}
	db.store.Replace(entries)
	db.dirty = false
	return nil
}
