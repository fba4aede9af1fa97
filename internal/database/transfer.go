package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"warpdir/internal/datafile"
	"warpdir/internal/index/sqlite"
	"warpdir/internal/model"
)

type Format string

const (
	FormatZcd    Format = "zcd"
	FormatZ      Format = "z"
	FormatSQLite Format = "sqlite"
)

var ErrUnknownFormat = errors.New("unknown format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatZcd, nil
	case FormatZcd, FormatZ, FormatSQLite:
		return f, nil
	}
	return "", fmt.Errorf("%w %q (expected: zcd|z|sqlite)", ErrUnknownFormat, s)
}

// Import replaces the current entries with the contents of path.
func (db *Database) Import(ctx context.Context, path string, format Format) (int, error) {
	resolved, err := datafile.ExpandHome(path)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(resolved); err != nil {
		return 0, fmt.Errorf("import %s: %w", resolved, err)
	}

	var entries []model.Entry
	switch format {
	case FormatZcd, FormatZ:
		codec, _ := datafile.Lookup(string(format))
		entries, err = datafile.Read(resolved, codec)
	case FormatSQLite:
		entries, err = loadSnapshot(ctx, resolved)
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return 0, err
	}

	db.store.Replace(entries)
	db.dirty = true
	return len(entries), nil
}

// Export writes every entry, including ones whose path is gone, to path.
func (db *Database) Export(ctx context.Context, path string, format Format) (int, error) {
	resolved, err := datafile.ExpandHome(path)
	if err != nil {
		return 0, err
	}
	entries := db.store.Entries()

	switch format {
	case FormatZcd, FormatZ:
		codec, _ := datafile.Lookup(string(format))
		err = datafile.Write(resolved, codec, entries)
	case FormatSQLite:
		err = writeSnapshot(ctx, resolved, entries)
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func loadSnapshot(ctx context.Context, path string) ([]model.Entry, error) {
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer s.Close()

	if err := s.Verify(ctx); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s.LoadAll(ctx)
}

func writeSnapshot(ctx context.Context, path string, entries []model.Entry) error {
	s, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer s.Close()
	return s.ReplaceAll(ctx, entries)
}
