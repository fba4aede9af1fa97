package datafile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dchest/safefile"

	"warpdir/internal/model"
)

// PersistenceError reports a datafile that could not be read, parsed or
// written. Line is 1-based and zero when the failure is not tied to a line.
type PersistenceError struct {
	Path string
	Line int
	Err  error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("datafile %s:%d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("datafile %s: %v", e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("datafile line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("datafile: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExpandHome resolves a leading "~" or "~/" to the current user's home.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Read loads path with codec. A missing file yields no entries and no error.
func Read(path string, codec Codec) ([]model.Entry, error) {
	resolved, err := ExpandHome(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}

	f, err := os.Open(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Path: resolved, Err: err}
	}
	defer f.Close()

	entries, err := codec.Decode(f)
	if err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) {
			pe.Path = resolved
			return nil, pe
		}
		return nil, &PersistenceError{Path: resolved, Err: err}
	}
	return entries, nil
}

// Write replaces path with the encoded entries. The old file stays intact
// until the new one is fully written.
func Write(path string, codec Codec, entries []model.Entry) error {
	resolved, err := ExpandHome(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return &PersistenceError{Path: resolved, Err: err}
	}

	f, err := safefile.Create(resolved, 0o644)
	if err != nil {
		return &PersistenceError{Path: resolved, Err: err}
	}
	defer f.Close()

	if err := codec.Encode(f, entries); err != nil {
		return &PersistenceError{Path: resolved, Err: err}
	}
	if err := f.Commit(); err != nil {
		return &PersistenceError{Path: resolved, Err: err}
	}
	return nil
}

// Remove deletes path; a missing file is not an error.
func Remove(path string) error {
	resolved, err := ExpandHome(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Path: resolved, Err: err}
	}
	return nil
}
