package config

import (
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Excluder filters paths before they are inserted.
type Excluder struct {
	matcher  gitignore.Matcher
	patterns []string
}

func NewExcluder(patterns []string) *Excluder {
	ps := make([]gitignore.Pattern, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
		kept = append(kept, p)
	}
	if len(ps) == 0 {
		return &Excluder{}
	}
	return &Excluder{matcher: gitignore.NewMatcher(ps), patterns: kept}
}

func (x *Excluder) Patterns() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.patterns...)
}

// Excluded reports whether path, or any directory above it, matches.
func (x *Excluder) Excluded(path string) bool {
	if x == nil || x.matcher == nil {
		return false
	}

	path = strings.Trim(filepath.ToSlash(filepath.Clean(path)), "/")
	if path == "" || path == "." {
		return false
	}

	segments := strings.Split(path, "/")
	for i := 1; i <= len(segments); i++ {
		if x.matcher.Match(segments[:i], true) {
			return true
		}
	}
	return false
}
