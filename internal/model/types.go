package model

import "strings"

// MaxRank is the hard cap applied to every rank.
const MaxRank = 1000.0

type Entry struct {
	Path         string  `json:"path"`
	Rank         float64 `json:"rank"`
	LastAccessed int64   `json:"last_accessed"`
	VisitCount   int     `json:"visit_count"`
}

func (e Entry) String() string { return e.Path }

// ClampRank keeps r inside [0, MaxRank].
func ClampRank(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > MaxRank:
		return MaxRank
	}
	return r
}

func Paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func CloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// NormalizePath trims whitespace and a trailing separator, keeping "/" intact.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
