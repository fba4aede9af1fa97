// Package fuzzy scores how well a short typed pattern matches a path.
//
// Matching is a case-folded subsequence test; scoring is the fzy dynamic
// program, which rewards consecutive runs and matches that start a word,
// path segment, or extension, and penalizes skipped characters.
package fuzzy

import (
	"fmt"
	"slices"
	"strings"
)

// HasMatch reports whether every rune of needle occurs in haystack in order,
// comparing under full Unicode case folding. An empty needle always matches.
func HasMatch(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	f := newFolder()
	n := f.fold(needle)
	h := f.fold(haystack)

	j := 0
	for _, r := range n {
		k := slices.Index(h[j:], r)
		if k < 0 {
			return false
		}
		j += k + 1
	}
	return true
}

// Matcher selects a scoring strategy.
type Matcher int

const (
	Fzy Matcher = iota
	Naive
)

func ParseMatcher(name string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fzy":
		return Fzy, nil
	case "naive":
		return Naive, nil
	default:
		return Fzy, fmt.Errorf("unknown matcher %q (expected: fzy|naive)", name)
	}
}

func (m Matcher) String() string {
	switch m {
	case Naive:
		return "naive"
	default:
		return "fzy"
	}
}

// MatchScore gates on HasMatch and then scores with the selected strategy.
// Naive gives ScoreMax to a folded substring match and ScoreMin otherwise.
func (m Matcher) MatchScore(needle, haystack string) float64 {
	if !HasMatch(needle, haystack) {
		return ScoreMin
	}
	if m == Naive {
		f := newFolder()
		if strings.Contains(string(f.fold(haystack)), string(f.fold(needle))) {
			return ScoreMax
		}
		return ScoreMin
	}
	return Score(needle, haystack)
}
