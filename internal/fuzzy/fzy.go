package fuzzy

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// folder applies full Unicode case folding one rune at a time so that every
// folded rune can be traced back to the haystack position it came from.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) foldRune(dst []rune, r rune) []rune {
	if r < utf8.RuneSelf {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		return append(dst, r)
	}
	for _, fr := range f.caser.String(string(r)) {
		dst = append(dst, fr)
	}
	return dst
}

func (f *folder) fold(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = f.foldRune(out, r)
	}
	return out
}

// foldWithBonus folds s and computes the match bonus of every folded rune.
// Bonuses come from the unfolded text so capitals still count. When one rune
// folds into several, only the first carries the bonus.
func (f *folder) foldWithBonus(s string) ([]rune, []float64) {
	runes := make([]rune, 0, len(s))
	bonus := make([]float64, 0, len(s))
	prev := classSlash
	for _, r := range s {
		cur := classOf(r)
		start := len(runes)
		runes = f.foldRune(runes, r)
		bonus = append(bonus, bonusFor(cur, prev))
		for i := start + 1; i < len(runes); i++ {
			bonus = append(bonus, 0)
		}
		prev = cur
	}
	return runes, bonus
}

// Score returns the fzy affinity of needle for haystack; larger is better.
// Callers are expected to gate on HasMatch: for a needle that is not a
// subsequence the result is ScoreMin or some low value.
func Score(needle, haystack string) float64 {
	if needle == "" {
		return ScoreMax
	}
	f := newFolder()
	n := f.fold(needle)
	h, bonus := f.foldWithBonus(haystack)
	if len(n) > len(h) {
		return ScoreMin
	}
	if slices.Equal(n, h) {
		return ScoreMax
	}
	return compute(n, h, bonus)
}

// compute runs the two-row dynamic program. matchRow[j] is the best score of
// an alignment whose last needle rune lands exactly on h[j]; scoreRow[j] is
// the best score using haystack up to j.
func compute(n, h []rune, bonus []float64) float64 {
	m := len(h)
	prevMatch := make([]float64, m)
	prevScore := make([]float64, m)
	curMatch := make([]float64, m)
	curScore := make([]float64, m)

	last := len(n) - 1
	for i, nr := range n {
		gap := ScoreGapInner
		if i == last {
			gap = ScoreGapTrailing
		}

		best := ScoreMin
		for j, hr := range h {
			if nr != hr {
				curMatch[j] = ScoreMin
				best = addScore(best, gap)
				curScore[j] = best
				continue
			}

			s := ScoreMin
			switch {
			case i == 0:
				s = addScore(float64(j)*ScoreGapLeading, bonus[j])
			case j > 0:
				s = max(
					addScore(prevScore[j-1], bonus[j]),
					addScore(prevMatch[j-1], ScoreMatchConsecutive),
				)
			}
			curMatch[j] = s
			best = max(s, addScore(best, gap))
			curScore[j] = best
		}

		prevMatch, curMatch = curMatch, prevMatch
		prevScore, curScore = curScore, prevScore
	}
	return prevScore[m-1]
}
