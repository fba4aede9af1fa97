package frecency

import (
	"cmp"
	"math"

	"warpdir/internal/model"
)

const secondsPerHour = 3600.0

// Frecency blends how recently and how often a path was visited:
//
//	recency   = 1                                  if dx == 0
//	          = 1 / (1 + max(0.1, ln(dx / 3600)))  otherwise
//	frequency = ln(visits) + 1
//	rank      = min(1000, frequency * recency * 100)
//
// dx is now-lastAccessed in seconds, clamped at 0 to absorb clock skew.
func Frecency(now, lastAccessed int64, visits int) float64 {
	dx := max(now-lastAccessed, 0)
	if visits < 1 {
		visits = 1
	}

	recency := 1.0
	if dx > 0 {
		recency = 1 / (1 + max(0.1, math.Log(float64(dx)/secondsPerHour)))
	}
	frequency := math.Log(float64(visits)) + 1

	return model.ClampRank(frequency * recency * 100)
}

// Compare orders entries by rank rounded to the nearest integer, then by
// last access time. It is deliberately coarser than Equal.
func Compare(a, b model.Entry) int {
	if c := cmp.Compare(roundRank(a.Rank), roundRank(b.Rank)); c != 0 {
		return c
	}
	return cmp.Compare(a.LastAccessed, b.LastAccessed)
}

// Equal compares raw ranks only. Two entries can be Equal yet ordered apart
// by Compare, or Compare as 0 while not Equal.
func Equal(a, b model.Entry) bool {
	return a.Rank == b.Rank
}

func roundRank(r float64) int64 {
	return int64(math.Round(r))
}
