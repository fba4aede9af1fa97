package fuzzy

import (
	"math"
	"unicode"
)

const (
	ScoreGapLeading       = -0.005
	ScoreGapTrailing      = -0.005
	ScoreGapInner         = -0.01
	ScoreMatchConsecutive = 1.0
	ScoreMatchSlash       = 0.9
	ScoreMatchWord        = 0.8
	ScoreMatchCapital     = 0.7
	ScoreMatchDot         = 0.6
)

// ScoreMin and ScoreMax are sentinels, not computed scores. ScoreMin means no
// alignment exists; ScoreMax means a perfect (identical) match.
const (
	ScoreMin = -math.MaxFloat64
	ScoreMax = math.MaxFloat64
)

type charClass uint8

const (
	classLower charClass = iota // lowercase letters and anything unclassified
	classUpper
	classDigit
	classSlash
	classDot
	classSep
)

func classOf(r rune) charClass {
	switch {
	case r >= '0' && r <= '9':
		return classDigit
	case r == ' ' || r == '-' || r == '_':
		return classSep
	case r == '.':
		return classDot
	case r == '/':
		return classSlash
	case unicode.IsUpper(r):
		return classUpper
	default:
		return classLower
	}
}

func bonusFor(cur, prev charClass) float64 {
	switch cur {
	case classUpper:
		switch prev {
		case classLower, classDigit:
			return ScoreMatchCapital
		case classSep:
			return ScoreMatchWord
		case classSlash:
			return ScoreMatchSlash
		case classDot:
			return ScoreMatchDot
		}
	case classLower, classDigit:
		switch prev {
		case classSep:
			return ScoreMatchWord
		case classSlash:
			return ScoreMatchSlash
		case classDot:
			return ScoreMatchDot
		}
	}
	return 0
}

// addScore adds delta to s, saturating at the sentinels. ScoreMin stays
// ScoreMin no matter how many penalties are added to it, and ScoreMax is
// never reached from a finite score.
func addScore(s, delta float64) float64 {
	if s == ScoreMin || delta == ScoreMin {
		return ScoreMin
	}
	v := s + delta
	switch {
	case v <= ScoreMin, math.IsInf(v, -1):
		return ScoreMin
	case v >= ScoreMax, math.IsInf(v, 1):
		return math.Nextafter(ScoreMax, 0)
	}
	return v
}

// Quantize converts a score to thousandths, truncating toward zero, so that
// float noise cannot reorder candidates. The sentinels map to the int64
// extremes instead of overflowing.
func Quantize(score float64) int64 {
	const scale = 1000.0
	switch {
	case math.IsNaN(score):
		return math.MinInt64
	case score >= math.MaxInt64/scale:
		return math.MaxInt64
	case score <= math.MinInt64/scale:
		return math.MinInt64
	}
	return int64(score * scale)
}
