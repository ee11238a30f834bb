package interview

import (
	"math"
	"strconv"
	"strings"
)

// NormalizePercentage coerces a decoded JSON value into a percentage in
// [0, 100]. Models return this field as a number, a numeric string, or not
// at all; anything unusable reports ok=false so the caller can derive a
// value instead.
func NormalizePercentage(v any) (pct int, ok bool) {
	switch n := v.(type) {
	case float64:
		pct, ok = int(math.Round(n)), true
	case int:
		pct, ok = n, true
	case int64:
		pct, ok = int(n), true
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(n), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			pct, ok = int(math.Round(f)), true
		}
	}
	if !ok {
		return 0, false
	}
	return clampPercentage(pct, 0, 100), true
}

func clampPercentage(pct, lo, hi int) int {
	if pct < lo {
		return lo
	}
	if pct > hi {
		return hi
	}
	return pct
}

// AdvanceProgress computes a session's next progress percentage without
// consulting any model, from the message count alone. Used when a client
// polls for progress between turns or an operator nudges a stuck session.
//
// The curve is exponential saturation toward 95 over completed
// user/assistant pairs, plus a small deterministic jitter so concurrent
// sessions don't march in lockstep. Progress always moves forward by at
// least 3 points below 85 and 1 point above, and never exceeds 95 until the
// session is explicitly completed, which pins it to 100.
func AdvanceProgress(sessionID string, messageCount, current int, forceComplete bool) int {
	if forceComplete {
		return 100
	}

	pairs := messageCount / 2
	if pairs <= 0 {
		// Nothing has been exchanged yet; report the stored value as-is.
		return clampPercentage(current, 0, 95)
	}

	growth := 1 - math.Exp(-0.4*float64(pairs))
	jitter := -2 + 6*jitterUnit(sessionID, pairs)
	target := int(math.Round(95*growth + jitter))

	minStep := 3
	if current >= 85 {
		minStep = 1
	}
	next := max(current+minStep, target)

	return clampPercentage(next, 5, 95)
}

// jitterUnit returns a deterministic value in [0, 1) keyed on the session
// and the pair count, so repeated calls at the same point in a conversation
// agree.
func jitterUnit(sessionID string, pairs int) float64 {
	seed := hashSeed(sessionID) ^ (uint64(pairs) << 8)
	return newSeededRand(seed).float64()
}
