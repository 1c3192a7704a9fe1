package pii

import "strings"

const (
	scoreBase     = 0.95
	scoreFloor    = 0.70
	scoreCap      = 0.99
	sparseRatio   = 0.05
	denseRatio    = 0.15
	sparsePenalty = 0.10
	thoroughBonus = 0.05
)

// Score is the local engine's density heuristic. It starts at 0.95, drops by
// 0.10 when fewer than 5% of the words were replaced and rises by 0.05 (capped
// at 0.99) when more than 15% were. The result never goes below 0.70.
func Score(original, sanitized string, replacements int) float64 {
	words := len(strings.Fields(original))
	if words < 1 {
		words = 1
	}
	ratio := float64(replacements) / float64(words)

	score := scoreBase
	if ratio < sparseRatio {
		score -= sparsePenalty
	}
	if ratio > denseRatio {
		score += thoroughBonus
		if score > scoreCap {
			score = scoreCap
		}
	}
	if score < scoreFloor {
		score = scoreFloor
	}
	return score
}
