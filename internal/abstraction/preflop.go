// Package abstraction maps card combinations to small bucket indices.
//
// Preflop buckets are the 169 lossless hole-card classes. Postflop buckets
// come from centroid tables clustered offline over equity-distribution
// features, with a plain equity bucket as the fallback when no table is
// loaded.
package abstraction

import (
	"fmt"

	"github.com/lox/holdem-solver/internal/deck"
)

// PreflopClassCount is the number of distinct hole-card classes: 13 pairs,
// 78 offsuit combos, 78 suited combos.
const PreflopClassCount = 169

// PreflopClass maps two hole cards to their lossless class id:
// pairs 1-13, offsuit 14-91, suited 92-169. Classes ignore concrete suits,
// so AhKd and AcKs share a class while AhKh gets the suited one.
func PreflopClass(hole []deck.Card) (int, error) {
	if len(hole) != 2 {
		return 0, fmt.Errorf("abstraction: want 2 hole cards, got %d", len(hole))
	}
	if hole[0] == hole[1] {
		return 0, fmt.Errorf("abstraction: duplicate hole card %s", hole[0])
	}

	v1 := classRankValue(hole[0].Rank())
	v2 := classRankValue(hole[1].Rank())

	switch {
	case v1 == v2:
		return v1, nil
	case hole[0].Suit() != hole[1].Suit():
		return 13 + rankPairIndex(v1, v2), nil
	default:
		return 91 + rankPairIndex(v1, v2), nil
	}
}

// classRankValue orders ranks A=1, 2=2 .. K=13, matching the historical
// class numbering (AA is class 1, KK class 13).
func classRankValue(rank uint8) int {
	if rank == deck.Ace {
		return 1
	}
	return int(rank) + 2
}

// rankPairIndex maps an unordered pair of distinct rank values to 1-78 by
// triangular numbering.
func rankPairIndex(a, b int) int {
	first, second := a, b
	if first > second {
		first, second = second, first
	}
	return triangularOffset(first) + (second - first)
}

func triangularOffset(n int) int {
	if n <= 1 {
		return 0
	}
	count := n - 1
	return count * (12 + 12 - (n - 2)) / 2
}
