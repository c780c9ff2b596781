package search

import (
	"sort"

	"github.com/hyperjump/docstore/pkg/utils"
)

// ScaleFactor compresses raw BM25 scores before the logistic squash.
const ScaleFactor = 8.0

// ScaleScores maps every score through expit(score / ScaleFactor) in place.
func ScaleScores(scores []float64) {
	for i, s := range scores {
		scores[i] = utils.Expit(s / ScaleFactor)
	}
}

// TopK returns the positions of the k highest scores, ordered by score
// descending and then by position ascending.
func TopK(scores []float64, k int) []int {
	positions := make([]int, len(scores))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return scores[positions[a]] > scores[positions[b]]
	})
	if k < len(positions) {
		positions = positions[:k]
	}
	return positions
}
