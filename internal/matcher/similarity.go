package matcher

import (
	"github.com/agnivade/levenshtein"

	"account-reconciliation-service/internal/models"
)

// Similarity computes a length-normalized edit-distance similarity between
// two strings, in [0,1]. Both inputs are folded first (case, punctuation,
// and whitespace differences are ignored), so strings identical after
// folding score exactly 1.0.
//
// Two empty strings score 1.0; one empty and one non-empty score strictly
// below 1.0. The measure is symmetric.
func Similarity(a, b string) float64 {
	fa := foldString(a)
	fb := foldString(b)

	if fa == fb {
		return 1.0
	}

	maxLen := len([]rune(fa))
	if l := len([]rune(fb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(fa, fb)
	return models.ClampScore(1.0 - float64(distance)/float64(maxLen))
}

// HierarchySimilarity compares two hierarchy paths level by level,
// rewarding matching ancestry even when leaf names differ. Each paired
// level contributes its string similarity; unpaired levels in the longer
// path contribute zero. Two empty paths score 1.0.
func HierarchySimilarity(pathA, pathB []string) float64 {
	if len(pathA) == 0 && len(pathB) == 0 {
		return 1.0
	}

	maxLen := len(pathA)
	if len(pathB) > maxLen {
		maxLen = len(pathB)
	}

	minLen := len(pathA)
	if len(pathB) < minLen {
		minLen = len(pathB)
	}

	var total float64
	for i := 0; i < minLen; i++ {
		total += Similarity(pathA[i], pathB[i])
	}

	return models.ClampScore(total / float64(maxLen))
}
