// Package fuzzy provides approximate string matching on a 0-100 scale,
// used for canonicalizing user-typed entity values against known keys.
package fuzzy

import (
	"math"

	"github.com/agnivade/levenshtein"
)

// Ratio returns a similarity score between 0 and 100 based on normalized
// Levenshtein distance. Identical strings score 100, fully dissimilar
// strings score 0.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	aLen := len([]rune(a))
	bLen := len([]rune(b))
	longest := aLen
	if bLen > longest {
		longest = bLen
	}

	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}

// Match holds the best candidate found by ExtractOne.
type Match struct {
	Value string
	Score int
}

// ExtractOne returns the choice with the highest Ratio against query.
// The boolean is false when choices is empty. Ties keep the earlier choice.
func ExtractOne(query string, choices []string) (Match, bool) {
	best := Match{}
	found := false
	for _, choice := range choices {
		score := Ratio(query, choice)
		if !found || score > best.Score {
			best = Match{Value: choice, Score: score}
			found = true
		}
	}
	return best, found
}

// ExtractOneAbove returns the best choice whose score meets the threshold.
// The boolean is false when no choice qualifies.
func ExtractOneAbove(query string, choices []string, threshold int) (Match, bool) {
	best, found := ExtractOne(query, choices)
	if !found || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}
