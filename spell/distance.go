// Package spell corrects misspelled player words against the corpus
// vocabulary using length-bucketed edit distance.
package spell

import (
	"strings"

	apperrors "dialog-agent/errors"

	"github.com/antzucaro/matchr"
)

// StringDistance measures how many edits separate two terms.
type StringDistance interface {
	Distance(a, b string) int
}

var (
	_ StringDistance = Levenshtein{}
	_ StringDistance = DamerauLevenshtein{}
)

// Levenshtein is the classic insert/delete/substitute distance with unit costs.
// It keeps a single rolling row sized by the shorter string.
type Levenshtein struct{}

func (Levenshtein) Distance(a, b string) int {
	long, short := []rune(a), []rune(b)
	if len(long) < len(short) {
		long, short = short, long
	}
	if len(short) == 0 {
		return len(long)
	}

	row := make([]int, len(short)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(long); i++ {
		diagonal := row[0]
		row[0] = i
		for j := 1; j <= len(short); j++ {
			above := row[j]
			cost := 1
			if long[i-1] == short[j-1] {
				cost = 0
			}
			row[j] = min(above+1, row[j-1]+1, diagonal+cost)
			diagonal = above
		}
	}
	return row[len(short)]
}

// DamerauLevenshtein also counts a transposition of two adjacent characters
// as a single edit, so "sowrd" is one edit away from "sword".
type DamerauLevenshtein struct{}

func (DamerauLevenshtein) Distance(a, b string) int {
	return matchr.DamerauLevenshtein(a, b)
}

// NewDistance returns the distance function named by STRING_DISTANCE.
func NewDistance(kind string) (StringDistance, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "levenshtein":
		return Levenshtein{}, nil
	case "damerau", "damerau-levenshtein":
		return DamerauLevenshtein{}, nil
	default:
		return Levenshtein{}, apperrors.WrapErrorf(apperrors.ErrConfigurationMissing, "unknown string distance %q", kind)
	}
}
