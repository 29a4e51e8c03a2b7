package dedupe

import (
	"unicode/utf8"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// Score returns the similarity of two records over the given fields, in [0,1].
// A record is never scored against itself; same-ID pairs return 0.
func Score(a, b *domain.Record, fields FieldSet, s Sensitivity) float64 {
	if a.ID == b.ID || len(fields) == 0 {
		return 0
	}
	na := make([]string, len(fields))
	nb := make([]string, len(fields))
	for i, f := range fields {
		na[i] = Normalize(f, a.Field(f), s)
		nb[i] = Normalize(f, b.Field(f), s)
	}
	return scoreNormalized(na, nb, s)
}

// scoreNormalized aggregates per-field similarity of pre-normalized values.
func scoreNormalized(a, b []string, s Sensitivity) float64 {
	var sum float64
	for i := range a {
		sim := fieldSimilarity(a[i], b[i], s)
		if s.exact() && sim < 1 {
			return 0
		}
		sum += sim
	}
	return sum / float64(len(a))
}

func fieldSimilarity(a, b string, s Sensitivity) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if s.exact() {
		return 0
	}
	return stringSimilarity(a, b)
}

// stringSimilarity is 1 - levenshtein/maxLen, measured in runes.
func stringSimilarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance([]rune(a), []rune(b)))/float64(maxLen)
}

// levenshteinDistance calculates the edit distance using two rolling rows.
func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
