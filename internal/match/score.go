// Package match ranks corpus entries against an input phrase.
//
// Scoring is lexical and tiered: an exact normalised match scores 1.0, a
// containment match scores up to 0.85 in proportion to the length ratio, and
// anything else scores 0.75 times the Jaccard overlap of the token sets. The
// scorer and the [Matcher] never fail and never panic.
package match

import (
	"strings"

	"github.com/MrWong99/cmiique/internal/textnorm"
)

const (
	exactScore     = 1.0
	substringScale = 0.85
	tokenScale     = 0.75
)

// Score returns the similarity of query and candidate in [0, 1].
//
// Containment lengths are measured in bytes of the normalised UTF-8 text.
func Score(query, candidate string) float64 {
	q := textnorm.Normalize(query)
	c := textnorm.Normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return exactScore
	}
	if len(c) > len(q) {
		q, c = c, q
	}
	// q is now the longer string.
	if strings.Contains(q, c) {
		return substringScale * float64(len(c)) / float64(len(q))
	}
	return tokenScale * textnorm.Jaccard(textnorm.Tokenize(q), textnorm.Tokenize(c))
}
