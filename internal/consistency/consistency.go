// Package consistency guards proposed translations by translating them back
// through the corpus and comparing the result with the original text.
package consistency

import (
	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const (
	backMinScore = 0.85
	nearScore    = 0.9

	exactConfidence   = 1.0
	nearConfidence    = 0.9
	unknownConfidence = 0.5
)

// Result is the verdict on a proposed translation.
type Result struct {
	Valid           bool    `json:"valid"`
	Confidence      float64 `json:"confidence"`
	BackTranslation string  `json:"back_translation,omitempty"`
}

// Checker validates translations against a [match.Matcher]. It is stateless
// and safe for concurrent use.
type Checker struct {
	matcher *match.Matcher
}

// New returns a Checker using m for back-translation.
func New(m *match.Matcher) *Checker {
	return &Checker{matcher: m}
}

// Check translates proposed from to back into from and compares it with
// original. An exact normalised round trip yields confidence 1.0, a
// back-match scoring at least 0.9 yields 0.9, and anything else is reported
// invalid with confidence 0.5.
func (c *Checker) Check(original string, from, to lang.Language, proposed string) Result {
	back := c.matcher.Match(proposed, to, from, match.WithMinScore(backMinScore), match.WithLimit(1))
	if back.Best != nil {
		if textnorm.Normalize(back.Best.TargetText) == textnorm.Normalize(original) {
			return Result{Valid: true, Confidence: exactConfidence, BackTranslation: back.Best.TargetText}
		}
		if back.Best.Score >= nearScore {
			return Result{Valid: true, Confidence: nearConfidence, BackTranslation: back.Best.TargetText}
		}
	}
	return Result{Valid: false, Confidence: unknownConfidence}
}
