// Package policy decides whether a corpus match is trustworthy enough to
// return, or whether the caller should fall back to generative translation.
//
// Callers pick a [Tier] according to how costly a wrong literal match would be
// for them; the tier fixes the acceptance threshold.
package policy

import (
	"fmt"
	"strings"
)

// Tier is a caller's risk profile.
type Tier string

const (
	// Permissive accepts loose matches (threshold 0.70). Used for suggestion
	// chips where the user confirms the choice.
	Permissive Tier = "permissive"

	// Relaxed accepts matches from 0.75. Used for conversational text.
	Relaxed Tier = "relaxed"

	// Balanced is the default tier (threshold 0.85).
	Balanced Tier = "balanced"

	// Strict requires 0.92. Used for voice input, where a snapped transcript
	// can produce confident but wrong matches.
	Strict Tier = "strict"

	// Critical requires 0.95. Used for document translation.
	Critical Tier = "critical"
)

var thresholds = map[Tier]float64{
	Permissive: 0.70,
	Relaxed:    0.75,
	Balanced:   0.85,
	Strict:     0.92,
	Critical:   0.95,
}

// Tiers returns every known tier from most to least permissive.
func Tiers() []Tier {
	return []Tier{Permissive, Relaxed, Balanced, Strict, Critical}
}

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	_, ok := thresholds[t]
	return ok
}

// Threshold returns the minimum best score accepted under t. Unknown tiers
// use the [Balanced] threshold.
func (t Tier) Threshold() float64 {
	if th, ok := thresholds[t]; ok {
		return th
	}
	return thresholds[Balanced]
}

// ParseTier parses a tier name case-insensitively. An empty string yields
// [Balanced].
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Balanced, nil
	}
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("policy: unknown tier %q; valid values: permissive, relaxed, balanced, strict, critical", s)
	}
	return t, nil
}

// Decision is the outcome of [Decide].
type Decision int

const (
	// UseFallback means the corpus match is not trusted.
	UseFallback Decision = iota

	// UseCorpus means the best corpus match should be returned as is.
	UseCorpus
)

// String implements [fmt.Stringer].
func (d Decision) String() string {
	if d == UseCorpus {
		return "corpus"
	}
	return "fallback"
}

// Decide accepts the corpus result iff bestScore reaches the threshold of
// tier. A missing match should be passed as score 0.
func Decide(bestScore float64, tier Tier) Decision {
	if bestScore >= tier.Threshold() {
		return UseCorpus
	}
	return UseFallback
}
