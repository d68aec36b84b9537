// Package lang defines the closed set of languages Cmiique translates between.
//
// The service works with exactly three languages: Cmiique Iitom (the Seri
// language), Spanish, and English. They are modelled as a string-backed
// enumeration so that tags survive YAML/JSON round trips unchanged while still
// being validated at every boundary via [Language.IsValid] or [Parse].
package lang

import (
	"fmt"
	"strings"
)

// Language is a supported language tag.
type Language string

const (
	// Seri is Cmiique Iitom, the language of the Comcaac people.
	Seri Language = "seri"

	// Spanish is the Spanish language.
	Spanish Language = "es"

	// English is the English language.
	English Language = "en"
)

// All returns every supported language in canonical order (Seri, Spanish,
// English). Corpus rows list their columns in this order.
func All() []Language {
	return []Language{Seri, Spanish, English}
}

// IsValid reports whether l is one of the three supported languages.
func (l Language) IsValid() bool {
	switch l {
	case Seri, Spanish, English:
		return true
	}
	return false
}

// String returns the tag.
func (l Language) String() string {
	return string(l)
}

// DisplayName returns the human-readable name used in prompts and logs.
func (l Language) DisplayName() string {
	switch l {
	case Seri:
		return "Cmiique Iitom (Seri)"
	case Spanish:
		return "Spanish"
	case English:
		return "English"
	default:
		return string(l)
	}
}

// aliases maps accepted spellings to their canonical tag.
var aliases = map[string]Language{
	"seri":          Seri,
	"cmiique":       Seri,
	"cmiique iitom": Seri,
	"es":            Spanish,
	"spa":           Spanish,
	"spanish":       Spanish,
	"español":       Spanish,
	"espanol":       Spanish,
	"en":            English,
	"eng":           English,
	"english":       English,
}

// Parse converts s to a [Language]. Matching is case-insensitive and accepts
// common long names ("spanish", "cmiique") besides the short tags.
func Parse(s string) (Language, error) {
	if l, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return "", fmt.Errorf("lang: unsupported language %q; valid values: seri, es, en", s)
}
