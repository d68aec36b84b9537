// Package corpus holds the curated phrase table that the matcher searches.
//
// Each [PhraseEntry] expresses one concept in the three supported languages.
// The table is loaded once at start-up (from a YAML file via [LoadFile] or
// from PostgreSQL via the postgres sub-package) into an immutable [Index] and
// is never modified afterwards, so an Index may be shared freely between
// goroutines.
package corpus

import "github.com/MrWong99/cmiique/pkg/lang"

// PhraseEntry is one concept of the corpus expressed in every language.
type PhraseEntry struct {
	// Key is a stable identifier, unique within the corpus (e.g. "greeting").
	Key string

	// Text maps each language to the surface text of the concept. A missing
	// or empty value excludes the entry from any language pair touching it.
	Text map[lang.Language]string
}

// TextIn returns the entry's text in l, or "" when it has none.
func (e PhraseEntry) TextIn(l lang.Language) string {
	return e.Text[l]
}

// Complete reports whether the entry carries non-empty text for every
// supported language.
func (e PhraseEntry) Complete() bool {
	for _, l := range lang.All() {
		if e.Text[l] == "" {
			return false
		}
	}
	return true
}
