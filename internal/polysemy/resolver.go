package polysemy

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const (
	wholeWordHit = 2
	substringHit = 1
)

// compiledSense is a [Sense] with its keywords prepared for matching.
type compiledSense struct {
	id           SenseID
	keywords     []string
	translations map[lang.Language]string
}

type compiledWord struct {
	def    SenseID
	senses []compiledSense
}

// Resolver answers sense questions over a validated [Table]. It is immutable
// after construction and safe for concurrent use.
type Resolver struct {
	words map[string]compiledWord
}

// NewResolver validates t and prepares it for lookups.
func NewResolver(t Table) (*Resolver, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("polysemy: invalid table: %w", err)
	}

	r := &Resolver{words: make(map[string]compiledWord, len(t.Words))}
	for _, w := range t.Words {
		cw := compiledWord{def: w.Default, senses: make([]compiledSense, 0, len(w.Senses))}
		for _, s := range w.Senses {
			cs := compiledSense{id: s.ID, translations: make(map[lang.Language]string, len(s.Translations))}
			seen := make(map[string]bool)
			// Keywords of every language count: the context language is not known.
			for _, l := range lang.All() {
				for _, kw := range s.Keywords[l] {
					kw = cleanContext(kw)
					if kw != "" && !seen[kw] {
						seen[kw] = true
						cs.keywords = append(cs.keywords, kw)
					}
				}
			}
			for l, tr := range s.Translations {
				cs.translations[l] = strings.TrimSpace(tr)
			}
			cw.senses = append(cw.senses, cs)
		}
		r.words[textnorm.Normalize(w.Word)] = cw
	}
	return r, nil
}

// Known reports whether word is one of the ambiguous words.
func (r *Resolver) Known(word string) bool {
	_, ok := r.words[textnorm.Normalize(word)]
	return ok
}

// Words returns the number of ambiguous words in the table.
func (r *Resolver) Words() int {
	return len(r.words)
}

// DetectContext picks the sense of word best supported by surrounding.
//
// Each keyword found in the context as a whole word adds 2 to its sense, and
// one found only inside a longer word adds 1. The sense with the strictly
// highest total wins; ties go to the first-listed sense. When nothing scores
// the default sense is returned if no surrounding text was given at all, and
// ("", false) otherwise. Unknown words also yield ("", false).
func (r *Resolver) DetectContext(word, surrounding string) (SenseID, bool) {
	w, ok := r.words[textnorm.Normalize(word)]
	if !ok {
		return "", false
	}

	ctx := cleanContext(surrounding + " " + word)
	padded := " " + ctx + " "

	var (
		best      SenseID
		bestScore int
	)
	for _, s := range w.senses {
		score := 0
		for _, kw := range s.keywords {
			switch {
			case strings.Contains(padded, " "+kw+" "):
				score += wholeWordHit
			case strings.Contains(ctx, kw):
				score += substringHit
			}
		}
		if score > bestScore {
			best, bestScore = s.id, score
		}
	}

	if bestScore > 0 {
		return best, true
	}
	if strings.TrimSpace(surrounding) == "" {
		return w.def, true
	}
	return "", false
}

// Resolve returns the translation of word in sense into target.
func (r *Resolver) Resolve(word string, sense SenseID, target lang.Language) (string, bool) {
	w, ok := r.words[textnorm.Normalize(word)]
	if !ok {
		return "", false
	}
	for _, s := range w.senses {
		if s.id != sense {
			continue
		}
		tr := s.translations[target]
		return tr, tr != ""
	}
	return "", false
}

// Default returns the default sense of word.
func (r *Resolver) Default(word string) (SenseID, bool) {
	w, ok := r.words[textnorm.Normalize(word)]
	if !ok {
		return "", false
	}
	return w.def, true
}

// cleanContext normalises s and turns punctuation and symbols into spaces so
// that word boundaries are plain single spaces.
func cleanContext(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, textnorm.Normalize(s))
	return strings.Join(strings.Fields(s), " ")
}
