// Package polysemy disambiguates the few Cmiique Iitom words whose meaning
// depends on context.
//
// A [Table] lists each ambiguous word with its candidate senses. A sense
// carries keyword evidence (per context language) and the translation of the
// word in that sense. The [Resolver] scores the senses against the text
// surrounding the word and picks the strongest one; callers use the result to
// override a literal corpus or generative translation.
package polysemy

import (
	"errors"
	"fmt"

	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/pkg/lang"
)

// SenseID names one meaning of an ambiguous word (e.g. "greeting", "land").
type SenseID string

// Sense is one meaning of an ambiguous word.
type Sense struct {
	ID SenseID `yaml:"id" json:"id"`

	// Keywords are evidence terms per context language. Multi-word keywords
	// are allowed.
	Keywords map[lang.Language][]string `yaml:"keywords" json:"keywords,omitempty"`

	// Translations renders the word in this sense per target language.
	Translations map[lang.Language]string `yaml:"translations" json:"translations,omitempty"`
}

// Word is an ambiguous word and its senses in priority order. The first
// listed sense wins score ties.
type Word struct {
	Word    string  `yaml:"word" json:"word"`
	Default SenseID `yaml:"default" json:"default"`
	Senses  []Sense `yaml:"senses" json:"senses"`
}

// Table is the full set of ambiguous words.
type Table struct {
	Words []Word `yaml:"words" json:"words"`
}

// Validate checks the table for structural problems and returns all of them
// joined.
func (t Table) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(t.Words))
	for i, w := range t.Words {
		prefix := fmt.Sprintf("words[%d]", i)
		key := textnorm.Normalize(w.Word)
		if key == "" {
			errs = append(errs, fmt.Errorf("%s: word must not be empty", prefix))
			continue
		}
		prefix = fmt.Sprintf("words[%d] (%s)", i, w.Word)
		if seen[key] {
			errs = append(errs, fmt.Errorf("%s: duplicate word", prefix))
		}
		seen[key] = true

		if len(w.Senses) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one sense is required", prefix))
			continue
		}
		ids := make(map[SenseID]bool, len(w.Senses))
		for j, s := range w.Senses {
			if s.ID == "" {
				errs = append(errs, fmt.Errorf("%s: senses[%d]: id must not be empty", prefix, j))
				continue
			}
			if ids[s.ID] {
				errs = append(errs, fmt.Errorf("%s: duplicate sense %q", prefix, s.ID))
			}
			ids[s.ID] = true
			for l := range s.Keywords {
				if !l.IsValid() {
					errs = append(errs, fmt.Errorf("%s: sense %q: keywords: unsupported language %q", prefix, s.ID, l))
				}
			}
			for l := range s.Translations {
				if !l.IsValid() {
					errs = append(errs, fmt.Errorf("%s: sense %q: translations: unsupported language %q", prefix, s.ID, l))
				}
			}
		}
		if w.Default == "" {
			errs = append(errs, fmt.Errorf("%s: default sense is required", prefix))
		} else if !ids[w.Default] {
			errs = append(errs, fmt.Errorf("%s: default sense %q is not one of its senses", prefix, w.Default))
		}
	}
	return errors.Join(errs...)
}
