package corpus

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/cmiique/pkg/lang"
)

// File is the on-disk layout of a corpus YAML file.
//
// Example:
//
//	version: "2024.06"
//	phrases:
//	  - key: greeting
//	    seri: Hant
//	    es: Hola
//	    en: Hello
//	  - key: thanks
//	    seri: Tahejöc
//	    es: Gracias
//	    en: Thank you
type File struct {
	Version string      `yaml:"version"`
	Phrases []PhraseRow `yaml:"phrases"`
}

// PhraseRow is one row of the three parallel language columns.
type PhraseRow struct {
	Key  string `yaml:"key"`
	Seri string `yaml:"seri"`
	ES   string `yaml:"es"`
	EN   string `yaml:"en"`
}

// Entry converts the row into a [PhraseEntry].
func (r PhraseRow) Entry() PhraseEntry {
	return PhraseEntry{
		Key: r.Key,
		Text: map[lang.Language]string{
			lang.Seri:    r.Seri,
			lang.Spanish: r.ES,
			lang.English: r.EN,
		},
	}
}

// LoadFile reads the corpus YAML file at path and builds an [Index].
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %q: %w", path, err)
	}
	defer f.Close()

	ix, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("corpus: parse %q: %w", path, err)
	}
	return ix, nil
}

// LoadFromReader decodes corpus YAML from r and builds an [Index].
// Unknown keys are rejected to catch typos in hand-curated files.
func LoadFromReader(r io.Reader) (*Index, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("corpus: decode yaml: %w", err)
	}

	entries := make([]PhraseEntry, 0, len(cf.Phrases))
	for _, row := range cf.Phrases {
		entries = append(entries, row.Entry())
	}
	return NewIndex(entries, WithVersion(cf.Version))
}
