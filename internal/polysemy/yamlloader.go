package polysemy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a polysemy table from the YAML file at path.
//
// Example:
//
//	words:
//	  - word: Hant
//	    default: greeting
//	    senses:
//	      - id: greeting
//	        keywords:
//	          es: [hola, saludo]
//	          en: [hello, greeting]
//	        translations:
//	          es: Hola
//	          en: Hello
func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("polysemy: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadFromReader(f)
	if err != nil {
		return Table{}, fmt.Errorf("polysemy: parse %q: %w", path, err)
	}
	return t, nil
}

// LoadFromReader decodes a polysemy table from r and validates it.
func LoadFromReader(r io.Reader) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return Table{}, fmt.Errorf("polysemy: decode yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("polysemy: %w", err)
	}
	return t, nil
}
