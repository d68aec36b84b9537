package corpus_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const validCorpusYAML = `
version: "test-1"
phrases:
  - key: greeting
    seri: Hant
    es: Hola
    en: Hello
  - key: thanks
    seri: Tahejöc
    es: Gracias
    en: Thank you
  - key: partial
    seri: Ziix
    es: ""
    en: Thing
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	ix, err := corpus.LoadFromReader(strings.NewReader(validCorpusYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ix.Len())
	}
	if ix.Version() != "test-1" {
		t.Errorf("Version() = %q, want %q", ix.Version(), "test-1")
	}
	e, ok := ix.Lookup("thanks")
	if !ok {
		t.Fatal("Lookup(thanks) not found")
	}
	if e.TextIn(lang.Seri) != "Tahejöc" {
		t.Errorf("seri = %q, want %q", e.TextIn(lang.Seri), "Tahejöc")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	input := `
phrases:
  - key: greeting
    seri: Hant
    fr: Bonjour
`
	if _, err := corpus.LoadFromReader(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()

	ix, err := corpus.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader(empty): %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte(validCorpusYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ix, err := corpus.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ix.Len())
	}
}

func TestLoadFile_SampleCorpus(t *testing.T) {
	t.Parallel()

	ix, err := corpus.LoadFile("../../configs/corpus.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if e, ok := ix.Lookup("thanks"); !ok || e.TextIn(lang.Seri) != "Tahejöc" {
		t.Errorf("Lookup(thanks) = %+v, %v", e, ok)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := corpus.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !os.IsNotExist(errorsUnwrapAll(err)) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

// errorsUnwrapAll returns the innermost wrapped error.
func errorsUnwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
