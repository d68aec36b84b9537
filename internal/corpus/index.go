package corpus

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"sort"
	"strings"

	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/pkg/lang"
)

// ErrDuplicateKey is returned by [NewIndex] when two entries share a key.
var ErrDuplicateKey = errors.New("corpus: duplicate phrase key")

// ErrEmptyKey is returned by [NewIndex] when an entry has no key.
var ErrEmptyKey = errors.New("corpus: phrase key must not be empty")

// Index is the immutable, ordered phrase table. Enumeration order is the
// order entries were supplied to [NewIndex]; the matcher relies on it to
// break score ties.
type Index struct {
	version string
	entries []PhraseEntry
	byKey   map[string]int
}

// IndexOption configures an [Index] at construction time.
type IndexOption func(*Index)

// WithVersion records the version label of the source table (e.g. the
// "version" field of a corpus YAML file). It is reported by health checks and
// logs only.
func WithVersion(v string) IndexOption {
	return func(ix *Index) {
		ix.version = v
	}
}

// NewIndex builds an [Index] from entries. The entries and their text maps are
// copied, so later mutation of the arguments cannot affect the index.
//
// Keys must be non-empty and unique. Text values are trimmed; entries whose
// text is missing for some language are kept and skipped per language pair at
// match time.
func NewIndex(entries []PhraseEntry, opts ...IndexOption) (*Index, error) {
	ix := &Index{
		entries: make([]PhraseEntry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}
	for _, o := range opts {
		o(ix)
	}

	for i, e := range entries {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return nil, fmt.Errorf("%w (entry %d)", ErrEmptyKey, i)
		}
		if prev, ok := ix.byKey[key]; ok {
			return nil, fmt.Errorf("%w: %q at entries %d and %d", ErrDuplicateKey, key, prev, i)
		}

		text := make(map[lang.Language]string, len(e.Text))
		for l, s := range e.Text {
			if !l.IsValid() {
				return nil, fmt.Errorf("corpus: entry %q: unsupported language %q", key, l)
			}
			if s = strings.TrimSpace(s); s != "" {
				text[l] = s
			}
		}

		ix.byKey[key] = len(ix.entries)
		ix.entries = append(ix.entries, PhraseEntry{Key: key, Text: text})
	}
	return ix, nil
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Version returns the version label set via [WithVersion].
func (ix *Index) Version() string {
	if ix == nil {
		return ""
	}
	return ix.version
}

// All iterates over the entries in enumeration order. Callers must not
// modify the yielded Text maps.
func (ix *Index) All() iter.Seq2[int, PhraseEntry] {
	return func(yield func(int, PhraseEntry) bool) {
		if ix == nil {
			return
		}
		for i, e := range ix.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Lookup returns the entry stored under key.
func (ix *Index) Lookup(key string) (PhraseEntry, bool) {
	if ix == nil {
		return PhraseEntry{}, false
	}
	i, ok := ix.byKey[key]
	if !ok {
		return PhraseEntry{}, false
	}
	e := ix.entries[i]
	return PhraseEntry{Key: e.Key, Text: maps.Clone(e.Text)}, true
}

// Vocabulary returns the sorted set of normalised tokens appearing in the
// corpus text for l.
func (ix *Index) Vocabulary(l lang.Language) []string {
	seen := make(map[string]struct{})
	for _, e := range ix.All() {
		for tok := range textnorm.Tokenize(e.Text[l]) {
			seen[tok] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	return vocab
}

// Coverage counts, per language, the entries that carry text in it.
func (ix *Index) Coverage() map[lang.Language]int {
	cov := make(map[lang.Language]int, 3)
	for _, e := range ix.All() {
		for l, s := range e.Text {
			if s != "" {
				cov[l]++
			}
		}
	}
	return cov
}
