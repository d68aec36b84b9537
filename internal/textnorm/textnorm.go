// Package textnorm provides the text normalisation and tokenisation shared by
// every matching component.
//
// Both functions are pure and safe for concurrent use. [Normalize] is
// idempotent: Normalize(Normalize(s)) == Normalize(s) for every s.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Apostrophe is the canonical apostrophe every quote variant is folded into.
const Apostrophe = '\''

// quoteFolder maps the apostrophe and single-quote variants found in
// Cmiique Iitom texts (typographic quotes, modifier letters, backtick, acute)
// to [Apostrophe].
var quoteFolder = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"ʼ", "'", // modifier letter apostrophe
	"ʻ", "'", // modifier letter turned comma
	"´", "'", // acute accent
	"`", "'",
)

// Normalize trims and lowercases text, strips combining diacritics, folds
// quote variants into a single apostrophe and collapses whitespace runs into
// one space. It never fails.
func Normalize(text string) string {
	s := strings.ToLower(text)

	// transform.Chain keeps internal buffers, so a fresh chain is built per
	// call to keep Normalize safe for concurrent use.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = quoteFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsTokenRune reports whether r belongs to a token of normalised text.
//
// The Cmiique Iitom and Spanish letters (ö ñ á é í ó ú ü ÿ) are not listed:
// Normalize strips their diacritics, so only ASCII letters and digits remain.
// Text that has not gone through Normalize must not be split with it.
func IsTokenRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// Words normalises text and returns its tokens in order, duplicates included.
func Words(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !IsTokenRune(r)
	})
}

// Tokenize normalises text and splits it into the set of its tokens. Any rune
// outside the token class separates tokens; empty tokens are discarded.
func Tokenize(text string) map[string]struct{} {
	fields := Words(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|. It is 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
