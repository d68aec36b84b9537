package generative

import (
	"slices"
	"strings"
	"unicode"

	"github.com/MrWong99/cmiique/internal/textnorm"
)

// CollapseRepeats removes immediately repeated windows of two or three words,
// a stutter some models produce ("the sea the sea is calm" becomes "the sea is
// calm"). Words are compared case-, accent- and punctuation-insensitively and
// the first occurrence is kept. The rule is applied until nothing changes.
//
// A single repeated word is left alone since doubling is legitimate in
// Cmiique Iitom and in emphatic Spanish. Text without repeats is returned
// unchanged; otherwise whitespace is collapsed to single spaces.
func CollapseRepeats(text string) string {
	words := strings.Fields(text)
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = wordKey(w)
	}

	changed := false
	for {
		i, n := findRepeat(keys)
		if n == 0 {
			break
		}
		words = slices.Delete(words, i+n, i+2*n)
		keys = slices.Delete(keys, i+n, i+2*n)
		changed = true
	}
	if !changed {
		return text
	}
	return strings.Join(words, " ")
}

// findRepeat returns the start and width of the first window of three, then
// two, words that is immediately followed by itself. n is 0 when none exists.
func findRepeat(keys []string) (start, n int) {
	for _, width := range []int{3, 2} {
		for i := 0; i+2*width <= len(keys); i++ {
			if windowEqual(keys[i:i+width], keys[i+width:i+2*width]) {
				return i, width
			}
		}
	}
	return 0, 0
}

func windowEqual(a, b []string) bool {
	for i := range a {
		if a[i] == "" || a[i] != b[i] {
			return false
		}
	}
	return true
}

func wordKey(w string) string {
	return strings.TrimFunc(textnorm.Normalize(w), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
