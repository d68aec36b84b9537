// Package transcript snaps speech-to-text output onto the corpus vocabulary.
//
// Voice input reaches the service as a transcript produced on the client.
// Recognisers trained on Spanish and English routinely mangle Cmiique Iitom
// words ("tahejok" for "tahejöc"), which would push otherwise exact phrases
// below the corpus threshold. The [Snapper] replaces each unknown token with
// the most similar vocabulary word when the similarity is high enough.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const (
	defaultThreshold = 0.88
	defaultMinLength = 3
)

// Correction captures a single token substitution.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
}

// Option is a functional option for configuring a [Snapper].
type Option func(*Snapper)

// WithThreshold sets the minimum Jaro-Winkler similarity for a substitution.
// Default: 0.88.
func WithThreshold(t float64) Option {
	return func(s *Snapper) {
		s.threshold = t
	}
}

// WithMinLength sets the shortest token, in runes, considered for snapping.
// Shorter tokens match too many vocabulary words by chance. Default: 3.
func WithMinLength(n int) Option {
	return func(s *Snapper) {
		s.minLength = n
	}
}

// Snapper corrects transcripts against a vocabulary. It holds no mutable state
// and is safe for concurrent use.
type Snapper struct {
	threshold float64
	minLength int
}

// New returns a Snapper configured with opts.
func New(opts ...Option) *Snapper {
	s := &Snapper{
		threshold: defaultThreshold,
		minLength: defaultMinLength,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snap replaces every word of text that is not in vocabulary with the
// vocabulary word of highest Jaro-Winkler similarity, if that similarity
// reaches the threshold. For English the two words must also share a Double
// Metaphone code; the encoding is tuned for English spelling and says nothing
// useful about Seri or Spanish.
//
// Words are split the way corpus.Index.Vocabulary splits them, so a token
// such as "hapx'ata" is checked part by part and left alone when every part
// is known. vocabulary is expected in normalised form. Punctuation around and
// inside a token is preserved. Ties go to the earlier vocabulary word.
func (s *Snapper) Snap(text string, l lang.Language, vocabulary []string) (string, []Correction) {
	if len(vocabulary) == 0 || strings.TrimSpace(text) == "" {
		return text, nil
	}
	known := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		known[v] = struct{}{}
	}

	tokens := strings.Fields(text)
	var corrections []Correction
	for i, tok := range tokens {
		lead, core, trail := splitPunct(tok)
		key := textnorm.Normalize(core)
		segs := segments(key)

		changed := false
		for j, seg := range segs {
			if !seg.word || len([]rune(seg.text)) < s.minLength {
				continue
			}
			if _, ok := known[seg.text]; ok {
				continue
			}
			best, score := s.closest(seg.text, l, vocabulary)
			if best == "" {
				continue
			}
			original := seg.text
			if len(segs) == 1 {
				original = core
			}
			segs[j].text = best
			changed = true
			corrections = append(corrections, Correction{Original: original, Corrected: best, Confidence: score})
		}
		if changed {
			tokens[i] = lead + joinSegments(segs) + trail
		}
	}
	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(tokens, " "), corrections
}

// segment is a maximal run of token runes (word) or of separator runes.
type segment struct {
	text string
	word bool
}

// segments splits normalised text into alternating word and separator runs.
func segments(key string) []segment {
	var (
		segs  []segment
		start int
	)
	for i, r := range key {
		word := textnorm.IsTokenRune(r)
		if i == 0 {
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(key[:i])
		if textnorm.IsTokenRune(prev) != word {
			segs = append(segs, segment{text: key[start:i], word: !word})
			start = i
		}
	}
	if start < len(key) {
		first, _ := utf8.DecodeRuneInString(key[start:])
		segs = append(segs, segment{text: key[start:], word: textnorm.IsTokenRune(first)})
	}
	return segs
}

func joinSegments(segs []segment) string {
	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteString(seg.text)
	}
	return sb.String()
}

func (s *Snapper) closest(key string, l lang.Language, vocabulary []string) (string, float64) {
	var keyCodes map[string]struct{}
	if l == lang.English {
		keyCodes = metaphoneCodes(key)
	}

	var (
		best      string
		bestScore float64
	)
	for _, v := range vocabulary {
		score := matchr.JaroWinkler(key, v, false)
		if score < s.threshold || score <= bestScore {
			continue
		}
		if keyCodes != nil && !sharesCode(keyCodes, metaphoneCodes(v)) {
			continue
		}
		best, bestScore = v, score
	}
	return best, bestScore
}

// splitPunct separates leading and trailing punctuation from the word core.
func splitPunct(tok string) (lead, core, trail string) {
	isPunct := func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }
	core = strings.TrimLeftFunc(tok, isPunct)
	lead = tok[:len(tok)-len(core)]
	trimmed := strings.TrimRightFunc(core, isPunct)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// metaphoneCodes returns the non-empty Double Metaphone codes of w.
func metaphoneCodes(w string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(w)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func sharesCode(a, b map[string]struct{}) bool {
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}
