package match

import (
	"slices"
	"strings"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const (
	// DefaultMinScore is the lowest score a candidate needs to be suggested.
	DefaultMinScore = 0.6

	// DefaultLimit is the maximum number of suggestions returned.
	DefaultLimit = 5
)

// Suggestion is one ranked corpus candidate.
type Suggestion struct {
	Key        string  `json:"key"`
	SourceText string  `json:"source_text"`
	TargetText string  `json:"target_text"`
	Score      float64 `json:"score"`
}

// Result holds the ranked suggestions of a [Matcher.Match] call. Best is nil
// when Suggestions is empty and otherwise points at Suggestions[0].
type Result struct {
	Best        *Suggestion
	Suggestions []Suggestion
}

// BestScore returns the score of the best suggestion, or 0 when there is none.
func (r Result) BestScore() float64 {
	if r.Best == nil {
		return 0
	}
	return r.Best.Score
}

type options struct {
	minScore float64
	limit    int
}

// Option tunes a single [Matcher.Match] call.
type Option func(*options)

// WithMinScore sets the inclusive score threshold. Default: 0.6.
func WithMinScore(s float64) Option {
	return func(o *options) {
		o.minScore = s
	}
}

// WithLimit caps the number of suggestions. Values ≤ 0 select the default of 5.
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// Matcher searches a [corpus.Index]. It holds no mutable state and is safe for
// concurrent use.
type Matcher struct {
	index *corpus.Index
}

// NewMatcher returns a Matcher over ix. A nil index behaves as an empty corpus.
func NewMatcher(ix *corpus.Index) *Matcher {
	return &Matcher{index: ix}
}

// Index returns the corpus the matcher searches.
func (m *Matcher) Index() *corpus.Index {
	return m.index
}

// Match scores text, written in from, against the from-column of every entry
// that also has text in to. Candidates reaching the threshold are returned
// sorted by descending score; ties keep corpus order.
//
// An empty result is returned when from equals to, when either language is
// unsupported, or when text is blank.
func (m *Matcher) Match(text string, from, to lang.Language, opts ...Option) Result {
	o := options{minScore: DefaultMinScore, limit: DefaultLimit}
	for _, fn := range opts {
		fn(&o)
	}

	if from == to || !from.IsValid() || !to.IsValid() || strings.TrimSpace(text) == "" {
		return Result{}
	}

	var found []Suggestion
	for _, e := range m.index.All() {
		src, dst := e.TextIn(from), e.TextIn(to)
		if src == "" || dst == "" {
			continue
		}
		s := Score(text, src)
		if s < o.minScore {
			continue
		}
		found = append(found, Suggestion{
			Key:        e.Key,
			SourceText: src,
			TargetText: dst,
			Score:      s,
		})
	}

	slices.SortStableFunc(found, func(a, b Suggestion) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(found) > o.limit {
		found = found[:o.limit]
	}

	res := Result{Suggestions: found}
	if len(found) > 0 {
		res.Best = &res.Suggestions[0]
	}
	return res
}
