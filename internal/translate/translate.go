// Package translate orchestrates a single translation request.
//
// A [Translator] looks the text up in the curated corpus first. When the best
// match does not reach the threshold of the requested quality tier it falls
// back to a generative model, if one is configured, and runs the model output
// through three guards before returning it:
//
//  1. immediately repeated word windows are collapsed,
//  2. single-word Seri input that is polysemous is answered from the sense
//     table instead of the model,
//  3. the output is translated back through the corpus and compared with the
//     input to compute its confidence.
//
// Corpus, polysemy table and matching settings can be swapped at runtime;
// in-flight requests keep the snapshot they started with.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/cmiique/internal/consistency"
	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/internal/generative"
	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/internal/observe"
	"github.com/MrWong99/cmiique/internal/policy"
	"github.com/MrWong99/cmiique/internal/polysemy"
	"github.com/MrWong99/cmiique/internal/textnorm"
	"github.com/MrWong99/cmiique/internal/transcript"
	"github.com/MrWong99/cmiique/pkg/lang"
)

var (
	// ErrInvalidLanguage is returned for a language outside seri, es and en.
	ErrInvalidLanguage = errors.New("translate: unsupported language")

	// ErrSameLanguage is returned when source and target are equal.
	ErrSameLanguage = errors.New("translate: source and target language are the same")

	// ErrEmptyText is returned when the text is blank.
	ErrEmptyText = errors.New("translate: text must not be empty")
)

// Source names where a translation came from.
type Source string

const (
	SourceCorpus     Source = "corpus"
	SourceGenerative Source = "generative"
	SourcePolysemy   Source = "polysemy"
	// SourceNone means no trusted translation exists; only suggestions are
	// returned.
	SourceNone Source = "none"
)

// Request is a translation request.
type Request struct {
	Text string        `json:"text"`
	From lang.Language `json:"from"`
	To   lang.Language `json:"to"`

	// Tier selects the corpus acceptance threshold. Empty means the
	// translator's default tier; unknown names act as balanced.
	Tier policy.Tier `json:"tier,omitempty"`

	// Context is surrounding text used to pick the sense of a polysemous
	// single-word input.
	Context string `json:"context,omitempty"`

	// Transcribed marks speech-to-text output; its tokens are snapped to the
	// corpus vocabulary before matching.
	Transcribed bool `json:"transcribed,omitempty"`
}

// Result is the outcome of [Translator.Translate].
type Result struct {
	Text       string      `json:"text"`
	Source     Source      `json:"source"`
	Confidence float64     `json:"confidence"`
	Tier       policy.Tier `json:"tier"`

	// Verified is true for corpus and polysemy answers, and for generative
	// answers that passed the consistency check.
	Verified        bool             `json:"verified"`
	BackTranslation string           `json:"back_translation,omitempty"`
	Sense           polysemy.SenseID `json:"sense,omitempty"`

	// Input is the text that was matched, after transcript snapping.
	Input       string                  `json:"input"`
	Corrections []transcript.Correction `json:"corrections,omitempty"`
	Suggestions []match.Suggestion      `json:"suggestions"`
}

// Settings are the matching parameters that can change at runtime.
type Settings struct {
	MinScore float64
	Limit    int
	Tier     policy.Tier
}

// DefaultSettings returns the matcher defaults and the balanced tier.
func DefaultSettings() Settings {
	return Settings{MinScore: match.DefaultMinScore, Limit: match.DefaultLimit, Tier: policy.Balanced}
}

// corpusState bundles everything derived from one corpus index.
type corpusState struct {
	matcher    *match.Matcher
	checker    *consistency.Checker
	vocabulary map[lang.Language][]string
}

func newCorpusState(ix *corpus.Index) *corpusState {
	m := match.NewMatcher(ix)
	vocab := make(map[lang.Language][]string, len(lang.All()))
	for _, l := range lang.All() {
		vocab[l] = ix.Vocabulary(l)
	}
	return &corpusState{matcher: m, checker: consistency.New(m), vocabulary: vocab}
}

// Option configures a [Translator].
type Option func(*Translator)

// WithGenerator enables the generative fallback.
func WithGenerator(g *generative.Generator) Option {
	return func(t *Translator) { t.generator = g }
}

// WithResolver sets the polysemy resolver. Without it the built-in table is
// used.
func WithResolver(r *polysemy.Resolver) Option {
	return func(t *Translator) { t.resolver.Store(r) }
}

// WithSnapper replaces the default transcript snapper.
func WithSnapper(s *transcript.Snapper) Option {
	return func(t *Translator) { t.snapper = s }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Translator) { t.metrics = m }
}

// WithSettings sets the initial matching settings.
func WithSettings(s Settings) Option {
	return func(t *Translator) { t.SetSettings(s) }
}

// Translator answers translation requests. It is safe for concurrent use.
type Translator struct {
	corpus    atomic.Pointer[corpusState]
	resolver  atomic.Pointer[polysemy.Resolver]
	settings  atomic.Pointer[Settings]
	generator *generative.Generator
	snapper   *transcript.Snapper
	metrics   *observe.Metrics
}

// New returns a Translator over ix.
func New(ix *corpus.Index, opts ...Option) (*Translator, error) {
	t := &Translator{}
	t.SetIndex(ix)
	t.SetSettings(DefaultSettings())
	for _, o := range opts {
		o(t)
	}
	if t.resolver.Load() == nil {
		r, err := polysemy.NewResolver(polysemy.Builtin())
		if err != nil {
			return nil, fmt.Errorf("translate: builtin polysemy table: %w", err)
		}
		t.resolver.Store(r)
	}
	if t.snapper == nil {
		t.snapper = transcript.New()
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}
	return t, nil
}

// SetIndex atomically replaces the corpus.
func (t *Translator) SetIndex(ix *corpus.Index) {
	t.corpus.Store(newCorpusState(ix))
}

// SetResolver atomically replaces the polysemy resolver. nil is ignored.
func (t *Translator) SetResolver(r *polysemy.Resolver) {
	if r != nil {
		t.resolver.Store(r)
	}
}

// SetSettings atomically replaces the matching settings. Zero fields keep
// their defaults.
func (t *Translator) SetSettings(s Settings) {
	d := DefaultSettings()
	if s.MinScore <= 0 {
		s.MinScore = d.MinScore
	}
	if s.Limit <= 0 {
		s.Limit = d.Limit
	}
	if !s.Tier.IsValid() {
		s.Tier = d.Tier
	}
	t.settings.Store(&s)
}

// Settings returns the current matching settings.
func (t *Translator) Settings() Settings {
	return *t.settings.Load()
}

// Index returns the current corpus.
func (t *Translator) Index() *corpus.Index {
	return t.corpus.Load().matcher.Index()
}

// Matcher returns the matcher of the current corpus.
func (t *Translator) Matcher() *match.Matcher {
	return t.corpus.Load().matcher
}

// Checker returns the consistency checker of the current corpus.
func (t *Translator) Checker() *consistency.Checker {
	return t.corpus.Load().checker
}

// Resolver returns the current polysemy resolver.
func (t *Translator) Resolver() *polysemy.Resolver {
	return t.resolver.Load()
}

// Generative reports whether a generative fallback is configured.
func (t *Translator) Generative() bool {
	return t.generator != nil
}

// Validate checks the language pair and text of req.
func Validate(req Request) error {
	if !req.From.IsValid() {
		return fmt.Errorf("%w: from %q", ErrInvalidLanguage, req.From)
	}
	if !req.To.IsValid() {
		return fmt.Errorf("%w: to %q", ErrInvalidLanguage, req.To)
	}
	if req.From == req.To {
		return ErrSameLanguage
	}
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Translate answers req. Validation failures return the sentinel errors of
// this package. A failing generative model degrades to [SourceNone]; only a
// cancelled ctx is returned as an error after validation.
func (t *Translator) Translate(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	cs := t.corpus.Load()
	settings := t.Settings()
	tier := req.Tier
	switch {
	case tier == "":
		tier = settings.Tier
	case !tier.IsValid():
		tier = policy.Balanced
	}

	ctx, span := observe.StartSpan(ctx, "translate.Translate",
		trace.WithAttributes(
			attribute.String("from", string(req.From)),
			attribute.String("to", string(req.To)),
			attribute.String("tier", string(tier)),
			attribute.Bool("transcribed", req.Transcribed),
		),
	)
	defer span.End()

	res := &Result{Tier: tier, Input: strings.TrimSpace(req.Text)}
	if req.Transcribed {
		res.Input, res.Corrections = t.snapper.Snap(res.Input, req.From, cs.vocabulary[req.From])
	}

	start := time.Now()
	m := cs.matcher.Match(res.Input, req.From, req.To,
		match.WithMinScore(settings.MinScore),
		match.WithLimit(settings.Limit),
	)
	t.metrics.RecordMatch(ctx, string(req.From), string(req.To), time.Since(start).Seconds())
	res.Suggestions = m.Suggestions
	if res.Suggestions == nil {
		res.Suggestions = []match.Suggestion{}
	}

	decision := policy.Decide(m.BestScore(), tier)
	t.metrics.RecordDecision(ctx, string(tier), decision.String())
	span.SetAttributes(
		attribute.Float64("best_score", m.BestScore()),
		attribute.String("decision", decision.String()),
	)

	switch {
	case decision == policy.UseCorpus:
		res.Text = m.Best.TargetText
		res.Source = SourceCorpus
		res.Confidence = m.Best.Score
		res.Verified = true
	case t.generator == nil:
		res.Source = SourceNone
	default:
		if err := t.generate(ctx, req, cs, res); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	t.metrics.RecordTranslation(ctx, string(res.Source), string(req.From), string(req.To))
	observe.Logger(ctx).Debug("translated",
		"from", req.From,
		"to", req.To,
		"source", res.Source,
		"confidence", res.Confidence,
		"suggestions", len(res.Suggestions),
	)
	return res, nil
}

// generate fills res from the generative model and its guards.
func (t *Translator) generate(ctx context.Context, req Request, cs *corpusState, res *Result) error {
	start := time.Now()
	text, err := t.generator.Translate(ctx, res.Input, req.From, req.To, res.Suggestions)
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.metrics.GenerativeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("status", status)))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("translate: %w", ctxErr)
		}
		observe.Logger(ctx).Warn("generative fallback failed, returning suggestions only", "err", err)
		res.Source = SourceNone
		return nil
	}

	text = generative.CollapseRepeats(text)

	if word, ok := singleWord(res.Input); ok && req.From == lang.Seri {
		r := t.resolver.Load()
		if sense, ok := r.DetectContext(word, req.Context); ok {
			if tr, ok := r.Resolve(word, sense, req.To); ok {
				t.metrics.PolysemyOverrides.Add(ctx, 1,
					metric.WithAttributes(observe.Attr("sense", string(sense))))
				res.Text = tr
				res.Source = SourcePolysemy
				res.Confidence = 1.0
				res.Verified = true
				res.Sense = sense
				return nil
			}
		}
	}

	verdict := cs.checker.Check(res.Input, req.From, req.To, text)
	t.metrics.RecordConsistency(ctx, consistencyLabel(verdict))

	res.Text = text
	res.Source = SourceGenerative
	res.Confidence = verdict.Confidence
	res.Verified = verdict.Valid
	res.BackTranslation = verdict.BackTranslation
	return nil
}

// singleWord returns the only token of text.
func singleWord(text string) (string, bool) {
	toks := textnorm.Tokenize(text)
	if len(toks) != 1 {
		return "", false
	}
	for tok := range toks {
		return tok, true
	}
	return "", false
}

func consistencyLabel(r consistency.Result) string {
	switch {
	case !r.Valid:
		return "invalid"
	case r.Confidence >= 1:
		return "exact"
	default:
		return "near"
	}
}
