// Package generative produces translations with a language model when the
// corpus has no confident match.
//
// The [Generator] prompts an [llm.Provider] with the language pair and the
// closest corpus entries as worked examples, and asks for a JSON reply. Model
// output is untrusted: callers run it through [CollapseRepeats] and the
// consistency checker before showing it.
package generative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/pkg/lang"
	"github.com/MrWong99/cmiique/pkg/provider/llm"
)

// ErrEmptyTranslation is returned when the model replies with no usable text.
var ErrEmptyTranslation = errors.New("generative: empty translation")

const (
	defaultTemperature = 0.2
	defaultMaxHints    = 5
	defaultMaxTokens   = 256
)

const systemPromptTemplate = `You are a careful translator between Cmiique Iitom (the Seri language of Sonora, Mexico), Spanish and English.

Translate the user's text from %s to %s.

Rules:
- Translate meaning, not word by word. Keep it short and natural.
- Prefer the vocabulary of the reference translations below when they apply.
- Do NOT add explanations, alternatives, transliterations or notes.
- Do NOT repeat words or phrases.
- If you do not know a word in Cmiique Iitom, keep it in the source language rather than inventing one.
%s
Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"translation": "<translated text>"}`

type llmResponse struct {
	Translation string `json:"translation"`
}

// Option is a functional option for configuring a [Generator].
type Option func(*Generator)

// WithTemperature sets the sampling temperature. Default: 0.2.
func WithTemperature(temp float64) Option {
	return func(g *Generator) {
		g.temperature = temp
	}
}

// WithMaxHints caps how many corpus suggestions are included as reference
// translations. Default: 5.
func WithMaxHints(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxHints = n
		}
	}
}

// WithMaxTokens caps the completion length. Default: 256.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// Generator translates text with an [llm.Provider]. It is safe for concurrent
// use.
type Generator struct {
	llm         llm.Provider
	temperature float64
	maxHints    int
	maxTokens   int
}

// New returns a Generator backed by provider.
func New(provider llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		llm:         provider,
		temperature: defaultTemperature,
		maxHints:    defaultMaxHints,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Translate asks the model to translate text from one language to another.
// hints are corpus suggestions for text, used as reference translations.
//
// A reply that is not the requested JSON object is taken verbatim. Provider
// failures are returned wrapped; a blank reply yields [ErrEmptyTranslation].
func (g *Generator) Translate(ctx context.Context, text string, from, to lang.Language, hints []match.Suggestion) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranslation
	}
	if !from.IsValid() || !to.IsValid() {
		return "", fmt.Errorf("generative: unsupported language pair %q→%q", from, to)
	}

	req := llm.CompletionRequest{
		SystemPrompt: g.systemPrompt(from, to, hints),
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		JSONMode:     g.llm.Capabilities().SupportsJSONMode,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: text},
		},
	}

	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generative: complete: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyTranslation
	}

	out := parseResponse(resp.Content)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}

func (g *Generator) systemPrompt(from, to lang.Language, hints []match.Suggestion) string {
	var sb strings.Builder
	if n := min(len(hints), g.maxHints); n > 0 {
		sb.WriteString("\nReference translations from the curated corpus:\n")
		for _, h := range hints[:n] {
			fmt.Fprintf(&sb, "- %q => %q\n", h.SourceText, h.TargetText)
		}
	}
	return fmt.Sprintf(systemPromptTemplate, from.DisplayName(), to.DisplayName(), sb.String())
}

// parseResponse extracts the translation from the model output. Non-JSON
// output is returned trimmed.
func parseResponse(content string) string {
	cleaned := stripMarkdown(content)

	var r llmResponse
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return cleaned
	}
	return strings.TrimSpace(r.Translation)
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
