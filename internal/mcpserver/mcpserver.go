// Package mcpserver exposes the translator as Model Context Protocol tools so
// assistants can translate, look up corpus suggestions and disambiguate
// polysemous Seri words.
//
// Tools:
//
//   - translate: corpus-first translation with generative fallback.
//   - suggest: ranked corpus matches for a text.
//   - detect_sense: sense and translation of a polysemous word in context.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/internal/policy"
	"github.com/MrWong99/cmiique/internal/polysemy"
	"github.com/MrWong99/cmiique/internal/translate"
	"github.com/MrWong99/cmiique/pkg/lang"
)

// TranslateInput are the arguments of the translate tool.
type TranslateInput struct {
	Text    string `json:"text" jsonschema:"the text to translate"`
	From    string `json:"from" jsonschema:"source language: seri, es or en"`
	To      string `json:"to" jsonschema:"target language: seri, es or en"`
	Tier    string `json:"tier,omitempty" jsonschema:"quality tier: permissive, relaxed, balanced, strict or critical"`
	Context string `json:"context,omitempty" jsonschema:"surrounding text used to disambiguate single words"`
}

// SuggestInput are the arguments of the suggest tool.
type SuggestInput struct {
	Text     string  `json:"text" jsonschema:"the text to look up"`
	From     string  `json:"from" jsonschema:"source language: seri, es or en"`
	To       string  `json:"to" jsonschema:"target language: seri, es or en"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum similarity in [0, 1]"`
	Limit    int     `json:"limit,omitempty" jsonschema:"maximum number of suggestions"`
}

// SuggestOutput is the result of the suggest tool.
type SuggestOutput struct {
	Suggestions []match.Suggestion `json:"suggestions"`
}

// DetectSenseInput are the arguments of the detect_sense tool.
type DetectSenseInput struct {
	Word    string `json:"word" jsonschema:"the Seri word"`
	Context string `json:"context,omitempty" jsonschema:"surrounding text in any language"`
	Target  string `json:"target" jsonschema:"language of the returned translation: es or en"`
}

// DetectSenseOutput is the result of the detect_sense tool.
type DetectSenseOutput struct {
	Known       bool             `json:"known"`
	Sense       polysemy.SenseID `json:"sense,omitempty"`
	Translation string           `json:"translation,omitempty"`
}

// New returns an MCP server with the translation tools registered.
func New(tr *translate.Translator, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "cmiique", Version: version}, nil)
	t := tools{tr: tr}

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "translate",
		Description: "Translate between Cmiique Iitom (Seri), Spanish and English. Uses the curated corpus first and a language model only when no corpus entry is close enough.",
	}, t.translate)
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "suggest",
		Description: "List the corpus entries most similar to a text, with their translations and similarity scores.",
	}, t.suggest)
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "detect_sense",
		Description: "Pick the meaning of a polysemous Seri word such as Hant from its context and return the matching translation.",
	}, t.detectSense)

	return server
}

// Run serves the tools over stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, tr *translate.Translator, version string) error {
	if err := New(tr, version).Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

type tools struct {
	tr *translate.Translator
}

func (t tools) translate(ctx context.Context, _ *mcpsdk.CallToolRequest, in TranslateInput) (*mcpsdk.CallToolResult, translate.Result, error) {
	from, to, err := parsePair(in.From, in.To)
	if err != nil {
		return nil, translate.Result{}, err
	}
	var tier policy.Tier
	if strings.TrimSpace(in.Tier) != "" {
		if tier, err = policy.ParseTier(in.Tier); err != nil {
			return nil, translate.Result{}, err
		}
	}
	res, err := t.tr.Translate(ctx, translate.Request{
		Text:    in.Text,
		From:    from,
		To:      to,
		Tier:    tier,
		Context: in.Context,
	})
	if err != nil {
		return nil, translate.Result{}, err
	}
	return nil, *res, nil
}

func (t tools) suggest(_ context.Context, _ *mcpsdk.CallToolRequest, in SuggestInput) (*mcpsdk.CallToolResult, SuggestOutput, error) {
	from, to, err := parsePair(in.From, in.To)
	if err != nil {
		return nil, SuggestOutput{}, err
	}
	settings := t.tr.Settings()
	opts := []match.Option{match.WithMinScore(settings.MinScore), match.WithLimit(settings.Limit)}
	if in.MinScore > 0 {
		opts = append(opts, match.WithMinScore(in.MinScore))
	}
	if in.Limit > 0 {
		opts = append(opts, match.WithLimit(in.Limit))
	}
	res := t.tr.Matcher().Match(in.Text, from, to, opts...)
	out := SuggestOutput{Suggestions: res.Suggestions}
	if out.Suggestions == nil {
		out.Suggestions = []match.Suggestion{}
	}
	return nil, out, nil
}

func (t tools) detectSense(_ context.Context, _ *mcpsdk.CallToolRequest, in DetectSenseInput) (*mcpsdk.CallToolResult, DetectSenseOutput, error) {
	if strings.TrimSpace(in.Word) == "" {
		return nil, DetectSenseOutput{}, fmt.Errorf("word is required")
	}
	target, err := lang.Parse(in.Target)
	if err != nil {
		return nil, DetectSenseOutput{}, err
	}
	r := t.tr.Resolver()
	out := DetectSenseOutput{Known: r.Known(in.Word)}
	if sense, ok := r.DetectContext(in.Word, in.Context); ok {
		out.Sense = sense
		out.Translation, _ = r.Resolve(in.Word, sense, target)
	}
	return nil, out, nil
}

func parsePair(from, to string) (lang.Language, lang.Language, error) {
	f, err := lang.Parse(from)
	if err != nil {
		return "", "", err
	}
	t, err := lang.Parse(to)
	if err != nil {
		return "", "", err
	}
	return f, t, nil
}
