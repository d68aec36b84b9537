// Package anyllm provides a multi-backend LLM provider built on
// github.com/mozilla-ai/any-llm-go, which speaks to OpenAI, Anthropic,
// Gemini, Ollama, DeepSeek, Mistral, Groq, llama.cpp and llamafile through one
// interface.
//
// Usage:
//
//	p, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
//	p, err := anyllm.New("ollama", "llama3")
package anyllm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/cmiique/pkg/provider/llm"
)

// backend describes one any-llm-go backend.
type backend struct {
	create func(...anyllmlib.Option) (anyllmlib.Provider, error)

	// jsonObject reports that the backend honours a json_object response
	// format, so translation replies can be constrained to {"translation":...}.
	jsonObject bool
}

func wrap[P anyllmlib.Provider](fn func(...anyllmlib.Option) (P, error)) func(...anyllmlib.Option) (anyllmlib.Provider, error) {
	return func(opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
		return fn(opts...)
	}
}

var backends = map[string]backend{
	"openai":    {create: wrap(anyllmoai.New), jsonObject: true},
	"anthropic": {create: wrap(anthropic.New)},
	"gemini":    {create: wrap(gemini.New)},
	"ollama":    {create: wrap(ollama.New), jsonObject: true},
	"deepseek":  {create: wrap(deepseek.New), jsonObject: true},
	"mistral":   {create: wrap(mistral.New), jsonObject: true},
	"groq":      {create: wrap(groq.New), jsonObject: true},
	"llamacpp":  {create: wrap(llamacpp.New)},
	"llamafile": {create: wrap(llamafile.New)},
}

// Backends lists the accepted backend names in sorted order.
func Backends() []string {
	return slices.Sorted(maps.Keys(backends))
}

// Provider implements llm.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	client anyllmlib.Provider
	name   string
	model  string
	caps   llm.ModelCapabilities
}

var _ llm.Provider = (*Provider)(nil)

// New creates a Provider for the named backend, one of [Backends]. Without an
// API key option the backend reads its usual environment variable
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(name, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	name = strings.ToLower(name)
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("anyllm: unsupported backend %q; supported: %s", name, strings.Join(Backends(), ", "))
	}

	client, err := b.create(opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", name, err)
	}
	caps := capabilitiesFor(model)
	caps.SupportsJSONMode = b.jsonObject
	return &Provider{client: client, name: name, model: model, caps: caps}, nil
}

// Complete implements llm.Provider. A reply cut off at the token limit is
// returned as [llm.ErrTruncated].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("anyllm %s: %w", p.name, err)
	}
	resp, err := p.client.Completion(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anyllm %s: completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm %s: %w", p.name, llm.ErrNoReply)
	}

	choice := resp.Choices[0]
	if err := llm.Finished(choice.FinishReason); err != nil {
		return nil, fmt.Errorf("anyllm %s: %w", p.name, err)
	}
	out := &llm.CompletionResponse{
		Content:      choice.Message.ContentString(),
		FinishReason: choice.FinishReason,
	}
	if u := resp.Usage; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.caps
}

func (p *Provider) buildParams(req llm.CompletionRequest) (anyllmlib.CompletionParams, error) {
	req, err := req.Shape(p.caps)
	if err != nil {
		return anyllmlib.CompletionParams{}, err
	}

	prompt := req.Prompt()
	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: make([]anyllmlib.Message, 0, len(prompt)),
	}
	for _, m := range prompt {
		params.Messages = append(params.Messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}
	if req.Temperature != 0 {
		params.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = &req.MaxTokens
	}
	if req.JSONMode {
		params.ResponseFormat = &anyllmlib.ResponseFormat{Type: "json_object"}
	}
	return params, nil
}

// capabilitiesFor returns output limits for known model families. Reasoning
// models are sent no temperature. JSON support depends on the backend and is
// set by New.
func capabilitiesFor(model string) llm.ModelCapabilities {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt-4o"):
		return llm.ModelCapabilities{MaxOutputTokens: 16_384}
	case strings.HasPrefix(lower, "gpt-4"):
		return llm.ModelCapabilities{MaxOutputTokens: 8_192}
	case strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"),
		strings.Contains(lower, "reasoner"):
		return llm.ModelCapabilities{MaxOutputTokens: 32_768, FixedTemperature: true}
	case strings.Contains(lower, "claude-3-opus"), strings.Contains(lower, "claude-3-haiku"):
		return llm.ModelCapabilities{MaxOutputTokens: 4_096}
	case strings.HasPrefix(lower, "claude"), strings.HasPrefix(lower, "gemini"):
		return llm.ModelCapabilities{MaxOutputTokens: 8_192}
	}
	return llm.ModelCapabilities{}
}
