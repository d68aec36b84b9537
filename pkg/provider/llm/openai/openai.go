// Package openai provides an LLM provider backed by the OpenAI chat
// completions API, or any server speaking the same protocol.
//
// Requests are fitted to the configured model before they are sent: reasoning
// models get no temperature, output budgets are clamped and JSON mode is only
// requested from models that honour it.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/cmiique/pkg/provider/llm"
)

// Provider implements llm.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	caps   llm.ModelCapabilities
}

var _ llm.Provider = (*Provider)(nil)

type settings struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option configures a Provider.
type Option func(*settings)

// WithBaseURL points the client at an OpenAI compatible server.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(s *settings) { s.organization = org }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// New returns a Provider for model.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	switch {
	case apiKey == "":
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	case model == "":
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	var s settings
	for _, o := range opts {
		o(&s)
	}
	if s.timeout < 0 {
		return nil, fmt.Errorf("openai: negative timeout %s", s.timeout)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(s.organization))
	}
	if s.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: s.timeout}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		caps:   capabilitiesFor(model),
	}, nil
}

// Complete implements llm.Provider. A reply cut off at the token limit is
// returned as [llm.ErrTruncated].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai %s: %w", p.model, llm.ErrNoReply)
	}

	choice := resp.Choices[0]
	if err := llm.Finished(string(choice.FinishReason)); err != nil {
		return nil, fmt.Errorf("openai %s: %w", p.model, err)
	}
	return &llm.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.caps
}

// family holds the limits shared by models whose name starts with prefix.
type family struct {
	prefix string
	caps   llm.ModelCapabilities
}

// families is matched in order, so longer prefixes come first.
var families = []family{
	{"gpt-4o", llm.ModelCapabilities{MaxOutputTokens: 16_384, SupportsJSONMode: true}},
	{"gpt-4.1", llm.ModelCapabilities{MaxOutputTokens: 32_768, SupportsJSONMode: true}},
	{"gpt-4-turbo", llm.ModelCapabilities{MaxOutputTokens: 4_096, SupportsJSONMode: true}},
	{"gpt-4", llm.ModelCapabilities{MaxOutputTokens: 8_192}},
	{"gpt-3.5-turbo", llm.ModelCapabilities{MaxOutputTokens: 4_096, SupportsJSONMode: true}},
	{"o1-mini", llm.ModelCapabilities{MaxOutputTokens: 65_536, FixedTemperature: true}},
	{"o1", llm.ModelCapabilities{MaxOutputTokens: 100_000, SupportsJSONMode: true, FixedTemperature: true}},
	{"o3", llm.ModelCapabilities{MaxOutputTokens: 100_000, SupportsJSONMode: true, FixedTemperature: true}},
	{"o4", llm.ModelCapabilities{MaxOutputTokens: 100_000, SupportsJSONMode: true, FixedTemperature: true}},
}

// capabilitiesFor looks model up in families. Unknown models are assumed to
// be OpenAI compatible servers with JSON mode and no known output limit.
func capabilitiesFor(model string) llm.ModelCapabilities {
	lower := strings.ToLower(model)
	for _, f := range families {
		if strings.HasPrefix(lower, f.prefix) {
			return f.caps
		}
	}
	return llm.ModelCapabilities{SupportsJSONMode: true}
}

// buildParams fits req to the model and converts it into SDK params.
func (p *Provider) buildParams(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	req, err := req.Shape(p.caps)
	if err != nil {
		return oai.ChatCompletionNewParams{}, err
	}

	prompt := req.Prompt()
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(prompt))
	for _, m := range prompt {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, oai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params, nil
}
