package anyllm

import (
	"context"
	"errors"
	"slices"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/cmiique/pkg/provider/llm"
)

// fakeBackend answers every completion with reply.
type fakeBackend struct {
	reply *anyllmlib.ChatCompletion
	err   error
	got   anyllmlib.CompletionParams
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Completion(_ context.Context, params anyllmlib.CompletionParams) (*anyllmlib.ChatCompletion, error) {
	f.got = params
	return f.reply, f.err
}

func (f *fakeBackend) CompletionStream(context.Context, anyllmlib.CompletionParams) (<-chan anyllmlib.ChatCompletionChunk, <-chan error) {
	errs := make(chan error, 1)
	errs <- errors.New("not streamed")
	close(errs)
	return nil, errs
}

func reply(content, finish string) *anyllmlib.ChatCompletion {
	return &anyllmlib.ChatCompletion{
		Choices: []anyllmlib.Choice{{
			Message:      anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: content},
			FinishReason: finish,
		}},
		Usage: &anyllmlib.Usage{PromptTokens: 20, CompletionTokens: 4, TotalTokens: 24},
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama3", caps: llm.ModelCapabilities{SupportsJSONMode: true}}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You translate between Cmiique Iitom, Spanish and English.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "Gracias"}},
		Temperature:  0.1,
		MaxTokens:    64,
		JSONMode:     true,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}

	if params.Model != "llama3" {
		t.Errorf("Model = %q, want llama3", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first role = %q, want system", params.Messages[0].Role)
	}
	if params.Messages[1].Role != llm.RoleUser || params.Messages[1].Content != "Gracias" {
		t.Errorf("user message = %+v", params.Messages[1])
	}
	if params.Temperature == nil || *params.Temperature != 0.1 {
		t.Errorf("Temperature = %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 64 {
		t.Errorf("MaxTokens = %v", params.MaxTokens)
	}
	if params.ResponseFormat == nil || params.ResponseFormat.Type != "json_object" {
		t.Errorf("ResponseFormat = %+v, want json_object", params.ResponseFormat)
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	p := &Provider{model: "llama3"}
	params, err := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hola"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.Messages) != 1 {
		t.Errorf("expected no system message, got %d messages", len(params.Messages))
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Error("zero temperature and max tokens should be left unset")
	}
	if params.ResponseFormat != nil {
		t.Error("JSON mode requested from a backend without support")
	}
}

func TestBuildParams_ReasoningModel(t *testing.T) {
	p := &Provider{model: "deepseek-reasoner", caps: capabilitiesFor("deepseek-reasoner")}
	params, err := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Hola"}},
		Temperature: 0.2,
		MaxTokens:   1_000_000,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if params.Temperature != nil {
		t.Errorf("Temperature = %v, want unset", *params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 32_768 {
		t.Errorf("MaxTokens = %v, want clamped to 32768", params.MaxTokens)
	}
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		model string
		want  llm.ModelCapabilities
	}{
		{"gpt-4o-mini", llm.ModelCapabilities{MaxOutputTokens: 16_384}},
		{"gpt-4", llm.ModelCapabilities{MaxOutputTokens: 8_192}},
		{"o3-mini", llm.ModelCapabilities{MaxOutputTokens: 32_768, FixedTemperature: true}},
		{"claude-3-5-haiku-latest", llm.ModelCapabilities{MaxOutputTokens: 8_192}},
		{"claude-3-opus", llm.ModelCapabilities{MaxOutputTokens: 4_096}},
		{"gemini-2.0-flash", llm.ModelCapabilities{MaxOutputTokens: 8_192}},
		{"llama3", llm.ModelCapabilities{}},
	}
	for _, tc := range tests {
		if got := capabilitiesFor(tc.model); got != tc.want {
			t.Errorf("capabilitiesFor(%q) = %+v, want %+v", tc.model, got, tc.want)
		}
	}
}

func TestComplete(t *testing.T) {
	fake := &fakeBackend{reply: reply(`{"translation":"Hant"}`, anyllmlib.FinishReasonStop)}
	p := &Provider{client: fake, name: "fake", model: "llama3"}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Gracias"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"translation":"Hant"}` || resp.Usage.TotalTokens != 24 {
		t.Errorf("resp = %+v", resp)
	}
	if fake.got.Model != "llama3" {
		t.Errorf("backend saw model %q", fake.got.Model)
	}
}

func TestComplete_Failures(t *testing.T) {
	boom := errors.New("backend down")
	tests := []struct {
		name string
		fake *fakeBackend
		want error
	}{
		{"backend error", &fakeBackend{err: boom}, boom},
		{"no choices", &fakeBackend{reply: &anyllmlib.ChatCompletion{}}, llm.ErrNoReply},
		{"truncated", &fakeBackend{reply: reply(`{"transl`, anyllmlib.FinishReasonLength)}, llm.ErrTruncated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Provider{client: tc.fake, name: "fake", model: "llama3"}
			_, err := p.Complete(context.Background(), llm.CompletionRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Gracias"}},
			})
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty backend name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestNew_Backends(t *testing.T) {
	p, err := New("OpenAI", "gpt-4o", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if p.name != "openai" || !p.Capabilities().SupportsJSONMode {
		t.Errorf("openai provider = %+v", p)
	}
	a, err := New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-test"))
	if err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if a.Capabilities().SupportsJSONMode {
		t.Error("anthropic should not report JSON mode")
	}
	if _, err := New("ollama", "llama3"); err != nil {
		t.Errorf("ollama: %v", err)
	}
}

func TestBackends(t *testing.T) {
	got := Backends()
	if !slices.IsSorted(got) || len(got) != len(backends) {
		t.Errorf("Backends() = %v", got)
	}
	for _, name := range []string{"anthropic", "ollama", "openai"} {
		if !slices.Contains(got, name) {
			t.Errorf("Backends() missing %q", name)
		}
	}
}
