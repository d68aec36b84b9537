package generative_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/cmiique/internal/generative"
	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/pkg/lang"
	"github.com/MrWong99/cmiique/pkg/provider/llm"
	"github.com/MrWong99/cmiique/pkg/provider/llm/mock"
)

func reply(content string) *mock.Provider {
	return &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: content}}
}

func TestTranslate_ParsesReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"json", `{"translation": "Tahejöc"}`, "Tahejöc"},
		{"json with spaces", `  {"translation": "  Hant  "}  `, "Hant"},
		{"fenced json", "```json\n{\"translation\": \"Ax\"}\n```", "Ax"},
		{"bare fence", "```\n{\"translation\": \"Xepe\"}\n```", "Xepe"},
		{"plain text verbatim", "  Hant iimoz \n", "Hant iimoz"},
		{"other json taken verbatim", `["Hant"]`, `["Hant"]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := generative.New(reply(tc.content))
			got, err := g.Translate(context.Background(), "Hola", lang.Spanish, lang.Seri, nil)
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if got != tc.want {
				t.Errorf("Translate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTranslate_EmptyReply(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "   ", `{"translation": ""}`, "```json\n```"} {
		g := generative.New(reply(content))
		_, err := g.Translate(context.Background(), "Hola", lang.Spanish, lang.Seri, nil)
		if !errors.Is(err, generative.ErrEmptyTranslation) {
			t.Errorf("content %q: err = %v, want ErrEmptyTranslation", content, err)
		}
	}

	g := generative.New(&mock.Provider{})
	if _, err := g.Translate(context.Background(), "Hola", lang.Spanish, lang.Seri, nil); !errors.Is(err, generative.ErrEmptyTranslation) {
		t.Errorf("nil response: err = %v, want ErrEmptyTranslation", err)
	}
}

func TestTranslate_ProviderError(t *testing.T) {
	t.Parallel()

	errBackend := errors.New("backend down")
	g := generative.New(&mock.Provider{CompleteErr: errBackend})
	_, err := g.Translate(context.Background(), "Hola", lang.Spanish, lang.Seri, nil)
	if !errors.Is(err, errBackend) {
		t.Errorf("err = %v, want wrapped backend error", err)
	}
}

func TestTranslate_InvalidInput(t *testing.T) {
	t.Parallel()

	p := reply(`{"translation":"x"}`)
	g := generative.New(p)

	if _, err := g.Translate(context.Background(), "  ", lang.Spanish, lang.Seri, nil); !errors.Is(err, generative.ErrEmptyTranslation) {
		t.Errorf("blank text: err = %v", err)
	}
	if _, err := g.Translate(context.Background(), "Hola", lang.Language("fr"), lang.Seri, nil); err == nil {
		t.Error("invalid language: expected error")
	}
	if n := len(p.Calls()); n != 0 {
		t.Errorf("provider called %d times for invalid input", n)
	}
}

func TestTranslate_Prompt(t *testing.T) {
	t.Parallel()

	p := reply(`{"translation":"Hant"}`)
	p.ModelCapabilities = llm.ModelCapabilities{SupportsJSONMode: true}
	g := generative.New(p, generative.WithMaxHints(1), generative.WithTemperature(0.5), generative.WithMaxTokens(64))

	hints := []match.Suggestion{
		{Key: "greeting", SourceText: "Hola", TargetText: "Hant", Score: 0.85},
		{Key: "good_morning", SourceText: "Buenos días", TargetText: "Hant iimoz", Score: 0.6},
	}
	if _, err := g.Translate(context.Background(), "Hola amigo", lang.Spanish, lang.Seri, hints); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	req := calls[0].Req
	if !strings.Contains(req.SystemPrompt, "from Spanish to Cmiique Iitom (Seri)") {
		t.Errorf("system prompt missing language pair:\n%s", req.SystemPrompt)
	}
	if !strings.Contains(req.SystemPrompt, `"Hola" => "Hant"`) {
		t.Errorf("system prompt missing first hint:\n%s", req.SystemPrompt)
	}
	if strings.Contains(req.SystemPrompt, "Hant iimoz") {
		t.Error("system prompt includes more hints than configured")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser || req.Messages[0].Content != "Hola amigo" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.Temperature != 0.5 || req.MaxTokens != 64 || !req.JSONMode {
		t.Errorf("request params = temp %v, max %d, json %v", req.Temperature, req.MaxTokens, req.JSONMode)
	}
}

func TestTranslate_NoHintsSection(t *testing.T) {
	t.Parallel()

	p := reply(`{"translation":"Hant"}`)
	g := generative.New(p)
	if _, err := g.Translate(context.Background(), "Hola", lang.Spanish, lang.Seri, nil); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if strings.Contains(p.Calls()[0].Req.SystemPrompt, "Reference translations") {
		t.Error("reference section present without hints")
	}
}
