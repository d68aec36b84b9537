package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the backend stopped at the token limit.
	// A cut-off translation is unusable, so adapters report it as a failure
	// and let the fallback chain try the next backend.
	ErrTruncated = errors.New("llm: reply cut off at the token limit")

	// ErrNoReply is returned when the backend answered without any choice.
	ErrNoReply = errors.New("llm: backend returned no reply")
)

// Prompt returns the conversation to send: SystemPrompt, when set, as a
// leading system message followed by Messages.
func (r CompletionRequest) Prompt() []Message {
	out := make([]Message, 0, len(r.Messages)+1)
	if r.SystemPrompt != "" {
		out = append(out, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	return append(out, r.Messages...)
}

// Shape returns a copy of r fitted to caps: MaxTokens is clamped to the
// model's output limit, Temperature is dropped for fixed-temperature models
// and JSONMode is cleared when unsupported. Roles are validated.
func (r CompletionRequest) Shape(caps ModelCapabilities) (CompletionRequest, error) {
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return r, fmt.Errorf("llm: message %d: unknown role %q", i, m.Role)
		}
	}
	if caps.MaxOutputTokens > 0 && r.MaxTokens > caps.MaxOutputTokens {
		r.MaxTokens = caps.MaxOutputTokens
	}
	if caps.FixedTemperature {
		r.Temperature = 0
	}
	r.JSONMode = r.JSONMode && caps.SupportsJSONMode
	return r, nil
}

// Finished checks the finish reason a backend reported. "length" (OpenAI
// style) and "max_tokens" (Anthropic style) yield [ErrTruncated].
func Finished(reason string) error {
	switch reason {
	case "length", "max_tokens":
		return ErrTruncated
	}
	return nil
}
