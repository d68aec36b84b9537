// Package llm defines the Provider interface for the text-generation backends
// used as a translation fallback.
//
// A provider wraps a remote or local model API (OpenAI, Anthropic, a local
// Ollama instance, ...) behind a single blocking completion call, so the
// translation pipeline never couples to a specific SDK.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is an optional instruction placed before Messages.
	// Providers without a dedicated system slot prepend it as a "system"
	// message.
	SystemPrompt string

	// Messages is the ordered conversation; the last one is usually from the
	// user.
	Messages []Message

	// Temperature in [0, 2]. Zero selects the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero selects the provider default.
	MaxTokens int

	// JSONMode asks the backend to constrain output to a single JSON object.
	// Ignored by providers whose Capabilities report no JSON mode support.
	JSONMode bool
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req and waits for the full reply. It returns promptly
	// with an error when ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities describes the configured model. The result is constant for
	// the lifetime of the Provider.
	Capabilities() ModelCapabilities
}
