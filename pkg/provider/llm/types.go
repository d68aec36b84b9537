package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text of the message.
	Content string
}

// ModelCapabilities describes what a model accepts when asked to translate.
type ModelCapabilities struct {
	// MaxOutputTokens is the most the model can generate in one reply. Zero
	// means unknown; requests are then sent unclamped.
	MaxOutputTokens int

	// SupportsJSONMode reports native support for [CompletionRequest.JSONMode].
	SupportsJSONMode bool

	// FixedTemperature is set for reasoning models that reject a sampling
	// temperature. [CompletionRequest.Temperature] is not sent to them.
	FixedTemperature bool
}
