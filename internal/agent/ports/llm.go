package ports

import "context"

// Message roles used inside the engine. RoleToolResult is internal: it is
// mapped to RoleUser when a request is serialized for the provider.
const (
	RoleSystem     = "system"
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolResult = "tool_result"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest contains all parameters for an LLM completion.
type CompletionRequest struct {
	Messages      []Message `json:"messages"`
	Temperature   float64   `json:"temperature,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	StopSequences []string  `json:"stop,omitempty"`

	// ThinkMode prepends a system-level instruction telling the model to
	// reason inside <think>...</think> up to ThinkBudget tokens.
	ThinkMode   bool `json:"-"`
	ThinkBudget int  `json:"-"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ContentDelta is one streamed chunk of assistant text. Final marks the end
// of the stream; Delta is empty on the final chunk.
type ContentDelta struct {
	Delta string
	Final bool
}

// StreamCallbacks receives streaming events as they arrive.
type StreamCallbacks struct {
	OnContentDelta func(delta ContentDelta)
}

// LLMClient represents any LLM provider speaking chat completions.
type LLMClient interface {
	// Complete sends messages and returns a response (non-streaming).
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamComplete streams a response, invoking callbacks per chunk, and
	// returns the accumulated response.
	StreamComplete(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error)

	// Model returns the model identifier.
	Model() string
}

// UsageObserver receives token usage updates as they are recorded.
type UsageObserver func(usage TokenUsage, model string)
