// Package llm implements the model client: an OpenAI-compatible chat
// completions transport with streaming, retry and usage accounting.
package llm

import (
	"fmt"
	"sync"
	"time"

	"maestro/internal/agent/ports"
)

// Config carries transport settings for a client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Headers    map[string]string
	MaxRetries int
}

const defaultTimeout = 120 * time.Second

// thinkInstruction is prepended as a system message when think-mode is on.
const thinkInstructionFormat = "Reason inside <think>...</think> blocks before answering. " +
	"Keep reasoning under %d tokens. The think blocks are stripped before display."

const defaultThinkBudget = 2048

// UsageCounter is a process-wide additive token counter with a single
// observer registration. It is telemetry, not budget enforcement.
type UsageCounter struct {
	mu       sync.Mutex
	total    ports.TokenUsage
	observer ports.UsageObserver
}

var globalUsage = &UsageCounter{}

// GlobalUsage returns the process-wide usage counter.
func GlobalUsage() *UsageCounter { return globalUsage }

// Observe registers the observer invoked on every usage update. Only one
// observer is supported; later registrations replace earlier ones.
func (c *UsageCounter) Observe(observer ports.UsageObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = observer
}

// Add records usage from one completion and publishes the update.
func (c *UsageCounter) Add(usage ports.TokenUsage, model string) {
	c.mu.Lock()
	c.total.PromptTokens += usage.PromptTokens
	c.total.CompletionTokens += usage.CompletionTokens
	c.total.TotalTokens += usage.TotalTokens
	observer := c.observer
	c.mu.Unlock()

	if observer != nil {
		observer(usage, model)
	}
}

// Total returns the accumulated usage.
func (c *UsageCounter) Total() ports.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Reset zeroes the counter. Intended for tests.
func (c *UsageCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = ports.TokenUsage{}
}

// applyThinkMode prepends the think-mode system instruction when requested.
func applyThinkMode(req ports.CompletionRequest) []ports.Message {
	if !req.ThinkMode {
		return req.Messages
	}
	budget := req.ThinkBudget
	if budget <= 0 {
		budget = defaultThinkBudget
	}
	instruction := ports.Message{
		Role:    ports.RoleSystem,
		Content: fmt.Sprintf(thinkInstructionFormat, budget),
	}
	return append([]ports.Message{instruction}, req.Messages...)
}

// providerMessages maps engine roles to provider roles. The internal
// tool_result role serializes as user.
func providerMessages(messages []ports.Message) []map[string]string {
	out := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		if role == ports.RoleToolResult {
			role = ports.RoleUser
		}
		out = append(out, map[string]string{"role": role, "content": msg.Content})
	}
	return out
}
