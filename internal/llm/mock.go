package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"maestro/internal/agent/ports"
)

// Mock is a scripted LLM client for tests. Responses are consumed in order;
// Script entries may match on a substring of the last user message, with
// unmatched requests falling back to the ordered queue.
type Mock struct {
	mu        sync.Mutex
	queue     []MockResponse
	rules     []mockRule
	requests  []ports.CompletionRequest
	exhausted string
}

// MockResponse is one canned model reply.
type MockResponse struct {
	Content string
	Err     error
	Usage   ports.TokenUsage
}

type mockRule struct {
	substring string
	response  MockResponse
}

// NewMock returns an empty mock client.
func NewMock() *Mock { return &Mock{exhausted: "mock: script exhausted"} }

// Enqueue appends responses to the ordered reply queue.
func (m *Mock) Enqueue(responses ...MockResponse) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
	return m
}

// EnqueueText appends plain-text replies to the queue.
func (m *Mock) EnqueueText(texts ...string) *Mock {
	for _, text := range texts {
		m.Enqueue(MockResponse{Content: text})
	}
	return m
}

// RespondWhen registers a substring rule checked against the full prompt
// before the ordered queue is consulted.
func (m *Mock) RespondWhen(substring, content string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{substring: substring, response: MockResponse{Content: content}})
	return m
}

// Requests returns a copy of every request the mock has served.
func (m *Mock) Requests() []ports.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of completions served.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *Mock) Model() string { return "mock-model" }

func (m *Mock) next(req ports.CompletionRequest) (MockResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	prompt := ""
	for _, msg := range req.Messages {
		prompt += msg.Content + "\n"
	}
	for _, rule := range m.rules {
		if rule.substring != "" && containsFold(prompt, rule.substring) {
			return rule.response, nil
		}
	}
	if len(m.queue) == 0 {
		return MockResponse{}, fmt.Errorf("%s (request %d)", m.exhausted, len(m.requests))
	}
	resp := m.queue[0]
	m.queue = m.queue[1:]
	return resp, nil
}

func (m *Mock) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &ports.CompletionResponse{Content: resp.Content, StopReason: "stop", Usage: resp.Usage}, nil
}

func (m *Mock) StreamComplete(ctx context.Context, req ports.CompletionRequest, callbacks ports.StreamCallbacks) (*ports.CompletionResponse, error) {
	result, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if callbacks.OnContentDelta != nil {
		if result.Content != "" {
			callbacks.OnContentDelta(ports.ContentDelta{Delta: result.Content})
		}
		callbacks.OnContentDelta(ports.ContentDelta{Final: true})
	}
	return result, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
