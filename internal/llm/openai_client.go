package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"maestro/internal/agent/ports"
	engerrors "maestro/internal/errors"
	"maestro/internal/logging"
	"maestro/internal/token"
	id "maestro/internal/utils/id"
)

// openaiClient speaks the OpenAI-compatible chat completions API.
type openaiClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	logger     logging.Logger
	usage      *UsageCounter
}

// NewOpenAIClient constructs an LLM client for the given model and transport
// configuration.
func NewOpenAIClient(model string, config Config) ports.LLMClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openaiClient{
		model:      model,
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		headers:    config.Headers,
		logger:     logging.NewComponentLogger("llm-openai"),
		usage:      GlobalUsage(),
	}
}

func (c *openaiClient) Model() string { return c.model }

func (c *openaiClient) buildRequest(req ports.CompletionRequest, stream bool) map[string]any {
	body := map[string]any{
		"model":       c.model,
		"messages":    providerMessages(applyThinkMode(req)),
		"temperature": req.Temperature,
		"stream":      stream,
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if len(req.StopSequences) > 0 {
		body["stop"] = req.StopSequences
	}
	if stream {
		body["stream_options"] = map[string]any{"include_usage": true}
	}
	return body
}

func (c *openaiClient) post(ctx context.Context, payload map[string]any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, engerrors.Transient(engerrors.KindServerError, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	retryAfter := 0
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			retryAfter = seconds
		}
	}
	return engerrors.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)), retryAfter)
}

// Complete sends a non-streaming completion request.
func (c *openaiClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	requestID := id.NewRequestID()
	c.logger.Debug("[%s] POST %s/chat/completions model=%s stream=false", requestID, c.baseURL, c.model)

	resp, err := c.post(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		c.logger.Debug("[%s] request failed: %v", requestID, err)
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, engerrors.Permanent(engerrors.KindParseError, fmt.Errorf("decode response: %w", err))
	}
	if len(oaiResp.Choices) == 0 {
		return nil, engerrors.Permanent(engerrors.KindParseError, fmt.Errorf("response has no choices"))
	}

	result := &ports.CompletionResponse{
		Content:    oaiResp.Choices[0].Message.Content,
		StopReason: oaiResp.Choices[0].FinishReason,
		Usage: ports.TokenUsage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}
	c.recordUsage(result, req)
	return result, nil
}

// StreamComplete streams a completion. The response body is a sequence of
// newline-delimited "data:" records terminated by "data: [DONE]"; non-data
// lines are ignored and malformed chunks are dropped.
func (c *openaiClient) StreamComplete(ctx context.Context, req ports.CompletionRequest, callbacks ports.StreamCallbacks) (*ports.CompletionResponse, error) {
	requestID := id.NewRequestID()
	c.logger.Debug("[%s] POST %s/chat/completions model=%s stream=true", requestID, c.baseURL, c.model)

	resp, err := c.post(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		c.logger.Debug("[%s] stream request failed: %v", requestID, err)
		return nil, err
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	var contentBuilder strings.Builder
	usage := ports.TokenUsage{}
	finishReason := ""

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		chunk.Choices = nil
		chunk.Usage = nil
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("[%s] dropping malformed stream chunk: %v", requestID, err)
			continue
		}

		if chunk.Usage != nil {
			usage.PromptTokens = chunk.Usage.PromptTokens
			usage.CompletionTokens = chunk.Usage.CompletionTokens
			usage.TotalTokens = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = *choice.FinishReason
		}
		if text := choice.Delta.Content; text != "" {
			contentBuilder.WriteString(text)
			if callbacks.OnContentDelta != nil {
				callbacks.OnContentDelta(ports.ContentDelta{Delta: text})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read response stream: %w", err)
	}

	if callbacks.OnContentDelta != nil {
		callbacks.OnContentDelta(ports.ContentDelta{Final: true})
	}

	result := &ports.CompletionResponse{
		Content:    contentBuilder.String(),
		StopReason: finishReason,
		Usage:      usage,
	}
	c.recordUsage(result, req)
	return result, nil
}

// recordUsage accumulates token usage into the global counter, estimating
// with tiktoken when the provider omitted usage.
func (c *openaiClient) recordUsage(resp *ports.CompletionResponse, req ports.CompletionRequest) {
	if resp.Usage.TotalTokens == 0 {
		prompt := 0
		for _, msg := range req.Messages {
			prompt += token.EstimateFast(msg.Content)
		}
		resp.Usage = ports.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: token.EstimateFast(resp.Content),
		}
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	c.usage.Add(resp.Usage, c.model)
}
