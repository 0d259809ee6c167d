package llm

import (
	"context"

	"maestro/internal/agent/ports"
	engerrors "maestro/internal/errors"
	"maestro/internal/logging"
)

// retryClient wraps an LLM client with retry logic for non-streaming calls.
type retryClient struct {
	underlying ports.LLMClient
	config     engerrors.RetryConfig
	logger     logging.Logger
}

// NewRetryClient wraps client with the standard retry schedule. Streaming
// requests are not retried: replaying a partially consumed stream would
// duplicate content the caller already observed.
func NewRetryClient(client ports.LLMClient) ports.LLMClient {
	return NewRetryClientWithConfig(client, engerrors.DefaultRetryConfig())
}

// NewRetryClientWithConfig wraps client with a custom retry schedule.
func NewRetryClientWithConfig(client ports.LLMClient, config engerrors.RetryConfig) ports.LLMClient {
	return &retryClient{
		underlying: client,
		config:     config,
		logger:     logging.NewComponentLogger("llm-retry"),
	}
}

func (c *retryClient) Model() string { return c.underlying.Model() }

func (c *retryClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	resp, err := engerrors.RetryWithResult(ctx, c.config, func(ctx context.Context) (*ports.CompletionResponse, error) {
		return c.underlying.Complete(ctx, req)
	})
	if err != nil {
		c.logger.Warn("completion failed after retries: %v", err)
		return nil, err
	}
	return resp, nil
}

func (c *retryClient) StreamComplete(ctx context.Context, req ports.CompletionRequest, callbacks ports.StreamCallbacks) (*ports.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.underlying.StreamComplete(ctx, req, callbacks)
}
