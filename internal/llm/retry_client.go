package llm

import (
	"context"

	"ethix/internal/logging"
	"ethix/internal/retry"
)

// retryClient wraps a Client with bounded retry logic so transient
// backend failures surface only after the retry budget is spent.
type retryClient struct {
	underlying  Client
	retryConfig retry.Config
	logger      logging.Logger
}

// NewRetryClient wraps an LLM client with retry logic.
func NewRetryClient(client Client, retryConfig retry.Config) Client {
	return &retryClient{
		underlying:  client,
		retryConfig: retryConfig,
		logger:      logging.NewComponentLogger("llm-retry"),
	}
}

// Complete executes the completion with retries on transient errors.
func (c *retryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := retry.DoWithResult(ctx, c.retryConfig, func(ctx context.Context) (*CompletionResponse, error) {
		return c.underlying.Complete(ctx, req)
	}, c.logger)
	if err != nil {
		c.logger.Warn("completion failed after retries: %v", err)
		return nil, err
	}
	return resp, nil
}

// Model returns the underlying model name.
func (c *retryClient) Model() string {
	return c.underlying.Model()
}
