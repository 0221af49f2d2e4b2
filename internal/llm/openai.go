package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"ethix/internal/logging"
	"ethix/internal/retry"
)

// openaiClient implements Client over the OpenAI chat completions API.
type openaiClient struct {
	client *openai.Client
	config Config
	logger logging.Logger
}

// NewOpenAIClient creates a chat-completion backed client.
func NewOpenAIClient(config Config) (Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &openaiClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logging.NewComponentLogger("llm-openai"),
	}, nil
}

// Complete executes a single chat completion round-trip.
func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		chatReq.Temperature = req.Temperature
	} else if c.config.Temperature > 0 {
		chatReq.Temperature = c.config.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	} else if c.config.MaxTokens > 0 {
		chatReq.MaxTokens = c.config.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Warn("chat completion failed: %v", err)
		wrapped := fmt.Errorf("openai chat completion: %w", err)
		if isPermanentAPIError(err) {
			return nil, retry.Permanent(wrapped)
		}
		return nil, wrapped
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	c.logger.Debug("chat completion ok (finish_reason=%s)", resp.Choices[0].FinishReason)
	return &CompletionResponse{Content: resp.Choices[0].Message.Content}, nil
}

// isPermanentAPIError reports 4xx API responses other than rate
// limiting, where retrying cannot help (bad key, malformed request).
func isPermanentAPIError(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.HTTPStatusCode >= 400 &&
		apiErr.HTTPStatusCode < 500 &&
		apiErr.HTTPStatusCode != http.StatusTooManyRequests
}

// Model returns the configured model name.
func (c *openaiClient) Model() string {
	return c.config.Model
}
