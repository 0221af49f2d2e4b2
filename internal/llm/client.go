package llm

import (
	"context"
	"time"
)

// CompletionRequest is a single-turn generation request.
type CompletionRequest struct {
	System      string  // optional system role content
	Prompt      string  // user prompt
	Temperature float32 // 0 keeps the provider default
	MaxTokens   int     // 0 keeps the provider default
}

// CompletionResponse carries the generated text.
type CompletionResponse struct {
	Content string
}

// Client is the generative backend capability interface: one prompt in,
// one text completion out. Every call is a blocking round-trip and a
// natural timeout boundary.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Model() string
}

// Config holds generative backend configuration.
type Config struct {
	Provider    string // "openai"
	Model       string
	APIKey      string
	BaseURL     string // optional, defaults to the provider endpoint
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // per-call timeout (default: 60s)
}

// DefaultTimeout is applied when Config.Timeout is unset.
const DefaultTimeout = 60 * time.Second
