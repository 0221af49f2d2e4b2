package llm

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethix/internal/retry"
)

func TestNewOpenAIClientRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	require.Error(t, err)

	client, err := NewOpenAIClient(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.Model())
}

func TestIsPermanentAPIError(t *testing.T) {
	auth := &openai.APIError{HTTPStatusCode: 401}
	assert.True(t, isPermanentAPIError(auth))
	assert.True(t, isPermanentAPIError(&openai.APIError{HTTPStatusCode: 400}))

	// Rate limits and server errors stay retryable.
	assert.False(t, isPermanentAPIError(&openai.APIError{HTTPStatusCode: 429}))
	assert.False(t, isPermanentAPIError(&openai.APIError{HTTPStatusCode: 500}))
	assert.False(t, isPermanentAPIError(errors.New("connection reset")))

	// Wrapped API errors still classify.
	wrapped := retry.Permanent(auth)
	assert.True(t, isPermanentAPIError(wrapped))
	assert.False(t, retry.IsTransient(wrapped))
}
