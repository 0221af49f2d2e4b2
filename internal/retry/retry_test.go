package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0,
	}
}

func TestDoWithResultSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestDoWithResultStopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		attempts++
		return "", Permanent(errors.New("bad request"))
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResultExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("rate limit exceeded")
	}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 4, attempts) // initial attempt plus MaxAttempts retries
}

func TestDoWithResultHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := DoWithResult(ctx, fastConfig(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, nil
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 0, attempts)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("timeout waiting for response"), true},
		{errors.New("too many requests"), true},
		{errors.New("status code: 503"), true},
		{errors.New("invalid API key"), false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{Permanent(errors.New("timeout")), false},
		{fmt.Errorf("wrapped: %w", errors.New("connection reset")), true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsTransient(tc.err), "error: %v", tc.err)
	}
}

func TestBackoffDelayCapsAtMaxDelay(t *testing.T) {
	config := Config{BaseDelay: time.Second, MaxDelay: 2 * time.Second, JitterFactor: 0}
	delay := backoffDelay(10, config)
	assert.Equal(t, 2*time.Second, delay)
}
