package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethix/internal/llm"
)

func TestExtractParsesKeywordList(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"keywords": ["facial recognition", "surveillance", "facial recognition", "consent"]}`,
	}}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo", Purpose: "detects faces"})

	assert.Equal(t, []string{"facial recognition", "surveillance", "consent"}, factors)
}

func TestExtractRepairsAlmostJSON(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		"Sure! Here you go:\n```json\n{keywords: ['data bias', 'opacity'],}\n```",
	}}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo"})

	assert.Equal(t, []string{"data bias", "opacity"}, factors)
}

func TestExtractCapsVerboseReply(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"keywords": ["k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9", "k10", "k11", "k12"]}`,
	}}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo"})

	assert.Len(t, factors, maxExtractedFactors)
	assert.Equal(t, []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"}, factors)
}

func TestExtractFallsBackOnBackendError(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("backend down")}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo"})

	assert.Equal(t, DefaultRiskFactors, factors)
}

func TestExtractFallsBackOnGarbageOutput(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{"I cannot answer that."}}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo"})

	assert.Equal(t, DefaultRiskFactors, factors)
}

func TestExtractFallsBackOnEmptyKeywordList(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"keywords": []}`}}

	factors := NewFactorExtractor(mock).Extract(context.Background(), ServiceProfile{Name: "Foo"})

	assert.Equal(t, DefaultRiskFactors, factors)
}

func TestUnionWithCanonical(t *testing.T) {
	factors := UnionWithCanonical([]string{"surveillance", "privacy", "Bias"})

	require.Equal(t, "surveillance", factors[0])
	assert.Contains(t, factors, "human oversight")

	// Case-insensitive dedupe: extracted "privacy"/"Bias" win over the
	// canonical duplicates.
	count := map[string]int{}
	for _, factor := range factors {
		count[factor]++
	}
	assert.Equal(t, 1, count["privacy"])
	assert.Equal(t, 1, count["Bias"])
	assert.NotContains(t, factors, "bias")
	assert.Len(t, factors, 11) // 3 extracted + 10 canonical - 2 dupes
}
