package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethix/internal/llm"
)

func TestRuleRecommenderScoreBands(t *testing.T) {
	assessment := Assessment{
		"privacy":      {Score: 5},
		"transparency": {Score: 3},
		"safety":       {Score: 1},
	}

	set, err := NewRuleRecommender().Recommend(context.Background(), assessment, "")
	require.NoError(t, err)

	assert.Equal(t, RiskHigh, set.ByCategory["privacy"].RiskLevel)
	assert.Equal(t, RiskMedium, set.ByCategory["transparency"].RiskLevel)
	assert.Equal(t, RiskLow, set.ByCategory["safety"].RiskLevel)

	assert.Len(t, set.ByCategory["privacy"].Actions, 3)
	assert.Len(t, set.ByCategory["transparency"].Actions, 2)
	assert.Len(t, set.ByCategory["safety"].Actions, 1)
}

func TestRuleRecommenderCitations(t *testing.T) {
	assessment := Assessment{
		"human oversight":    {Score: 4},
		"unforeseen concern": {Score: 4},
	}

	set, err := NewRuleRecommender().Recommend(context.Background(), assessment, "")
	require.NoError(t, err)

	assert.Equal(t, "EU AI Act Article 14 (Human Oversight)", set.ByCategory["human oversight"].Guideline)
	assert.Equal(t, genericCitation, set.ByCategory["unforeseen concern"].Guideline)
}

func TestRuleRecommenderUnscoredEntriesGetMediumBand(t *testing.T) {
	set, err := NewRuleRecommender().Recommend(context.Background(), SentinelAssessment("raw"), "")
	require.NoError(t, err)

	require.Contains(t, set.ByCategory, SentinelCategory)
	assert.Equal(t, RiskMedium, set.ByCategory[SentinelCategory].RiskLevel)
}

func TestGenerativeRecommenderTruncatesContext(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{"Improve data governance."}}
	recommender := NewGenerativeRecommender(mock, 100)

	longContext := strings.Repeat("guideline text ", 100)
	set, err := recommender.Recommend(context.Background(), Assessment{"privacy": {Score: 4}}, longContext)

	require.NoError(t, err)
	assert.Equal(t, "Improve data governance.", set.Narrative)

	prompt := mock.Requests()[0].Prompt
	assert.Less(t, len(prompt), len(longContext))
	assert.Contains(t, prompt, "privacy: 4.0")
}

func TestGenerativeRecommenderFallsBackToRules(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("backend down")}
	recommender := NewGenerativeRecommender(mock, 0)

	set, err := recommender.Recommend(context.Background(), Assessment{"privacy": {Score: 5}}, "")

	require.NoError(t, err)
	assert.Empty(t, set.Narrative)
	assert.Equal(t, RiskHigh, set.ByCategory["privacy"].RiskLevel)
}
