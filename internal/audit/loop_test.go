package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethix/internal/llm"
	"ethix/internal/rag"
)

// queueCollector returns scripted feedback values in order.
type queueCollector struct {
	feedback []string
	err      error
	calls    int
}

func (c *queueCollector) Collect(context.Context, Assessment, []string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.feedback) == 0 {
		return "", nil
	}
	value := c.feedback[0]
	c.feedback = c.feedback[1:]
	return value, nil
}

func newLoopFixture(t *testing.T, collector FeedbackCollector, responses ...string) (*LoopController, *llm.MockClient, *scriptedStore) {
	t.Helper()
	store := &scriptedStore{results: map[string][]rag.SearchResult{}}
	retriever := NewGuidelineRetriever(store, RetrieverConfig{})
	mock := &llm.MockClient{Responses: responses}
	evaluator := NewEvaluator(mock, EvaluatorConfig{})
	controller := NewLoopController(retriever, evaluator, collector, LoopConfig{})
	return controller, mock, store
}

func TestShouldTriggerAnyCategoryPolicy(t *testing.T) {
	controller, _, _ := newLoopFixture(t, &queueCollector{})

	high := Assessment{"safety": {Score: 5}, "privacy": {Score: 2}}
	low := Assessment{"safety": {Score: 2}, "privacy": {Score: 3}}

	assert.True(t, controller.ShouldTrigger(high))
	assert.False(t, controller.ShouldTrigger(low))
}

func TestShouldTriggerMaxScorePolicy(t *testing.T) {
	store := &scriptedStore{results: map[string][]rag.SearchResult{}}
	retriever := NewGuidelineRetriever(store, RetrieverConfig{})
	evaluator := NewEvaluator(&llm.MockClient{Responses: []string{"{}"}}, EvaluatorConfig{})
	controller := NewLoopController(retriever, evaluator, &queueCollector{}, LoopConfig{Policy: PolicyMaxScore})

	assert.True(t, controller.ShouldTrigger(Assessment{"safety": {Score: 4}}))
	assert.False(t, controller.ShouldTrigger(Assessment{"safety": {Score: 3}}))
	// No parsed scores reduce to the default 3, below the threshold.
	assert.False(t, controller.ShouldTrigger(SentinelAssessment("raw")))
}

func TestRunNotTriggeredKeepsInitial(t *testing.T) {
	collector := &queueCollector{feedback: []string{"should never be asked"}}
	controller, mock, _ := newLoopFixture(t, collector)

	initial := Assessment{"safety": {Score: 2}, "privacy": {Score: 3}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"privacy"}, initial)

	assert.False(t, result.Revised)
	assert.Equal(t, initial, result.Final)
	assert.Equal(t, 0, collector.calls)
	assert.Equal(t, 0, mock.Calls())
}

func TestRunEmptyFeedbackSkipsRevision(t *testing.T) {
	collector := &queueCollector{feedback: []string{"   "}}
	controller, mock, store := newLoopFixture(t, collector)

	initial := Assessment{"safety": {Score: 5}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"safety"}, initial)

	assert.False(t, result.Revised)
	assert.Equal(t, initial, result.Final)
	assert.Equal(t, 1, collector.calls)
	assert.Equal(t, 0, mock.Calls())
	assert.Empty(t, store.queries)
}

func TestRunRevisionReplacesInitial(t *testing.T) {
	collector := &queueCollector{feedback: []string{"consider minors' data"}}
	controller, mock, store := newLoopFixture(t, collector,
		`{"privacy": {"score": 3, "comment": "mitigations noted"}}`)

	initial := Assessment{"privacy": {Score: 5, Comment: "initial concern"}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"privacy"}, initial)

	require.True(t, result.Revised)
	assert.Equal(t, "consider minors' data", result.Feedback)
	assert.Equal(t, 3.0, result.Final["privacy"].Score)
	assert.NotContains(t, result.Final["privacy"].Comment, "initial concern") // replaced, not merged
	assert.Equal(t, 1, mock.Calls())

	// Re-retrieval used feedback-expanded queries.
	require.NotEmpty(t, store.queries)
	for _, query := range store.queries {
		assert.Contains(t, query, "consider minors' data")
	}
}

func TestRunSingleRevisionBound(t *testing.T) {
	// Feedback queued twice; only one revision may run.
	collector := &queueCollector{feedback: []string{"first feedback", "second feedback"}}
	controller, mock, _ := newLoopFixture(t, collector,
		`{"safety": {"score": 5, "comment": "still high"}}`)

	initial := Assessment{"safety": {Score: 5}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"safety"}, initial)

	require.True(t, result.Revised)
	assert.Equal(t, 1, collector.calls)
	assert.Equal(t, 1, mock.Calls()) // one evaluator invocation in the round
}

func TestRunCollectorFailureKeepsInitial(t *testing.T) {
	collector := &queueCollector{err: errors.New("stdin closed")}
	controller, mock, _ := newLoopFixture(t, collector)

	initial := Assessment{"safety": {Score: 5}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"safety"}, initial)

	assert.False(t, result.Revised)
	assert.Equal(t, initial, result.Final)
	assert.Equal(t, 0, mock.Calls())
}

func TestRunRevisionBackendFailureKeepsInitial(t *testing.T) {
	collector := &queueCollector{feedback: []string{"check the data retention policy"}}
	store := &scriptedStore{results: map[string][]rag.SearchResult{}}
	retriever := NewGuidelineRetriever(store, RetrieverConfig{})
	mock := &llm.MockClient{Err: errors.New("backend unavailable")}
	evaluator := NewEvaluator(mock, EvaluatorConfig{})
	controller := NewLoopController(retriever, evaluator, collector, LoopConfig{})

	initial := Assessment{"safety": {Score: 5, Comment: "unmitigated"}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"safety"}, initial)

	// The failed revision must not replace real scores with defaults.
	assert.False(t, result.Revised)
	require.Equal(t, initial, result.Final)
	assert.Equal(t, 1, mock.Calls())
}

func TestRunRetrievalFailureKeepsInitial(t *testing.T) {
	collector := &queueCollector{feedback: []string{"real feedback"}}
	store := &scriptedStore{err: errors.New("store corrupted")}
	retriever := NewGuidelineRetriever(store, RetrieverConfig{})
	mock := &llm.MockClient{Responses: []string{"{}"}}
	evaluator := NewEvaluator(mock, EvaluatorConfig{})
	controller := NewLoopController(retriever, evaluator, collector, LoopConfig{})

	initial := Assessment{"safety": {Score: 5}}
	result := controller.Run(context.Background(), ServiceProfile{Name: "Foo"}, []string{"safety"}, initial)

	assert.False(t, result.Revised)
	assert.Equal(t, initial, result.Final)
	assert.Equal(t, 0, mock.Calls())
}
