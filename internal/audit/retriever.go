package audit

import (
	"context"
	"fmt"
	"strings"

	"ethix/internal/logging"
	"ethix/internal/rag"
)

// RetrievalContext maps each risk factor to its retained guideline
// passages. It is rebuilt fresh on every retrieval and never mutated
// in place.
type RetrievalContext struct {
	Factors  []string                 // query order
	Passages map[string][]rag.Passage // factor -> retained passages
}

// Flatten concatenates all retained passage texts for report and
// audit purposes.
func (c *RetrievalContext) Flatten() string {
	var sb strings.Builder
	for _, factor := range c.Factors {
		for _, passage := range c.Passages[factor] {
			fmt.Fprintf(&sb, "[%s] (%s)\n%s\n\n", factor, passage.Source, passage.Text)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RetrieverConfig bounds retrieval fan-out and retention.
type RetrieverConfig struct {
	FactorFanout int // store lookups per factor (default: 5)
	FactorKeep   int // passages retained per factor (default: 2)
	QueryKeep    int // passages retained for a scalar query (default: 3)
}

// GuidelineRetriever issues one store lookup per risk factor and
// retains the top passages. Feedback text expands the query itself,
// changing what is searched for rather than filtering results.
type GuidelineRetriever struct {
	store  rag.VectorStore
	config RetrieverConfig
	logger logging.Logger
}

// NewGuidelineRetriever creates a retriever over the guideline store.
func NewGuidelineRetriever(store rag.VectorStore, config RetrieverConfig) *GuidelineRetriever {
	if config.FactorFanout <= 0 {
		config.FactorFanout = 5
	}
	if config.FactorKeep <= 0 {
		config.FactorKeep = 2
	}
	if config.QueryKeep <= 0 {
		config.QueryKeep = 3
	}

	return &GuidelineRetriever{
		store:  store,
		config: config,
		logger: logging.NewComponentLogger("guideline-retriever"),
	}
}

// RetrieveFactors looks up grounding passages for each factor. An
// empty result for a factor is not an error; the factor keeps an empty
// passage list and the evaluator copes with a fully empty context.
func (r *GuidelineRetriever) RetrieveFactors(ctx context.Context, factors []string, feedback string) (*RetrievalContext, error) {
	retrieval := &RetrievalContext{
		Factors:  append([]string(nil), factors...),
		Passages: make(map[string][]rag.Passage, len(factors)),
	}

	for _, factor := range factors {
		query := expandQuery(factor, feedback)
		results, err := r.store.Query(ctx, query, r.config.FactorFanout)
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", factor, err)
		}

		keep := r.config.FactorKeep
		if keep > len(results) {
			keep = len(results)
		}

		passages := make([]rag.Passage, 0, keep)
		for _, result := range results[:keep] {
			passages = append(passages, result.Passage)
		}
		retrieval.Passages[factor] = passages
	}

	r.logger.Debug("retrieved context for %d factors (feedback=%v)", len(factors), feedback != "")
	return retrieval, nil
}

// RetrieveQuery looks up grounding passages for one scalar query.
func (r *GuidelineRetriever) RetrieveQuery(ctx context.Context, query, feedback string) ([]rag.Passage, error) {
	results, err := r.store.Query(ctx, expandQuery(query, feedback), r.config.FactorFanout)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", query, err)
	}

	keep := r.config.QueryKeep
	if keep > len(results) {
		keep = len(results)
	}

	passages := make([]rag.Passage, 0, keep)
	for _, result := range results[:keep] {
		passages = append(passages, result.Passage)
	}
	return passages, nil
}

// expandQuery appends reviewer feedback to the lookup text.
func expandQuery(query, feedback string) string {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return query
	}
	return query + " " + feedback
}
