package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ethix/internal/logging"
)

// Run is the explicit, typed run state threaded through pipeline
// stages. Each stage fills its own fields; nothing is shared or global.
type Run struct {
	ID        string
	StartedAt time.Time

	Profile     ServiceProfile
	RiskFactors []string

	Context     *RetrievalContext
	FlatContext string

	Initial  Assessment
	Final    Assessment
	Feedback string
	Revised  bool

	Recommendations *RecommendationSet
}

// Pipeline wires the assessment stages into the synchronous control
// flow: extract -> retrieve -> evaluate -> feedback round -> recommend.
type Pipeline struct {
	extractor   *FactorExtractor
	retriever   *GuidelineRetriever
	evaluator   *Evaluator
	loop        *LoopController
	recommender Recommender
	logger      logging.Logger
}

// NewPipeline assembles a pipeline from its stages.
func NewPipeline(extractor *FactorExtractor, retriever *GuidelineRetriever, evaluator *Evaluator, loop *LoopController, recommender Recommender) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		retriever:   retriever,
		evaluator:   evaluator,
		loop:        loop,
		recommender: recommender,
		logger:      logging.NewComponentLogger("pipeline"),
	}
}

// Execute runs one full assessment. The profile is validated before
// any backend call; afterwards every stage degrades rather than fails,
// so the only error paths left are shape validation and retrieval
// against a broken store.
func (p *Pipeline) Execute(ctx context.Context, profile ServiceProfile) (*Run, error) {
	normalized, err := profile.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid service profile: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Profile:   normalized,
	}
	p.logger.Info("run %s started for service %q", run.ID, normalized.Name)

	// Extraction degrades to the default factor list internally.
	extracted := p.extractor.Extract(ctx, normalized)
	run.RiskFactors = UnionWithCanonical(extracted)

	run.Context, err = p.retriever.RetrieveFactors(ctx, run.RiskFactors, "")
	if err != nil {
		return nil, fmt.Errorf("retrieve guidelines: %w", err)
	}
	run.FlatContext = run.Context.Flatten()

	run.Initial = p.evaluator.Evaluate(ctx, normalized, run.Context, "")

	loopResult := p.loop.Run(ctx, normalized, run.RiskFactors, run.Initial)
	run.Final = loopResult.Final
	run.Feedback = loopResult.Feedback
	run.Revised = loopResult.Revised
	if loopResult.Context != nil {
		run.Context = loopResult.Context
		run.FlatContext = loopResult.Context.Flatten()
	}

	run.Recommendations, err = p.recommender.Recommend(ctx, run.Final, run.FlatContext)
	if err != nil {
		// Guidance is advisory; a failed recommender does not void the
		// assessment.
		p.logger.Warn("recommendation generation failed: %v", err)
		run.Recommendations = &RecommendationSet{}
	}

	p.logger.Info("run %s finished (revised=%v, total score %.1f)",
		run.ID, run.Revised, run.Final.TotalScore())
	return run, nil
}
