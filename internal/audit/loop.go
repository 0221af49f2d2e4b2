package audit

import (
	"context"
	"strings"

	"ethix/internal/logging"
)

// TriggerPolicy selects how the feedback round is triggered.
type TriggerPolicy string

const (
	// PolicyAnyCategory triggers when any single category scores at or
	// above the threshold. This is the canonical default.
	PolicyAnyCategory TriggerPolicy = "any-category"

	// PolicyMaxScore triggers on the total-score reduction (maximum of
	// present scores, defaulting to 3 when none parsed).
	PolicyMaxScore TriggerPolicy = "max-score"
)

// LoopConfig configures the human-feedback round.
type LoopConfig struct {
	Policy    TriggerPolicy // default: any-category
	Threshold float64       // default: 4
}

// FeedbackCollector supplies one free-text feedback value from the
// reviewer. It blocks until input (possibly empty) arrives; there is
// no timeout on the human.
type FeedbackCollector interface {
	Collect(ctx context.Context, assessment Assessment, highRisk []string) (string, error)
}

// LoopResult is the outcome of the feedback round.
type LoopResult struct {
	Final    Assessment
	Feedback string
	Revised  bool

	// Context is the re-retrieved grounding context when a revision
	// ran, nil otherwise.
	Context *RetrievalContext
}

// LoopController drives the at-most-once re-retrieval + re-evaluation
// cycle. It never iterates to convergence and never lets a revision
// failure lose the initial assessment.
type LoopController struct {
	retriever *GuidelineRetriever
	evaluator *Evaluator
	collector FeedbackCollector
	config    LoopConfig
	logger    logging.Logger
}

// NewLoopController creates a feedback loop controller.
func NewLoopController(retriever *GuidelineRetriever, evaluator *Evaluator, collector FeedbackCollector, config LoopConfig) *LoopController {
	if config.Policy == "" {
		config.Policy = PolicyAnyCategory
	}
	if config.Threshold == 0 {
		config.Threshold = 4
	}

	return &LoopController{
		retriever: retriever,
		evaluator: evaluator,
		collector: collector,
		config:    config,
		logger:    logging.NewComponentLogger("feedback-loop"),
	}
}

// ShouldTrigger applies the configured trigger policy to an assessment.
func (c *LoopController) ShouldTrigger(assessment Assessment) bool {
	switch c.config.Policy {
	case PolicyMaxScore:
		return assessment.TotalScore() >= c.config.Threshold
	default:
		return len(assessment.HighRiskCategories(c.config.Threshold)) > 0
	}
}

// Run executes the feedback round against the initial assessment. The
// returned final assessment either equals the initial one (round not
// triggered, feedback empty, or revision failed) or fully replaces it.
func (c *LoopController) Run(ctx context.Context, profile ServiceProfile, factors []string, initial Assessment) LoopResult {
	result := LoopResult{Final: initial}

	if !c.ShouldTrigger(initial) {
		c.logger.Debug("feedback round not triggered (policy=%s threshold=%.1f)",
			c.config.Policy, c.config.Threshold)
		return result
	}

	highRisk := initial.HighRiskCategories(c.config.Threshold)
	feedback, err := c.collector.Collect(ctx, initial, highRisk)
	if err != nil {
		c.logger.Warn("feedback collection failed, keeping initial assessment: %v", err)
		return result
	}

	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		c.logger.Info("no feedback provided, keeping initial assessment")
		return result
	}
	result.Feedback = feedback

	retrieval, err := c.retriever.RetrieveFactors(ctx, factors, feedback)
	if err != nil {
		c.logger.Warn("re-retrieval failed, keeping initial assessment: %v", err)
		return result
	}

	revised, err := c.evaluator.evaluate(ctx, profile, retrieval, feedback)
	if err != nil {
		c.logger.Warn("revision evaluation failed, keeping initial assessment: %v", err)
		return result
	}
	result.Final = revised
	result.Revised = true
	result.Context = retrieval

	c.logger.Info("revised assessment replaces initial (%d categories)", len(revised))
	return result
}
