package audit

import (
	"context"
	"fmt"
	"strings"

	"ethix/internal/llm"
	"ethix/internal/logging"
)

// Risk levels derived from score bands.
const (
	RiskHigh   = "high"   // score >= 4
	RiskMedium = "medium" // score == 3
	RiskLow    = "low"    // score <= 2
)

// Recommendation is actionable guidance for one category.
type Recommendation struct {
	RiskLevel string   `json:"risk_level"`
	Actions   []string `json:"actions"`
	Guideline string   `json:"guideline"`
}

// RecommendationSet is what the report collaborator renders: either a
// per-category map (rule strategy) or a narrative (generative strategy).
type RecommendationSet struct {
	ByCategory map[string]Recommendation `json:"by_category,omitempty"`
	Narrative  string                    `json:"narrative,omitempty"`
}

// Recommender maps a final assessment (plus optional grounding
// context) to guidance.
type Recommender interface {
	Recommend(ctx context.Context, assessment Assessment, flattenedContext string) (*RecommendationSet, error)
}

// --- rule strategy ---

// guidelineCitations maps canonical categories to their anchoring
// policy texts; unknown categories fall back to the generic citation.
var guidelineCitations = map[string]string{
	"fairness":        "OECD AI Principles (Inclusive Growth)",
	"bias":            "UNESCO (Non-discrimination), EU AI Act (Data governance)",
	"transparency":    "EU AI Act Article 13, UNESCO Transparency",
	"explainability":  "OECD Transparency & Explainability",
	"accountability":  "EU AI Act (Accountability), OECD Accountability",
	"privacy":         "EU AI Act (Data governance), OECD Privacy Framework",
	"safety":          "EU AI Act (Safety & Robustness)",
	"societal impact": "UNESCO (Human Rights & Dignity)",
	"sustainability":  "UNESCO (Environmental & Social Well-being)",
	"human oversight": "EU AI Act Article 14 (Human Oversight)",
}

const genericCitation = "OECD/UNESCO General Principle"

// RuleRecommender produces deterministic guidance from score bands.
type RuleRecommender struct {
	logger logging.Logger
}

// NewRuleRecommender creates the deterministic strategy.
func NewRuleRecommender() *RuleRecommender {
	return &RuleRecommender{logger: logging.NewComponentLogger("recommender-rules")}
}

// Recommend maps each scored category to a risk level, action list and
// guideline citation. Sentinel and unscored entries get the neutral
// medium-band guidance.
func (r *RuleRecommender) Recommend(_ context.Context, assessment Assessment, _ string) (*RecommendationSet, error) {
	set := &RecommendationSet{ByCategory: make(map[string]Recommendation, len(assessment))}

	for category, score := range assessment {
		value := score.Score
		if !score.HasScore() {
			value = 3
		}

		set.ByCategory[category] = Recommendation{
			RiskLevel: riskLevel(value),
			Actions:   actionsForScore(value),
			Guideline: citationFor(category),
		}
	}

	r.logger.Debug("generated rule-based recommendations for %d categories", len(set.ByCategory))
	return set, nil
}

func riskLevel(score float64) string {
	switch {
	case score >= 4:
		return RiskHigh
	case score >= 3:
		return RiskMedium
	default:
		return RiskLow
	}
}

func actionsForScore(score float64) []string {
	switch {
	case score >= 4:
		return []string{
			"Document operating policies and publish them externally",
			"Introduce data quality and bias review procedures with audit logging",
			"Add a human review gate to high-risk decision flows",
		}
	case score >= 3:
		return []string{
			"Run monthly risk monitoring with sampled verification",
			"Cover the topic in customer notices and FAQ material",
		}
	default:
		return []string{
			"Perform quarterly self-checks and watch for behavioral drift",
		}
	}
}

func citationFor(category string) string {
	if citation, ok := guidelineCitations[strings.ToLower(strings.TrimSpace(category))]; ok {
		return citation
	}
	return genericCitation
}

// --- generative strategy ---

const recommendationContextLimit = 3000

const recommendationPrompt = `Based on the risk assessment and guideline context below, write
practical improvement recommendations for each assessed category.
Anchor every recommendation in the cited guidelines where possible.

=== Risk assessment ===
%s

=== Guideline context ===
%s`

// GenerativeRecommender asks the backend for prose recommendations
// grounded in the assessment and retrieval context.
type GenerativeRecommender struct {
	client       llm.Client
	contextLimit int
	logger       logging.Logger
}

// NewGenerativeRecommender creates the generative strategy.
func NewGenerativeRecommender(client llm.Client, contextLimit int) *GenerativeRecommender {
	if contextLimit <= 0 {
		contextLimit = recommendationContextLimit
	}
	return &GenerativeRecommender{
		client:       client,
		contextLimit: contextLimit,
		logger:       logging.NewComponentLogger("recommender-llm"),
	}
}

// Recommend produces a narrative recommendation block. Backend failure
// degrades to the rule strategy rather than failing the run.
func (r *GenerativeRecommender) Recommend(ctx context.Context, assessment Assessment, flattenedContext string) (*RecommendationSet, error) {
	prompt := fmt.Sprintf(recommendationPrompt,
		describeAssessment(assessment),
		truncate(flattenedContext, r.contextLimit))

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.5,
	})
	if err != nil {
		r.logger.Warn("generative recommendations failed, falling back to rules: %v", err)
		return NewRuleRecommender().Recommend(ctx, assessment, flattenedContext)
	}

	return &RecommendationSet{Narrative: resp.Content}, nil
}

// describeAssessment renders an assessment for prompt inclusion.
func describeAssessment(assessment Assessment) string {
	var sb strings.Builder
	for _, category := range sortedKeys(assessment) {
		score := assessment[category]
		if score.HasScore() {
			fmt.Fprintf(&sb, "%s: %.1f - %s\n", category, score.Score, score.Comment)
		} else {
			fmt.Fprintf(&sb, "%s: %s\n", category, score.Comment)
		}
	}
	return sb.String()
}
