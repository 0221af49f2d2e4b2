package audit

import (
	"context"
	"fmt"
	"strings"

	"ethix/internal/llm"
	"ethix/internal/logging"
)

// Output contracts the evaluator can request from the backend.
const (
	ContractStructured = "structured"
	ContractFreeText   = "freetext"
)

// EvaluatorConfig bounds the grounding prompt.
type EvaluatorConfig struct {
	Contract        string // "structured" (default) or "freetext"
	SnippetLimit    int    // max passages in the context block (default: 12)
	SnippetMaxChars int    // truncation per passage (default: 600)
}

// Evaluator turns (profile, retrieved context, optional feedback) into
// an Assessment with exactly one backend call per evaluation.
type Evaluator struct {
	client llm.Client
	config EvaluatorConfig
	logger logging.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(client llm.Client, config EvaluatorConfig) *Evaluator {
	if config.Contract == "" {
		config.Contract = ContractStructured
	}
	if config.SnippetLimit <= 0 {
		config.SnippetLimit = 12
	}
	if config.SnippetMaxChars <= 0 {
		config.SnippetMaxChars = 600
	}

	return &Evaluator{
		client: client,
		config: config,
		logger: logging.NewComponentLogger("risk-evaluator"),
	}
}

const evaluatorSystemPrompt = "You are an AI ethics auditor. Ground every judgment in the " +
	"provided guideline excerpts and be conservative when evidence is thin."

// Evaluate produces a well-formed Assessment. Backend failure or an
// unparseable structured response degrades to the uniform default;
// the free-text contract degrades to the Summary sentinel instead.
// The returned Assessment is never empty and never nil.
func (e *Evaluator) Evaluate(ctx context.Context, profile ServiceProfile, retrieval *RetrievalContext, feedback string) Assessment {
	assessment, err := e.evaluate(ctx, profile, retrieval, feedback)
	if err != nil {
		e.logger.Warn("evaluation call failed, using uniform default: %v", err)
		return UniformDefaultAssessment()
	}
	return assessment
}

// evaluate is the error-aware variant: a backend failure comes back as
// an error instead of a degraded assessment, so a revision pass can
// keep what it already has.
func (e *Evaluator) evaluate(ctx context.Context, profile ServiceProfile, retrieval *RetrievalContext, feedback string) (Assessment, error) {
	prompt := e.buildPrompt(profile, retrieval, feedback)

	resp, err := e.client.Complete(ctx, llm.CompletionRequest{
		System:      evaluatorSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, err
	}

	assessment := ParseAssessment(resp.Content)
	if assessment.IsSentinel() && e.config.Contract == ContractStructured {
		e.logger.Warn("structured contract produced no parseable scores, using uniform default")
		return UniformDefaultAssessment(), nil
	}

	e.logger.Info("evaluation parsed %d categories (total score %.1f)",
		len(assessment), assessment.TotalScore())
	return assessment, nil
}

// buildPrompt assembles the grounding prompt: instruction, bounded
// context block, serialized profile, and the feedback hint if present.
func (e *Evaluator) buildPrompt(profile ServiceProfile, retrieval *RetrievalContext, feedback string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Assess the ethical risk of the AI service below for each of these categories: %s.\n",
		strings.Join(CanonicalCategories, ", "))
	sb.WriteString("Score each category from 1 (minimal risk) to 5 (severe risk).\n")

	switch e.config.Contract {
	case ContractFreeText:
		sb.WriteString("For each category write one line: \"<category>: <score> - <short comment>\".\n")
	default:
		sb.WriteString("Respond with JSON only, shaped " +
			"{\"<category>\": {\"score\": <1-5>, \"comment\": \"...\", \"references\": [\"...\"]}}.\n")
	}

	sb.WriteString("\n=== Guideline context ===\n")
	sb.WriteString(e.contextBlock(retrieval))

	sb.WriteString("\n=== Service profile ===\n")
	sb.WriteString(profile.Describe())

	if feedback = strings.TrimSpace(feedback); feedback != "" {
		sb.WriteString("\n=== Reviewer feedback (re-evaluation hint) ===\n")
		sb.WriteString(feedback)
		sb.WriteString("\n")
	}

	return sb.String()
}

// contextBlock renders at most SnippetLimit passages, each truncated,
// prefixed by the originating factor and source document.
func (e *Evaluator) contextBlock(retrieval *RetrievalContext) string {
	if retrieval == nil || len(retrieval.Passages) == 0 {
		return "(no guideline passages retrieved)\n"
	}

	var sb strings.Builder
	rendered := 0
	for _, factor := range retrieval.Factors {
		for _, passage := range retrieval.Passages[factor] {
			if rendered >= e.config.SnippetLimit {
				return sb.String()
			}
			fmt.Fprintf(&sb, "[%s] (%s)\n%s\n\n", factor, passage.Source, truncate(passage.Text, e.config.SnippetMaxChars))
			rendered++
		}
	}

	if rendered == 0 {
		return "(no guideline passages retrieved)\n"
	}
	return sb.String()
}

// truncate cuts text at a rune boundary.
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}
