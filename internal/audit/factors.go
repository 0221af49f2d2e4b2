package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"ethix/internal/llm"
	"ethix/internal/logging"
)

// DefaultRiskFactors is the fallback when extraction yields nothing
// usable. The run proceeds; it never fails on extraction.
var DefaultRiskFactors = []string{
	"data bias",
	"lack of transparency",
	"non-explainability",
	"privacy risk",
}

// maxExtractedFactors bounds how many labels a verbose backend reply
// can contribute; the prompt asks for at most 8 but is not enforced.
const maxExtractedFactors = 8

const extractorPrompt = `Review the AI service profile below and list 5 to 8 potential
ethical risk keywords for it. Respond with JSON only, in the form
{"keywords": ["..."]}.

Service profile:
%s`

// FactorExtractor derives risk-factor labels from a service profile.
type FactorExtractor struct {
	client llm.Client
	logger logging.Logger
}

// NewFactorExtractor creates a factor extractor.
func NewFactorExtractor(client llm.Client) *FactorExtractor {
	return &FactorExtractor{
		client: client,
		logger: logging.NewComponentLogger("factor-extractor"),
	}
}

// Extract returns a deduplicated, order-stable list of risk-factor
// labels for the profile. Backend or parse failures degrade to the
// fixed default list.
func (e *FactorExtractor) Extract(ctx context.Context, profile ServiceProfile) []string {
	resp, err := e.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(extractorPrompt, profile.Describe()),
		Temperature: 0.2,
	})
	if err != nil {
		e.logger.Warn("factor extraction failed, using defaults: %v", err)
		return append([]string(nil), DefaultRiskFactors...)
	}

	keywords := parseKeywords(resp.Content)
	if len(keywords) == 0 {
		e.logger.Warn("factor extraction returned no usable keywords, using defaults")
		return append([]string(nil), DefaultRiskFactors...)
	}
	if len(keywords) > maxExtractedFactors {
		e.logger.Debug("truncating %d extracted factors to %d", len(keywords), maxExtractedFactors)
		keywords = keywords[:maxExtractedFactors]
	}

	e.logger.Info("extracted %d risk factors", len(keywords))
	return keywords
}

// parseKeywords decodes {"keywords": [...]} with repair tolerance and
// deduplicates while preserving first-seen order.
func parseKeywords(raw string) []string {
	candidate := extractJSONCandidate(raw)
	if candidate == "" {
		return nil
	}

	var payload struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil
		}
	}

	return dedupeLabels(payload.Keywords)
}

// dedupeLabels removes blanks and duplicates, keeping first-seen order.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	var out []string
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}

// UnionWithCanonical appends the canonical ten categories to the
// extracted factors, deduplicated, extracted factors first.
func UnionWithCanonical(factors []string) []string {
	return dedupeLabels(append(append([]string(nil), factors...), CanonicalCategories...))
}
