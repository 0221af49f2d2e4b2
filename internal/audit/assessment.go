package audit

import "sort"

// CanonicalCategories is the fixed set of ethical dimensions evaluated
// in every run, regardless of what the extractor finds.
var CanonicalCategories = []string{
	"fairness",
	"bias",
	"transparency",
	"explainability",
	"accountability",
	"privacy",
	"safety",
	"societal impact",
	"sustainability",
	"human oversight",
}

// SentinelCategory keys the single fallback entry used when no
// structured score could be recovered from the model output.
const SentinelCategory = "Summary"

// CategoryScore is one scored risk dimension. Score 0 means "unparsed";
// present scores always lie in [1,5].
type CategoryScore struct {
	Score      float64  `json:"score,omitempty"`
	Comment    string   `json:"comment"`
	References []string `json:"references,omitempty"`
}

// HasScore reports whether a numeric score was recovered.
func (c CategoryScore) HasScore() bool {
	return c.Score >= 1 && c.Score <= 5
}

// Assessment maps category names to scores. Keys are open-ended: the
// free-text parser may discover labels outside the canonical ten.
// A well-formed Assessment is never empty.
type Assessment map[string]CategoryScore

// IsSentinel reports whether this assessment is the single-entry
// fallback produced when parsing recovered nothing.
func (a Assessment) IsSentinel() bool {
	if len(a) != 1 {
		return false
	}
	_, ok := a[SentinelCategory]
	return ok
}

// TotalScore reduces an assessment to one number using the conservative
// policy: the maximum of all present category scores. Assessments
// without any parsed score default to 3.
func (a Assessment) TotalScore() float64 {
	highest := 0.0
	for _, score := range a {
		if score.HasScore() && score.Score > highest {
			highest = score.Score
		}
	}
	if highest == 0 {
		return 3
	}
	return highest
}

// HighRiskCategories returns the categories scoring at or above the
// threshold, useful for surfacing review priorities.
func (a Assessment) HighRiskCategories(threshold float64) []string {
	var high []string
	for _, category := range sortedKeys(a) {
		if score := a[category]; score.HasScore() && score.Score >= threshold {
			high = append(high, category)
		}
	}
	return high
}

// UniformDefaultAssessment covers every canonical category with a
// neutral score. Used when the generative backend fails outright or
// the structured contract yields nothing parseable.
func UniformDefaultAssessment() Assessment {
	a := make(Assessment, len(CanonicalCategories))
	for _, category := range CanonicalCategories {
		a[category] = CategoryScore{Score: 3, Comment: "insufficient basis"}
	}
	return a
}

// SentinelAssessment wraps raw model output in the single-entry
// fallback shape.
func SentinelAssessment(raw string) Assessment {
	return Assessment{SentinelCategory: {Comment: raw}}
}

func sortedKeys(a Assessment) []string {
	keys := make([]string, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
