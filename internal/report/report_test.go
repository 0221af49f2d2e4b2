package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethix/internal/audit"
	"ethix/internal/rag"
)

func sampleRun() *audit.Run {
	return &audit.Run{
		ID:        "run-1",
		StartedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Profile: audit.ServiceProfile{
			Name:    "Loan Screener",
			Purpose: "automated credit decisions",
			Type:    audit.TypePredictive,
			Users:   "loan applicants",
		},
		RiskFactors: []string{"data bias", "privacy risk"},
		Context: &audit.RetrievalContext{
			Factors: []string{"data bias"},
			Passages: map[string][]rag.Passage{
				"data bias": {
					{Source: "eu_ai_act.md", Text: "high-risk systems"},
					{Source: "oecd.md", Text: "fairness principle"},
				},
			},
		},
		Initial: audit.Assessment{
			"bias": {Score: 4, Comment: "skewed training data"},
		},
		Final: audit.Assessment{
			"bias":    {Score: 3, Comment: "mitigations planned"},
			"privacy": {Score: 4, Comment: "broad data retention"},
		},
		Feedback: "consider the retention policy",
		Revised:  true,
		Recommendations: &audit.RecommendationSet{
			ByCategory: map[string]audit.Recommendation{
				"privacy": {
					RiskLevel: audit.RiskHigh,
					Actions:   []string{"minimize retained data"},
					Guideline: "GDPR Art. 5",
				},
			},
		},
	}
}

func TestRenderSections(t *testing.T) {
	out := NewBuilder(nil).Render(sampleRun())

	assert.Contains(t, out, "# AI Ethics Risk Assessment Report")
	assert.Contains(t, out, "**Service**: Loan Screener")
	assert.Contains(t, out, "## 1. Service Overview")
	assert.Contains(t, out, "- data bias")
	assert.Contains(t, out, "| privacy | 4.0 |")
	assert.Contains(t, out, "**Total risk score**: 4.0 / 5")
	assert.Contains(t, out, "minimize retained data")
	assert.Contains(t, out, "GDPR Art. 5")
}

func TestRenderRevisionHistory(t *testing.T) {
	run := sampleRun()
	out := NewBuilder(nil).Render(run)

	assert.Contains(t, out, "### Revision History")
	assert.Contains(t, out, "consider the retention policy")
	assert.Contains(t, out, "skewed training data")

	run.Revised = false
	out = NewBuilder(nil).Render(run)
	assert.NotContains(t, out, "Revision History")
}

func TestRenderGuidelineSourcesDeduplicated(t *testing.T) {
	run := sampleRun()
	run.Context.Passages["data bias"] = append(run.Context.Passages["data bias"],
		rag.Passage{Source: "eu_ai_act.md", Text: "duplicate source"})

	out := NewBuilder(nil).Render(run)
	assert.Equal(t, 1, strings.Count(out, "- eu_ai_act.md"))
	assert.Contains(t, out, "- oecd.md")
}

func TestRenderNarrativeRecommendations(t *testing.T) {
	run := sampleRun()
	run.Recommendations = &audit.RecommendationSet{Narrative: "Overall, tighten data governance."}

	out := NewBuilder(nil).Render(run)
	assert.Contains(t, out, "tighten data governance")
	assert.NotContains(t, out, "risk)")
}

func TestRenderMissingRecommendations(t *testing.T) {
	run := sampleRun()
	run.Recommendations = nil

	out := NewBuilder(nil).Render(run)
	assert.Contains(t, out, "No recommendations were generated")
}

func TestWriteCreatesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := NewBuilder(nil).Write(sampleRun(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "report_Loan_Screener_20260314_1030.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Loan Screener")
}

func TestRenderUnscoredCategoryShowsDash(t *testing.T) {
	run := sampleRun()
	run.Final["transparency"] = audit.CategoryScore{Comment: "not evaluated"}

	out := NewBuilder(nil).Render(run)
	assert.Contains(t, out, "| transparency | - | not evaluated |")
}
