// Package report renders completed audit runs as Markdown documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ethix/internal/audit"
	"ethix/internal/logging"
)

// Builder renders audit runs. The zero value is usable.
type Builder struct {
	logger logging.Logger
}

func NewBuilder(logger logging.Logger) *Builder {
	return &Builder{logger: logging.OrNop(logger)}
}

// Render produces the full Markdown report for a run.
func (b *Builder) Render(run *audit.Run) string {
	var sb strings.Builder

	sb.WriteString("# AI Ethics Risk Assessment Report\n\n")
	fmt.Fprintf(&sb, "**Service**: %s\n", run.Profile.Name)
	fmt.Fprintf(&sb, "**Assessed**: %s\n", run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "**Run ID**: %s\n\n", run.ID)

	sb.WriteString("## 1. Service Overview\n\n")
	fmt.Fprintf(&sb, "- **Type**: %s\n", run.Profile.Type)
	fmt.Fprintf(&sb, "- **Purpose**: %s\n", run.Profile.Purpose)
	if run.Profile.Users != "" {
		fmt.Fprintf(&sb, "- **Users**: %s\n", run.Profile.Users)
	}
	if run.Profile.Model != "" {
		fmt.Fprintf(&sb, "- **Model**: %s\n", run.Profile.Model)
	}
	sb.WriteString("\n")

	sb.WriteString("## 2. Identified Risk Factors\n\n")
	for _, factor := range run.RiskFactors {
		fmt.Fprintf(&sb, "- %s\n", factor)
	}
	sb.WriteString("\n")

	sb.WriteString("## 3. Risk Assessment\n\n")
	writeAssessmentTable(&sb, run.Final)
	fmt.Fprintf(&sb, "\n**Total risk score**: %.1f / 5\n\n", run.Final.TotalScore())

	if run.Revised {
		sb.WriteString("### Revision History\n\n")
		sb.WriteString("This assessment was revised once after reviewer feedback.\n\n")
		fmt.Fprintf(&sb, "**Reviewer feedback**: %s\n\n", run.Feedback)
		sb.WriteString("Initial scores before revision:\n\n")
		writeAssessmentTable(&sb, run.Initial)
		sb.WriteString("\n")
	}

	sb.WriteString("## 4. Recommendations\n\n")
	writeRecommendations(&sb, run.Recommendations)

	if sources := contextSources(run); len(sources) > 0 {
		sb.WriteString("## 5. Guideline Sources\n\n")
		for _, source := range sources {
			fmt.Fprintf(&sb, "- %s\n", source)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Write renders the run and saves it under dir as
// report_<service>_<timestamp>.md, creating dir when needed.
func (b *Builder) Write(run *audit.Run, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := strings.ReplaceAll(strings.TrimSpace(run.Profile.Name), " ", "_")
	if name == "" {
		name = "service"
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s_%s.md", name, run.StartedAt.Format("20060102_1504")))
	if err := os.WriteFile(path, []byte(b.Render(run)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	b.logger.Info("report written to %s", path)
	return path, nil
}

func writeAssessmentTable(sb *strings.Builder, assessment audit.Assessment) {
	sb.WriteString("| Category | Score | Notes |\n")
	sb.WriteString("|----------|-------|-------|\n")
	for _, category := range sortedCategories(assessment) {
		entry := assessment[category]
		score := "-"
		if entry.HasScore() {
			score = fmt.Sprintf("%.1f", entry.Score)
		}
		fmt.Fprintf(sb, "| %s | %s | %s |\n", category, score, tableCell(entry.Comment))
	}
}

func writeRecommendations(sb *strings.Builder, set *audit.RecommendationSet) {
	if set == nil || (len(set.ByCategory) == 0 && set.Narrative == "") {
		sb.WriteString("No recommendations were generated for this run.\n\n")
		return
	}
	if set.Narrative != "" {
		sb.WriteString(set.Narrative)
		sb.WriteString("\n\n")
		return
	}

	categories := make([]string, 0, len(set.ByCategory))
	for category := range set.ByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		rec := set.ByCategory[category]
		fmt.Fprintf(sb, "### %s (%s risk)\n\n", category, rec.RiskLevel)
		for _, action := range rec.Actions {
			fmt.Fprintf(sb, "- %s\n", action)
		}
		if rec.Guideline != "" {
			fmt.Fprintf(sb, "\n*Reference: %s*\n", rec.Guideline)
		}
		sb.WriteString("\n")
	}
}

// contextSources lists the distinct guideline documents that informed the
// assessment, in first-seen order.
func contextSources(run *audit.Run) []string {
	if run.Context == nil {
		return nil
	}
	seen := make(map[string]bool)
	var sources []string
	for _, factor := range run.Context.Factors {
		for _, passage := range run.Context.Passages[factor] {
			if passage.Source == "" || seen[passage.Source] {
				continue
			}
			seen[passage.Source] = true
			sources = append(sources, passage.Source)
		}
	}
	return sources
}

func sortedCategories(assessment audit.Assessment) []string {
	keys := make([]string, 0, len(assessment))
	for key := range assessment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// tableCell flattens a comment into a single table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
