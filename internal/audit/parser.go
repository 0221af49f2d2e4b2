package audit

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// The parser consolidates the two output contracts into one recovery
// chain: attempt a structured JSON decode first (with repair for the
// almost-JSON the backend tends to emit), fall back to line-pattern
// scanning over free text, and finally wrap the raw output in the
// Summary sentinel. The result is never an empty map.

// ParseAssessment parses raw model output into an Assessment.
func ParseAssessment(raw string) Assessment {
	if a := parseStructured(raw); len(a) > 0 {
		return a
	}
	if a := parseScoreLines(raw); len(a) > 0 {
		return a
	}
	return SentinelAssessment(raw)
}

// --- structured (JSON) tier ---

type structuredEntry struct {
	Score      any      `json:"score"`
	Comment    string   `json:"comment"`
	References []string `json:"references"`
}

// parseStructured attempts to decode `{category: {score, comment,
// references[]}}`, repairing malformed JSON before giving up.
func parseStructured(raw string) Assessment {
	candidate := extractJSONCandidate(raw)
	if candidate == "" {
		return nil
	}

	entries := decodeEntries(candidate)
	if entries == nil {
		repaired, err := jsonrepair.JSONRepair(candidate)
		if err != nil {
			return nil
		}
		entries = decodeEntries(repaired)
	}
	if entries == nil {
		return nil
	}

	a := Assessment{}
	for category, entry := range entries {
		score, ok := coerceScore(entry.Score)
		if !ok {
			continue
		}
		a[category] = CategoryScore{
			Score:      score,
			Comment:    entry.Comment,
			References: entry.References,
		}
	}
	if len(a) == 0 {
		return nil
	}
	return a
}

func decodeEntries(candidate string) map[string]structuredEntry {
	var entries map[string]structuredEntry
	if err := json.Unmarshal([]byte(candidate), &entries); err != nil {
		return nil
	}
	return entries
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONCandidate pulls the most plausible JSON object out of the
// output: a fenced block when present, otherwise the outermost braces.
func extractJSONCandidate(raw string) string {
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// coerceScore accepts numeric or string-typed scores and enforces the
// 1-5 bound.
func coerceScore(value any) (float64, bool) {
	var score float64
	switch v := value.(type) {
	case float64:
		score = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		score = parsed
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		score = parsed
	default:
		return 0, false
	}

	if score < 1 || score > 5 {
		return 0, false
	}
	return score, true
}

// --- free-text (line pattern) tier ---

// scoreLineRe matches `<label> <colon|dash> <number>` with an optional
// "/5" or unit suffix. Labels are Unicode letters/digits/spaces/parens
// so categories the canonical list does not foresee still parse.
var scoreLineRe = regexp.MustCompile(`^([\p{L}][\p{L}\p{N} ()]*?)\s*[:\-]\s*([0-9]+(?:\.[0-9])?)\s*(?:/\s*5|점|points?|pts)?\b`)

// listMarkerRe strips leading bullets, enumeration and heading markers.
var listMarkerRe = regexp.MustCompile(`^\s*(?:[-*•>]+\s*|\d+[.)]\s*|\(\d+\)\s*|#+\s*)+`)

// noiseMarkers flag aggregate or meta lines that would otherwise be
// captured as spurious categories.
var noiseMarkers = []string{
	"score:",
	"average",
	"summary",
	"total",
	"overall",
	"평균",
	"총점",
	"요약",
	"합계",
}

// parseScoreLines scans free text line by line for category scores.
func parseScoreLines(raw string) Assessment {
	a := Assessment{}

	for _, line := range strings.Split(raw, "\n") {
		original := strings.TrimSpace(line)
		if original == "" {
			continue
		}

		lowered := strings.ToLower(original)
		if containsAny(lowered, noiseMarkers...) {
			continue
		}

		cleaned := listMarkerRe.ReplaceAllString(original, "")
		cleaned = strings.ReplaceAll(cleaned, "**", "")
		cleaned = strings.ReplaceAll(cleaned, "`", "")
		cleaned = strings.TrimSpace(cleaned)

		m := scoreLineRe.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}

		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil || score < 1 || score > 5 {
			continue
		}

		label := strings.TrimSpace(m[1])
		a[label] = CategoryScore{Score: score, Comment: original}
	}

	if len(a) == 0 {
		return nil
	}
	return a
}
