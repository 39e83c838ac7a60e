package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/pkg/models"
)

// ParseIssues turns a raw model response into issues. The response is
// expected to be a JSON array; fenced or prose-wrapped output is tolerated,
// and malformed JSON goes through RepairJSON before parsing.
func ParseIssues(raw string) ([]models.Issue, RepairStats, error) {
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return nil, RepairStats{}, fmt.Errorf("no JSON array found in model response")
	}

	repaired, stats, err := RepairJSON(jsonStr)
	if stats.WasRepaired {
		log.Debug().Strs("strategies", stats.Strategies).
			Int("errors_fixed", stats.ErrorsFixed).Msg("model response repaired")
	}
	if err != nil {
		return nil, stats, err
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
		return nil, stats, fmt.Errorf("parsing model response: %w", err)
	}

	issues := make([]models.Issue, 0, len(entries))
	for _, entry := range entries {
		issues = append(issues, normalizeIssue(entry))
	}
	return issues, stats, nil
}

// ExtractJSON pulls the JSON array out of a response that may wrap it in
// code fences or explanatory prose.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		return raw
	}

	if strings.Contains(raw, "```") {
		var inFence bool
		var fenced []string
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = !inFence
				continue
			}
			if inFence {
				fenced = append(fenced, line)
			}
		}
		candidate := strings.TrimSpace(strings.Join(fenced, "\n"))
		if strings.HasPrefix(candidate, "[") {
			return candidate
		}
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

// normalizeIssue coerces a decoded entry into the issue schema. Models
// sometimes emit wcag_sc as a list, line as a string, or severity with
// uppercase letters.
func normalizeIssue(entry map[string]any) models.Issue {
	return models.Issue{
		File:         asString(entry["file"]),
		Line:         asInt(entry["line"]),
		Title:        asString(entry["title"]),
		Description:  asString(entry["description"]),
		Severity:     models.Severity(strings.ToLower(asString(entry["severity"]))),
		WCAGSC:       asWCAGSC(entry["wcag_sc"]),
		WCAGLevel:    asString(entry["wcag_level"]),
		AnchorText:   asString(entry["anchor_text"]),
		CurrentCode:  asString(entry["current_code"]),
		SuggestedFix: asString(entry["suggested_fix"]),
		Impact:       asString(entry["impact"]),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}

// asWCAGSC joins list-valued criteria into the "a; b" form the rest of the
// pipeline expects.
func asWCAGSC(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, asString(item))
		}
		return strings.Join(parts, "; ")
	}
	return asString(v)
}
