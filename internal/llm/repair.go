package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats tracks what a repair pass did to a model response.
type RepairStats struct {
	OriginalBytes int           `json:"original_bytes"`
	RepairedBytes int           `json:"repaired_bytes"`
	ErrorsFixed   int           `json:"errors_fixed"`
	RepairTime    time.Duration `json:"repair_time"`
	Strategies    []string      `json:"strategies"`
	WasRepaired   bool          `json:"was_repaired"`
}

// RepairJSON attempts to repair malformed JSON using cheap targeted fixes
// first, then the jsonrepair library as the fallback:
//  1. Remove trailing commas
//  2. Complete unclosed objects/arrays
//  3. Strip JavaScript-style comments
//  4. jsonrepair library
func RepairJSON(raw string) (string, RepairStats, error) {
	start := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	var probe interface{}
	if json.Unmarshal([]byte(raw), &probe) == nil {
		stats.RepairedBytes = len(raw)
		stats.RepairTime = time.Since(start)
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired := raw

	if strings.Contains(repaired, ",}") || strings.Contains(repaired, ",]") {
		repaired = removeTrailingCommas(repaired)
		stats.Strategies = append(stats.Strategies, "trailing_commas")
		stats.ErrorsFixed++
	}

	if needsCompletion(repaired) {
		repaired = completeJSON(repaired)
		stats.Strategies = append(stats.Strategies, "completion")
		stats.ErrorsFixed++
	}

	if containsComments(repaired) {
		if stripped := stripComments(repaired); stripped != repaired {
			repaired = stripped
			stats.Strategies = append(stats.Strategies, "comments_removed")
			stats.ErrorsFixed++
		}
	}

	if json.Unmarshal([]byte(repaired), &probe) != nil {
		if libRepaired, err := jsonrepair.JSONRepair(repaired); err == nil && libRepaired != repaired {
			repaired = libRepaired
			stats.Strategies = append(stats.Strategies, "jsonrepair_library")
			stats.ErrorsFixed++
		}
	}

	stats.RepairedBytes = len(repaired)
	stats.RepairTime = time.Since(start)

	if json.Unmarshal([]byte(repaired), &probe) != nil {
		return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.Strategies))
	}
	return repaired, stats, nil
}

var (
	trailingCommaBraceRe   = regexp.MustCompile(`,\s*}`)
	trailingCommaBracketRe = regexp.MustCompile(`,\s*]`)
	lineCommentRe          = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe         = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

func removeTrailingCommas(s string) string {
	s = trailingCommaBraceRe.ReplaceAllString(s, "}")
	return trailingCommaBracketRe.ReplaceAllString(s, "]")
}

func needsCompletion(s string) bool {
	return strings.Count(s, "{") > strings.Count(s, "}") ||
		strings.Count(s, "[") > strings.Count(s, "]")
}

// completeJSON closes unclosed structures in last-opened first-closed order.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)
	var stack []rune
	for _, char := range s {
		switch char {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == char {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}

func containsComments(s string) bool {
	return lineCommentRe.MatchString(s) || blockCommentRe.MatchString(s)
}

func stripComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	return lineCommentRe.ReplaceAllString(s, "")
}
