package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11yreview/pkg/models"
)

func TestRepairJSONValidPassthrough(t *testing.T) {
	raw := `[{"file":"a.kt","line":3}]`
	repaired, stats, err := RepairJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, repaired)
	assert.False(t, stats.WasRepaired)
}

func TestRepairJSONTrailingCommas(t *testing.T) {
	repaired, stats, err := RepairJSON(`{"a": 1,}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, repaired)
	assert.Contains(t, stats.Strategies, "trailing_commas")
}

func TestRepairJSONCompletesTruncatedOutput(t *testing.T) {
	repaired, _, err := RepairJSON(`[{"file": "a.kt", "line": 3`)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"file": "a.kt", "line": 3}]`, repaired)
}

func TestRepairJSONStripsComments(t *testing.T) {
	repaired, stats, err := RepairJSON("{\n// a comment\n\"a\": 1\n}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, repaired)
	assert.Contains(t, stats.Strategies, "comments_removed")
}

func TestRepairJSONLibraryFallback(t *testing.T) {
	// Single quotes are not handled by the targeted strategies.
	repaired, stats, err := RepairJSON(`{'a': 'b'}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "b"}`, repaired)
	assert.Contains(t, stats.Strategies, "jsonrepair_library")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "Here you go:\n```json\n[{\"a\":1}]\n```\nDone.", `[{"a":1}]`},
		{"prose wrapped", `The issues are: [{"a":1}] as requested.`, `[{"a":1}]`},
		{"no array", "no issues found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestParseIssues(t *testing.T) {
	raw := `[
		{
			"file": "Foo.kt",
			"line": 13,
			"severity": "Critical",
			"wcag_sc": "1.3.1",
			"wcag_level": "A",
			"title": "Slider missing label",
			"description": "No content description.",
			"anchor_text": "Slider(",
			"suggested_fix": "Add a contentDescription."
		}
	]`

	issues, stats, err := ParseIssues(raw)
	require.NoError(t, err)
	assert.False(t, stats.WasRepaired)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, "Foo.kt", issue.File)
	assert.Equal(t, 13, issue.Line)
	assert.Equal(t, models.SeverityCritical, issue.Severity)
	assert.Equal(t, "1.3.1", issue.WCAGSC)
	assert.Equal(t, "Slider(", issue.AnchorText)
}

func TestParseIssuesNormalizesListWCAG(t *testing.T) {
	raw := `[{"file": "a.html", "line": 2, "severity": "medium", "wcag_sc": ["1.1.1", "1.3.1"], "title": "t"}]`

	issues, _, err := ParseIssues(raw)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "1.1.1; 1.3.1", issues[0].WCAGSC)
}

func TestParseIssuesLineAsString(t *testing.T) {
	raw := `[{"file": "a.html", "line": "17", "title": "t"}]`

	issues, _, err := ParseIssues(raw)
	require.NoError(t, err)
	assert.Equal(t, 17, issues[0].Line)
}

func TestParseIssuesEmptyArray(t *testing.T) {
	issues, _, err := ParseIssues("[]")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestParseIssuesNoJSON(t *testing.T) {
	_, _, err := ParseIssues("I could not find any issues.")
	assert.Error(t, err)
}

func TestParseIssuesRepairsTruncatedResponse(t *testing.T) {
	raw := `[{"file": "a.kt", "line": 3, "title": "cut off"`

	issues, stats, err := ParseIssues(raw)
	require.NoError(t, err)
	assert.True(t, stats.WasRepaired)
	require.Len(t, issues, 1)
	assert.Equal(t, "cut off", issues[0].Title)
}
