package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11yreview/pkg/models"
)

// Diff fragment for Foo.kt: lines 10-15 added, line 13 holds the Slider call.
var (
	fooLines = []int{10, 11, 12, 13, 14, 15}
	fooTexts = map[int]string{
		10: "    Column {",
		11: `        Text("Volume")`,
		12: "        // volume control",
		13: "        Slider(",
		14: "            value = volume,",
		15: "        )",
	}
)

func TestResolveLineExplicitAnchor(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{
		File:       "Foo.kt",
		Line:       10,
		Title:      "Slider missing label",
		AnchorText: "Slider(",
	}

	line, matched, ok := r.ResolveLine(issue, fooTexts, fooLines, 10, ".kt", 20)
	require.True(t, ok)
	assert.Equal(t, 13, line)
	assert.Equal(t, "Slider(", matched)
}

func TestResolveLineInferredFromTitle(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{
		File:  "Foo.kt",
		Line:  10,
		Title: "slider is missing an accessible label",
	}

	line, _, ok := r.ResolveLine(issue, fooTexts, fooLines, 10, ".kt", 20)
	require.True(t, ok)
	assert.Equal(t, 13, line)
}

func TestResolveLineNoCandidates(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{File: "Foo.kt", Line: 10, Title: "something vague"}

	_, _, ok := r.ResolveLine(issue, fooTexts, fooLines, 10, ".kt", 20)
	assert.False(t, ok)
}

func TestResolveLineMaxDistance(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{File: "Foo.kt", Line: 100, Title: "slider missing label"}

	// Line 13 matches but is 87 lines from the proposal.
	_, _, ok := r.ResolveLine(issue, fooTexts, fooLines, 100, ".kt", 20)
	assert.False(t, ok)

	line, _, ok := r.ResolveLine(issue, fooTexts, fooLines, 100, ".kt", 90)
	require.True(t, ok)
	assert.Equal(t, 13, line)
}

func TestResolveLineCaseInsensitiveRetry(t *testing.T) {
	r := DefaultResolver()
	texts := map[int]string{7: "        SLIDER("}
	issue := models.Issue{File: "Foo.kt", Line: 7, Title: "x", AnchorText: "Slider("}

	line, matched, ok := r.ResolveLine(issue, texts, []int{7}, 7, ".kt", 20)
	require.True(t, ok)
	assert.Equal(t, 7, line)
	assert.Equal(t, "SLIDER(", matched)
}

func TestResolveLineTieBreaksToSmallerLine(t *testing.T) {
	r := DefaultResolver()
	texts := map[int]string{
		10: "Slider(",
		14: "Slider(",
	}
	issue := models.Issue{File: "Foo.kt", Line: 12, Title: "x", AnchorText: "Slider("}

	line, _, ok := r.ResolveLine(issue, texts, []int{10, 14}, 12, ".kt", 20)
	require.True(t, ok)
	assert.Equal(t, 10, line)
}

func TestResolveLineDeterministic(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{File: "Foo.kt", Line: 11, Title: "slider and button and text issues"}

	first, _, ok1 := r.ResolveLine(issue, fooTexts, fooLines, 11, ".kt", 20)
	for i := 0; i < 50; i++ {
		got, _, ok := r.ResolveLine(issue, fooTexts, fooLines, 11, ".kt", 20)
		assert.Equal(t, ok1, ok)
		assert.Equal(t, first, got)
	}
}

func TestCandidatesExplicitAnchorIsSole(t *testing.T) {
	r := DefaultResolver()
	issue := models.Issue{Title: "slider missing label", AnchorText: "Slider("}
	assert.Equal(t, []string{"Slider("}, r.Candidates(issue, ".kt"))
}

func TestCandidatesKeywordTable(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		ext     string
		want    string
		notWant string
	}{
		{"compose slider", "slider missing label", ".kt", "Slider(", "<SeekBar"},
		{"xml slider", "slider missing label", ".xml", "<SeekBar", "Slider("},
		{"web image alt", "image missing alt text", ".html", "<img", "<ImageView"},
		{"swift toggle", "toggle has no accessibility label", ".swift", "Toggle(", "<Switch"},
		{"generic fallback", "slider missing label", ".dart", "Slider(", ""},
	}
	r := DefaultResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Candidates(models.Issue{Title: tt.title}, tt.ext)
			assert.Contains(t, got, tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, got, tt.notWant)
			}
		})
	}
}

func TestCandidatesElementNames(t *testing.T) {
	r := DefaultResolver()
	got := r.Candidates(models.Issue{Title: "TextField lacks a hint"}, ".kt")
	assert.Contains(t, got, "TextField(")
	assert.Contains(t, got, "<TextField")
}

func TestWebRegexPattern(t *testing.T) {
	r := DefaultResolver()
	texts := map[int]string{3: `  <input type="range" min="0" max="10">`}
	issue := models.Issue{File: "index.html", Line: 3, Title: "slider has no label"}

	line, matched, ok := r.ResolveLine(issue, texts, []int{3}, 3, ".html", 20)
	require.True(t, ok)
	assert.Equal(t, 3, line)
	assert.Contains(t, matched, "range")
}
