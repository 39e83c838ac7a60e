package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11yreview/internal/guides"
	"github.com/a11yreview/internal/providers/github"
	"github.com/a11yreview/pkg/models"
)

const serviceDiff = `diff --git a/Foo.kt b/Foo.kt
--- a/Foo.kt
+++ b/Foo.kt
@@ -9,1 +10,6 @@
+fun Volume() {
+    Text("Volume")
+    // adjust with the slider below
+    Slider(
+        value = volume,
+    )
`

type fakeForge struct {
	diff     string
	files    []string
	sha      string
	existing []models.CommentLocation
	statuses []string
	diffErr  error
}

func (f *fakeForge) PRDiff(context.Context, github.PRRef) (string, error) {
	return f.diff, f.diffErr
}
func (f *fakeForge) ChangedFiles(context.Context, github.PRRef) ([]string, error) {
	return f.files, nil
}
func (f *fakeForge) PRHeadSHA(context.Context, github.PRRef) (string, error) {
	return f.sha, nil
}
func (f *fakeForge) ExistingCommentLocations(context.Context, github.PRRef) ([]models.CommentLocation, error) {
	return f.existing, nil
}
func (f *fakeForge) PostCommitStatus(_ context.Context, _ github.PRRef, _ string, state, _ string) error {
	f.statuses = append(f.statuses, state)
	return nil
}

type fakePoster struct {
	calls  int
	posted []models.ResolvedIssue
}

func (f *fakePoster) PostReviewComments(_ context.Context, _ github.PRRef, _ string,
	issues []models.ResolvedIssue, _ []models.CommentLocation) (int, error) {
	f.calls++
	f.posted = append(f.posted, issues...)
	return len(issues), nil
}

type fakeReviewer struct {
	issues  []models.Issue
	err     error
	prompts []string
}

func (f *fakeReviewer) ReviewIssues(_ context.Context, prompt string) ([]models.Issue, error) {
	f.prompts = append(f.prompts, prompt)
	return f.issues, f.err
}

var serviceRef = github.PRRef{Owner: "acme", Repo: "app", Number: 7}

func newTestService(forge *fakeForge, poster *fakePoster, reviewer *fakeReviewer, opts ServiceOptions) *Service {
	return NewService(forge, poster, reviewer, guides.NewLoader(os.TempDir()), opts)
}

func TestRunPostsValidatedIssues(t *testing.T) {
	forge := &fakeForge{diff: serviceDiff, files: []string{"Foo.kt", "README.md"}, sha: "sha1"}
	poster := &fakePoster{}
	reviewer := &fakeReviewer{issues: []models.Issue{{
		File:     "Foo.kt",
		Line:     12,
		Title:    "Slider missing label",
		Severity: models.SeverityCritical,
		WCAGSC:   "1.3.1",
	}}}

	result, err := newTestService(forge, poster, reviewer, DefaultServiceOptions()).Run(context.Background(), serviceRef)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{"Android"}, result.Phases)
	assert.Equal(t, 1, result.IssuesFound)
	assert.Equal(t, 1, result.IssuesPosted)
	require.Len(t, poster.posted, 1)
	// The anchor pulls the comment onto the Slider( line.
	assert.Equal(t, 13, poster.posted[0].ResolvedLine)
	// An empty code excerpt is backfilled from the diff.
	assert.Contains(t, poster.posted[0].CurrentCode, "Slider(")

	require.Len(t, reviewer.prompts, 1)
	assert.Contains(t, reviewer.prompts[0], "Platforms detected: Android")
	assert.Contains(t, reviewer.prompts[0], "Slider(")

	assert.Equal(t, []string{"pending", "failure"}, forge.statuses)
}

func TestRunSuccessStatusWithoutCritical(t *testing.T) {
	forge := &fakeForge{diff: serviceDiff, files: []string{"Foo.kt"}, sha: "sha1"}
	reviewer := &fakeReviewer{issues: []models.Issue{{
		File: "Foo.kt", Line: 12, Title: "Hardcoded text", Severity: models.SeverityMedium, WCAGSC: "3.1.2",
	}}}

	_, err := newTestService(forge, &fakePoster{}, reviewer, DefaultServiceOptions()).Run(context.Background(), serviceRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending", "success"}, forge.statuses)
}

func TestRunNoReviewableFiles(t *testing.T) {
	forge := &fakeForge{diff: "", files: []string{"README.md", "build.gradle"}, sha: "sha1"}
	poster := &fakePoster{}
	reviewer := &fakeReviewer{}

	result, err := newTestService(forge, poster, reviewer, DefaultServiceOptions()).Run(context.Background(), serviceRef)
	require.NoError(t, err)
	assert.Empty(t, result.Phases)
	assert.Zero(t, poster.calls)
	assert.Empty(t, reviewer.prompts)
	assert.Equal(t, []string{"pending", "success"}, forge.statuses)
}

func TestRunBatchFailureSkipsBatch(t *testing.T) {
	forge := &fakeForge{diff: serviceDiff, files: []string{"Foo.kt"}, sha: "sha1"}
	poster := &fakePoster{}
	reviewer := &fakeReviewer{err: errors.New("model unavailable")}

	result, err := newTestService(forge, poster, reviewer, DefaultServiceOptions()).Run(context.Background(), serviceRef)
	require.NoError(t, err)
	assert.Zero(t, result.IssuesFound)
	assert.Zero(t, poster.calls)
	assert.Equal(t, []string{"pending", "success"}, forge.statuses)
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	forge := &fakeForge{diffErr: errors.New("503"), sha: "sha1"}

	_, err := newTestService(forge, &fakePoster{}, &fakeReviewer{}, DefaultServiceOptions()).Run(context.Background(), serviceRef)
	require.Error(t, err)
	assert.Equal(t, []string{"pending", "error"}, forge.statuses)
}

func TestRunWritesSarif(t *testing.T) {
	sarifPath := filepath.Join(t.TempDir(), "out", "report.sarif")
	opts := DefaultServiceOptions()
	opts.SarifPath = sarifPath

	forge := &fakeForge{diff: serviceDiff, files: []string{"Foo.kt"}, sha: "sha1"}
	reviewer := &fakeReviewer{issues: []models.Issue{{
		File: "Foo.kt", Line: 12, Title: "Slider missing label", Severity: models.SeverityHigh, WCAGSC: "1.3.1",
	}}}

	_, err := newTestService(forge, &fakePoster{}, reviewer, opts).Run(context.Background(), serviceRef)
	require.NoError(t, err)

	data, err := os.ReadFile(sarifPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wcag-1-3-1")
	assert.Contains(t, string(data), "https://github.com/acme/app")
}

func TestFilterReviewableFiles(t *testing.T) {
	files := []string{
		"app/Main.kt",
		"app/res/layout/activity_main.xml",
		"app/res/values/strings.xml",
		"AndroidManifest.xml",
		"README.md",
		".github/workflows/ci.yml",
		"ios/Podfile",
		"web/index.html",
		"settings.gradle.kts",
	}
	got := FilterReviewableFiles(files)
	assert.Equal(t, []string{"app/Main.kt", "app/res/layout/activity_main.xml", "web/index.html"}, got)
}
