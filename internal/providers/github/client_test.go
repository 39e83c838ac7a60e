package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11yreview/internal/retry"
	"github.com/a11yreview/pkg/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, StaticToken("pat"))
	client.retryCfg = retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return client
}

var testRef = PRRef{Owner: "acme", Repo: "app", Number: 7}

func TestPRDiff(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/app/pulls/7", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		assert.Equal(t, "token pat", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("diff --git a/Foo.kt b/Foo.kt\n"))
	}))

	diff, err := client.PRDiff(context.Background(), testRef)
	require.NoError(t, err)
	assert.Contains(t, diff, "diff --git a/Foo.kt")
}

func TestPRDiffRetriesServerError(t *testing.T) {
	calls := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "oops", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("diff"))
	}))

	diff, err := client.PRDiff(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "diff", diff)
	assert.Equal(t, 2, calls)
}

func TestChangedFilesSkipsRemoved(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/app/pulls/7/files", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"filename": "Foo.kt", "status": "modified"},
			{"filename": "Old.kt", "status": "removed"},
			{"filename": "web/index.html", "status": "added"},
		})
	}))

	files, err := client.ChangedFiles(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo.kt", "web/index.html"}, files)
}

func TestPRHeadSHA(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"head": {"sha": "deadbeef"}}`))
	}))

	sha, err := client.PRHeadSHA(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", sha)
}

func TestExistingCommentLocations(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"path": "Foo.kt", "line": 13, "body": "## 🔴 Accessibility Issue: Slider missing label\nmore"},
			{"path": "Bar.kt", "line": 0, "original_line": 4, "body": "plain comment"},
			{"path": "", "line": 9, "body": "no path"},
		})
	}))

	locations, err := client.ExistingCommentLocations(context.Background(), testRef)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, models.CommentLocation{Path: "Foo.kt", Line: 13, Title: "Slider missing label"}, locations[0])
	assert.Equal(t, 4, locations[1].Line)
}

func TestExistingCommentLocationsFetchFailureIsSoft(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))

	locations, err := client.ExistingCommentLocations(context.Background(), testRef)
	assert.NoError(t, err)
	assert.Empty(t, locations)
}

func TestPostReviewUnprocessable(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "line must be part of the diff"}`, http.StatusUnprocessableEntity)
	}))

	err := client.PostReview(context.Background(), testRef, ReviewPayload{})
	assert.ErrorIs(t, err, ErrUnprocessable)
}

func TestPostCommitStatus(t *testing.T) {
	var got map[string]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/app/statuses/deadbeef", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))

	err := client.PostCommitStatus(context.Background(), testRef, "deadbeef", "success", "No issues found")
	require.NoError(t, err)
	assert.Equal(t, "accessibility-review", got["context"])
	assert.Equal(t, "success", got["state"])
}
