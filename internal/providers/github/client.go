package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/a11yreview/internal/retry"
	"github.com/a11yreview/pkg/models"
)

// ErrUnprocessable marks a 422 response, which for review posting usually
// means line numbers that fall outside the diff.
var ErrUnprocessable = errors.New("github: unprocessable entity")

// PRRef identifies one pull request.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Client is a minimal GitHub REST client scoped to what PR reviews need.
// Requests share a rate limiter; idempotent reads are retried with backoff.
type Client struct {
	baseURL    string
	source     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
}

func NewClient(baseURL string, source TokenSource) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		source:     source,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		retryCfg:   retry.DefaultConfig(),
	}
}

func (c *Client) do(ctx context.Context, method, path, accept string, payload any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%w: %s %s: %s", ErrUnprocessable, method, path, snippet)
		}
		return nil, fmt.Errorf("github: %s %s: %s: %s", method, path, resp.Status, snippet)
	}
	return resp, nil
}

// get runs an idempotent request with retry and hands the body to parse.
func (c *Client) get(ctx context.Context, path, accept string, parse func(*http.Response) error) error {
	result := retry.Do(ctx, c.retryCfg, "github_get", func() error {
		resp, err := c.do(ctx, http.MethodGet, path, accept, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return parse(resp)
	})
	if !result.Success {
		return result.LastError
	}
	return nil
}

// PRDiff fetches the unified diff for a pull request.
func (c *Client) PRDiff(ctx context.Context, ref PRRef) (string, error) {
	var diff string
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", ref.Owner, ref.Repo, ref.Number)
	err := c.get(ctx, path, "application/vnd.github.v3.diff", func(resp *http.Response) error {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		diff = string(data)
		return nil
	})
	return diff, err
}

// ChangedFiles lists the paths changed in a pull request, excluding removed
// files. Pagination follows the page parameter until a short page.
func (c *Client) ChangedFiles(ctx context.Context, ref PRRef) ([]string, error) {
	const perPage = 100
	var files []string
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			ref.Owner, ref.Repo, ref.Number, perPage, page)

		var entries []struct {
			Filename string `json:"filename"`
			Status   string `json:"status"`
		}
		err := c.get(ctx, path, "", func(resp *http.Response) error {
			return json.NewDecoder(resp.Body).Decode(&entries)
		})
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Status == "removed" {
				continue
			}
			files = append(files, entry.Filename)
		}
		if len(entries) < perPage {
			return files, nil
		}
	}
}

// PRHeadSHA returns the head commit of a pull request.
func (c *Client) PRHeadSHA(ctx context.Context, ref PRRef) (string, error) {
	var pr struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", ref.Owner, ref.Repo, ref.Number)
	err := c.get(ctx, path, "", func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&pr)
	})
	return pr.Head.SHA, err
}

const commentTitleMarker = "Accessibility Issue:"

// ExistingCommentLocations fetches where review comments already sit, with
// the issue title extracted from the comment body so near-miss duplicates
// can be matched by title.
func (c *Client) ExistingCommentLocations(ctx context.Context, ref PRRef) ([]models.CommentLocation, error) {
	var comments []struct {
		Path         string `json:"path"`
		Line         int    `json:"line"`
		OriginalLine int    `json:"original_line"`
		Body         string `json:"body"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", ref.Owner, ref.Repo, ref.Number)
	if err := c.get(ctx, path, "", func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&comments)
	}); err != nil {
		// Posting still works without the existing set; dedup just loses
		// the cross-run signal.
		log.Warn().Err(err).Str("pr", ref.String()).Msg("fetching existing comments failed")
		return nil, nil
	}

	var locations []models.CommentLocation
	for _, comment := range comments {
		line := comment.Line
		if line == 0 {
			line = comment.OriginalLine
		}
		if comment.Path == "" || line == 0 {
			continue
		}
		locations = append(locations, models.CommentLocation{
			Path:  comment.Path,
			Line:  line,
			Title: titleFromBody(comment.Body),
		})
	}
	return locations, nil
}

func titleFromBody(body string) string {
	idx := strings.Index(body, commentTitleMarker)
	if idx < 0 {
		return strings.TrimSpace(truncate(body, 50))
	}
	rest := body[idx+len(commentTitleMarker):]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[:nl]
	}
	return truncate(strings.TrimSpace(rest), 50)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ReviewComment is one inline comment in a review submission.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"`
	Body string `json:"body"`
}

// ReviewPayload is the pulls/reviews submission body.
type ReviewPayload struct {
	CommitID string          `json:"commit_id"`
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments"`
}

// PostReview submits a review with inline comments. A 422 surfaces as
// ErrUnprocessable so callers can fall back to non-inline comments.
func (c *Client) PostReview(ctx context.Context, ref PRRef, payload ReviewPayload) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", ref.Owner, ref.Repo, ref.Number)
	resp, err := c.do(ctx, http.MethodPost, path, "", payload)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PostIssueComment posts a plain PR-level comment.
func (c *Client) PostIssueComment(ctx context.Context, ref PRRef, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", ref.Owner, ref.Repo, ref.Number)
	resp, err := c.do(ctx, http.MethodPost, path, "", map[string]string{"body": body})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PostCommitStatus sets the accessibility-review status on a commit.
func (c *Client) PostCommitStatus(ctx context.Context, ref PRRef, sha, state, description string) error {
	path := fmt.Sprintf("/repos/%s/%s/statuses/%s", ref.Owner, ref.Repo, sha)
	payload := map[string]string{
		"state":       state,
		"description": description,
		"context":     "accessibility-review",
	}
	resp, err := c.do(ctx, http.MethodPost, path, "", payload)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
