package github

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/pkg/models"
)

// Comments landing within this many lines of an existing comment with the
// same title are considered already posted.
const existingCommentRadius = 5

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical: "\U0001F534",
	models.SeverityHigh:     "\U0001F7E0",
	models.SeverityMedium:   "\U0001F7E1",
	models.SeverityLow:      "\U0001F535",
}

// Poster turns validated issues into GitHub review submissions.
type Poster struct {
	client *Client
}

func NewPoster(client *Client) *Poster {
	return &Poster{client: client}
}

// PostReviewComments posts issues as one review with inline comments.
// Issues near an existing comment with the same title are skipped, as are
// repeated locations within the submission. On a 422 the whole set falls
// back to a single non-inline PR comment. Returns the number of comments
// posted inline.
func (p *Poster) PostReviewComments(ctx context.Context, ref PRRef, commitSHA string,
	issues []models.ResolvedIssue, existing []models.CommentLocation) (int, error) {

	if len(issues) == 0 {
		return 0, nil
	}

	var comments []ReviewComment
	seen := make(map[string]bool)
	for _, issue := range issues {
		if issue.File == "" || issue.ResolvedLine <= 0 {
			continue
		}
		if hasNearbyExisting(existing, issue) {
			log.Debug().Str("file", issue.File).Int("line", issue.ResolvedLine).
				Msg("skipping issue near existing comment")
			continue
		}
		key := fmt.Sprintf("%s:%d", issue.File, issue.ResolvedLine)
		if seen[key] {
			continue
		}
		seen[key] = true
		comments = append(comments, ReviewComment{
			Path: issue.File,
			Line: issue.ResolvedLine,
			Side: "RIGHT",
			Body: formatIssueBody(issue),
		})
	}
	if len(comments) == 0 {
		return 0, nil
	}

	counts := countSeverities(issues)
	event := "COMMENT"
	if counts[models.SeverityCritical] > 0 {
		event = "REQUEST_CHANGES"
	}

	err := p.client.PostReview(ctx, ref, ReviewPayload{
		CommitID: commitSHA,
		Body:     formatReviewSummary(counts),
		Event:    event,
		Comments: comments,
	})
	if err == nil {
		log.Info().Str("pr", ref.String()).Int("comments", len(comments)).Msg("review posted")
		return len(comments), nil
	}
	if !errors.Is(err, ErrUnprocessable) {
		return 0, err
	}

	log.Warn().Str("pr", ref.String()).Err(err).
		Msg("inline review rejected, falling back to plain comment")
	if err := p.client.PostIssueComment(ctx, ref, formatFallbackComment(issues)); err != nil {
		return 0, err
	}
	return 0, nil
}

func hasNearbyExisting(existing []models.CommentLocation, issue models.ResolvedIssue) bool {
	title := truncate(strings.TrimSpace(issue.Title), 50)
	for _, loc := range existing {
		if loc.Path != issue.File || loc.Title != title {
			continue
		}
		distance := loc.Line - issue.ResolvedLine
		if distance < 0 {
			distance = -distance
		}
		if distance <= existingCommentRadius {
			return true
		}
	}
	return false
}

func countSeverities(issues []models.ResolvedIssue) map[models.Severity]int {
	counts := make(map[models.Severity]int)
	for _, issue := range issues {
		counts[issue.Severity]++
	}
	return counts
}

func formatIssueBody(issue models.ResolvedIssue) string {
	emoji, ok := severityEmoji[issue.Severity]
	if !ok {
		emoji = "⚪"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s %s %s\n\n", emoji, commentTitleMarker, issue.Title)
	fmt.Fprintf(&sb, "**WCAG SC:** %s (Level %s)\n", issue.WCAGSC, issue.WCAGLevel)
	fmt.Fprintf(&sb, "**Severity:** %s\n\n", issue.Severity)

	if issue.Description != "" {
		fmt.Fprintf(&sb, "**Issue:**\n%s\n\n", issue.Description)
	}
	if issue.Impact != "" {
		fmt.Fprintf(&sb, "**Impact:**\n%s\n\n", issue.Impact)
	}
	if issue.CurrentCode != "" {
		fmt.Fprintf(&sb, "**Current code:**\n```\n%s\n```\n\n", issue.CurrentCode)
	}
	if issue.SuggestedFix != "" {
		fmt.Fprintf(&sb, "**Suggested fix:**\n```\n%s\n```\n\n", issue.SuggestedFix)
	}
	sb.WriteString("---\nAutomated accessibility review")
	return sb.String()
}

func formatReviewSummary(counts map[models.Severity]int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Accessibility Review\n\nFound %d issue(s):\n\n", total)
	for _, severity := range []models.Severity{
		models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow,
	} {
		if counts[severity] > 0 {
			fmt.Fprintf(&sb, "- %s %s: %d\n", severityEmoji[severity], severity, counts[severity])
		}
	}
	return sb.String()
}

// formatFallbackComment groups issues by file into one plain comment for
// when inline posting is rejected.
func formatFallbackComment(issues []models.ResolvedIssue) string {
	byFile := make(map[string][]models.ResolvedIssue)
	for _, issue := range issues {
		byFile[issue.File] = append(byFile[issue.File], issue)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("## Accessibility Review (Fallback Mode)\n\n")
	sb.WriteString("The following accessibility issues were found but could not be posted as inline comments.\n")
	sb.WriteString("This may be due to line number conflicts or diff changes.\n\n")

	for _, file := range files {
		fmt.Fprintf(&sb, "### %s\n\n", file)
		for _, issue := range byFile[file] {
			emoji, ok := severityEmoji[issue.Severity]
			if !ok {
				emoji = "⚪"
			}
			fmt.Fprintf(&sb, "#### %s Line %d: %s\n", emoji, issue.ResolvedLine, issue.Title)
			fmt.Fprintf(&sb, "**WCAG:** %s | **Severity:** %s\n", issue.WCAGSC, issue.Severity)
			if issue.Description != "" {
				fmt.Fprintf(&sb, "> %s\n", issue.Description)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("---\nAutomated accessibility review")
	return sb.String()
}
