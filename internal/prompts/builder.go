package prompts

import (
	"fmt"
	"strings"

	"github.com/a11yreview/pkg/models"
)

// Request carries everything a batch review prompt is assembled from.
type Request struct {
	BatchDiff        string
	Files            []string
	Platforms        []string
	Guides           string
	ExistingComments []models.CommentLocation
	MaxSnippetLines  int
}

// Builder assembles accessibility review prompts.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BuildReviewPrompt creates the prompt for one batch. The structure mirrors
// the batch review flow: PR info, existing comments, task, guides, diff,
// line counting rules, then the strict output format.
func (b *Builder) BuildReviewPrompt(req Request) string {
	if req.MaxSnippetLines <= 0 {
		req.MaxSnippetLines = 6
	}

	platforms := "Unknown"
	if len(req.Platforms) > 0 {
		platforms = strings.Join(req.Platforms, ", ")
	}

	var sb strings.Builder
	sb.WriteString("You are performing an automated accessibility review on a GitHub Pull Request.\n\n")

	sb.WriteString("# PR Information\n")
	fmt.Fprintf(&sb, "Platforms detected: %s\n", platforms)
	fmt.Fprintf(&sb, "Files in this batch: %d\n", len(req.Files))
	for _, f := range req.Files {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	sb.WriteString("\n")

	if len(req.ExistingComments) > 0 {
		sb.WriteString("# Existing Comments\n")
		sb.WriteString("The following locations already have accessibility comments posted:\n\n")
		for _, c := range req.ExistingComments {
			fmt.Fprintf(&sb, "- %s:%d\n", c.Path, c.Line)
		}
		sb.WriteString("\nIMPORTANT: Do NOT report issues at these locations or within 5 lines of them.\n")
		sb.WriteString("These issues have already been identified and commented on.\n\n")
	}

	sb.WriteString(taskSection)
	sb.WriteString("\n# Guidelines\n")
	sb.WriteString(req.Guides)
	sb.WriteString("\n\n# PR Diff (Batch Only)\n```diff\n")
	sb.WriteString(req.BatchDiff)
	sb.WriteString("\n```\n\n")

	sb.WriteString(lineNumberSection)
	sb.WriteString(outputFormatSection)
	fmt.Fprintf(&sb, "- current_code and suggested_fix must be short snippets (max %d lines each).\n", req.MaxSnippetLines)
	sb.WriteString("- resources MUST be an array of strings (or empty array []).\n")

	return sb.String()
}

const taskSection = `# Task
Review ONLY the changed code in this diff for accessibility issues.
Focus on labels/hints/roles, interactive elements, images/icons alt text, form inputs, touch targets, Dynamic Type/font scaling, semantics, and contrast.

# CRITICAL: Issue Consolidation
BEFORE reporting issues, consolidate similar/related issues that are close together:
- If multiple UI elements within 5 lines have the SAME problem (e.g., all missing labels), report ONE issue that mentions all affected elements
- Choose the FIRST line number as the location when consolidating
- Only consolidate issues that are IDENTICAL in nature (same WCAG SC, same fix)
- Do NOT consolidate issues that are different even if they're close together
`

const lineNumberSection = `# CRITICAL: Line Number Accuracy
Getting the EXACT line number is CRITICAL for inline comments to appear at the right location.

How to count line numbers in diffs:
1. Find the hunk header: '@@ -old_start,old_count +NEW_START,new_count @@'
2. The +NEW_START is the line number for the FIRST LINE after the header
3. Count EVERY line that starts with '+' or ' ' (space) from that point
4. Lines starting with '-' do NOT count (they're removed lines)

Report the line number where the PROBLEMATIC CODE actually appears.
NOT the function name, NOT the component name, but the EXACT line with the issue.

`

const outputFormatSection = `# Output Format (STRICT)
Return ONLY a valid JSON array. No markdown. No prose. No code fences.
If no issues found, return: []

Each issue must have these keys (all values MUST be strings, except line which must be a number):
file, line, severity ("Critical|High|Medium|Low"), wcag_sc, wcag_level, title, description, impact, current_code, suggested_fix, resources.

OPTIONAL field (highly recommended for accurate inline comment placement):
- anchor_text: An exact substring/line from the diff that identifies WHERE to place the comment.
  Choose the specific UI call/declaration line and ensure it exists in the diff shown above.

Rules:
- Report issues ONLY in the CHANGED code shown in this batch diff.
- CONSOLIDATE identical issues within 5 lines into ONE comment mentioning all affected lines.
- The 'line' field MUST be the EXACT line number in the NEW file where the issue occurs (not a guess or range).
- Count carefully from the '@@ ... +START ...' marker to get the correct line number.
- wcag_sc MUST be a single string. If multiple SC apply, join with '; '.
`
