package models

// Severity is the impact level the model assigned to a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ResolutionMethod records how an issue's line number was anchored onto the diff.
type ResolutionMethod string

const (
	// ResolutionExplicitAnchor means the model supplied anchor_text and it matched.
	ResolutionExplicitAnchor ResolutionMethod = "explicit_anchor"
	// ResolutionInferredAnchor means a keyword-derived pattern matched.
	ResolutionInferredAnchor ResolutionMethod = "inferred_anchor"
	// ResolutionNearestFallback means no anchor matched and the closest
	// commentable line was used instead.
	ResolutionNearestFallback ResolutionMethod = "nearest_fallback"
)

// Issue is one raw finding from the model for a review batch.
// Everything in it is untrusted until it passes batch validation.
type Issue struct {
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Severity     Severity `json:"severity"`
	WCAGSC       string   `json:"wcag_sc,omitempty"`
	WCAGLevel    string   `json:"wcag_level,omitempty"`
	AnchorText   string   `json:"anchor_text,omitempty"`
	CurrentCode  string   `json:"current_code,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	Impact       string   `json:"impact,omitempty"`
}

// ResolvedIssue is an Issue whose location has been validated against the
// diff. ResolvedLine is always a commentable line of File.
type ResolvedIssue struct {
	Issue
	ResolvedLine      int              `json:"resolved_line"`
	AnchorMatchedText string           `json:"anchor_matched_text,omitempty"`
	Resolution        ResolutionMethod `json:"resolution_method"`
}

// Rejection reason codes emitted by batch validation.
const (
	RejectFileNotInBatch     = "file_not_in_batch"
	RejectInvalidLine        = "invalid_line_number"
	RejectNoCommentableLines = "no_commentable_lines_for_file"
	RejectPlaceholder        = "placeholder_issue"
	RejectDuplicate          = "duplicate_fingerprint"
)

// Rejection describes one issue that was dropped during validation,
// kept for diagnostics. Validation never aborts on a bad issue.
type Rejection struct {
	Issue  Issue  `json:"issue"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// LineKind classifies a single line inside a diff hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// DiffLine is one line of a hunk. NewNumber is the line number on the new
// side of the file; it is zero for removed lines, which are never commentable.
type DiffLine struct {
	Kind      LineKind
	Content   string
	NewNumber int
}

// DiffHunk is one @@ block of a file diff.
type DiffHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []DiffLine
}

// FileDiff is the parsed diff of a single file, keyed by its new-side path
// (renames use the destination path). RawSection preserves the file's slice
// of the original diff text so it can be re-emitted without drift.
type FileDiff struct {
	Path       string
	RawSection string
	Binary     bool
	Hunks      []DiffHunk
}

// CommentLocation identifies an inline comment already present on the host
// platform, used to avoid re-posting visually duplicate comments.
type CommentLocation struct {
	Path  string
	Line  int
	Title string
}
