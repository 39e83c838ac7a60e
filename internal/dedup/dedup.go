package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/a11yreview/pkg/models"
)

// DefaultBucketSize groups nearby lines into one fingerprint bucket so small
// line drift between retries still dedupes (lines 42 and 44 share bucket 8).
const DefaultBucketSize = 5

// noIssuePhrases are sentinel strings the model emits when a file is clean.
var noIssuePhrases = []string{
	"no accessibility issues",
	"no issues found",
	"no issues detected",
	"looks good",
	"no problems",
	"all good",
	"compliant",
}

// IsPlaceholder reports whether an issue is a "no issues found" sentinel
// rather than a real finding: no usable rule code and a sentinel phrase in
// the title or description. Placeholders never reach output.
func IsPlaceholder(issue models.Issue) bool {
	sc := strings.ToUpper(strings.TrimSpace(issue.WCAGSC))
	if sc != "" && sc != "N/A" && sc != "NONE" {
		return false
	}
	title := strings.ToLower(issue.Title)
	description := strings.ToLower(issue.Description)
	for _, phrase := range noIssuePhrases {
		if strings.Contains(title, phrase) || strings.Contains(description, phrase) {
			return true
		}
	}
	return false
}

// Fingerprint computes a stable opaque hash for a resolved issue from its
// normalized file path, line bucket, rule code, title and anchor signature.
// It is a set-membership key only and is never reversed.
func Fingerprint(issue models.ResolvedIssue, bucketSize int) string {
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}

	file := strings.ToLower(strings.TrimSpace(issue.File))
	bucket := issue.ResolvedLine / bucketSize

	sc := normalizeRuleCode(issue.WCAGSC)

	title := normalizeTitle(issue.Title)
	title = truncate(title, 50)

	// The anchor signature only counts when the line was actually anchored;
	// a nearest-line fallback says nothing about the construct.
	anchorSig := ""
	if issue.Resolution != models.ResolutionNearestFallback {
		anchorSig = truncate(strings.ToLower(removeWhitespace(issue.AnchorMatchedText)), 40)
	}

	payload := fmt.Sprintf("%s|%d|%s|%s|%s", file, bucket, sc, title, anchorSig)
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// normalizeRuleCode lowercases a WCAG SC reference, keeps only the first of a
// semicolon-separated list, and strips spaces.
func normalizeRuleCode(sc string) string {
	sc = strings.ToLower(strings.TrimSpace(sc))
	if i := strings.Index(sc, ";"); i >= 0 {
		sc = strings.TrimSpace(sc[:i])
	}
	return strings.ReplaceAll(sc, " ", "")
}

// normalizeTitle lowercases a title, drops punctuation and collapses runs of
// whitespace so cosmetic rewording between retries still fingerprints alike.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func removeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// PostedSet tracks the fingerprints already surfaced during one review run.
// It must be created per run and fed sequentially; it is not safe for
// concurrent use and is never persisted.
type PostedSet struct {
	seen map[string]struct{}
}

// NewPostedSet creates an empty run-scoped fingerprint set.
func NewPostedSet() *PostedSet {
	return &PostedSet{seen: make(map[string]struct{})}
}

// Contains reports whether a fingerprint has already been surfaced.
func (s *PostedSet) Contains(fingerprint string) bool {
	_, ok := s.seen[fingerprint]
	return ok
}

// Register marks a fingerprint as surfaced.
func (s *PostedSet) Register(fingerprint string) {
	s.seen[fingerprint] = struct{}{}
}

// Len returns the number of registered fingerprints.
func (s *PostedSet) Len() int {
	return len(s.seen)
}
