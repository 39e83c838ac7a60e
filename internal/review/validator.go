package review

import (
	"fmt"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/internal/anchor"
	"github.com/a11yreview/internal/dedup"
	"github.com/a11yreview/internal/diff"
	"github.com/a11yreview/pkg/models"
)

// ValidateOptions tunes batch validation.
type ValidateOptions struct {
	// MaxAnchorDistance is how far an anchor match may sit from the model's
	// proposed line before it is considered untrustworthy.
	MaxAnchorDistance int
	// BucketSize is the fingerprint line bucket width.
	BucketSize int
}

// DefaultValidateOptions matches the production defaults.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{MaxAnchorDistance: anchor.DefaultMaxDistance, BucketSize: dedup.DefaultBucketSize}
}

// BatchContext carries the per-batch diff derivations every issue is
// validated against. It is produced once per batch and read-only after that.
type BatchContext struct {
	Files            []string
	CommentableLines map[string][]int
	LineTexts        map[string]map[int]string
}

// NewBatchContext derives the validation context for a batch from its diff.
func NewBatchContext(parser *diff.Parser, batchDiff string, files []string) (*BatchContext, error) {
	commentable, err := parser.CommentableLines(batchDiff)
	if err != nil {
		return nil, fmt.Errorf("extracting commentable lines: %w", err)
	}
	texts, err := parser.LineTexts(batchDiff)
	if err != nil {
		return nil, fmt.Errorf("extracting line texts: %w", err)
	}
	return &BatchContext{
		Files:            files,
		CommentableLines: commentable,
		LineTexts:        texts,
	}, nil
}

// ValidateIssues turns a raw model issue list into comment-ready resolved
// issues. Every issue is processed in input order; failures drop the single
// issue into the rejection list and processing continues.
//
// Pipeline per issue: batch membership, line sanity, anchor resolution (or
// nearest-commentable fallback), placeholder filtering, fingerprint dedup
// against the run-scoped posted set.
func ValidateIssues(
	issues []models.Issue,
	batch *BatchContext,
	resolver *anchor.Resolver,
	posted *dedup.PostedSet,
	opts ValidateOptions,
) ([]models.ResolvedIssue, []models.Rejection) {
	if opts.MaxAnchorDistance <= 0 {
		opts.MaxAnchorDistance = anchor.DefaultMaxDistance
	}
	if opts.BucketSize <= 0 {
		opts.BucketSize = dedup.DefaultBucketSize
	}

	inBatch := make(map[string]struct{}, len(batch.Files))
	for _, f := range batch.Files {
		inBatch[f] = struct{}{}
	}

	var validated []models.ResolvedIssue
	var rejected []models.Rejection

	reject := func(issue models.Issue, reason, detail string) {
		log.Warn().
			Str("file", issue.File).
			Int("line", issue.Line).
			Str("reason", reason).
			Str("detail", detail).
			Msg("dropping issue")
		rejected = append(rejected, models.Rejection{Issue: issue, Reason: reason, Detail: detail})
	}

	for _, issue := range issues {
		if _, ok := inBatch[issue.File]; !ok {
			reject(issue, models.RejectFileNotInBatch,
				fmt.Sprintf("batch has %d files", len(batch.Files)))
			continue
		}
		if issue.Line <= 0 {
			reject(issue, models.RejectInvalidLine, fmt.Sprintf("line=%d", issue.Line))
			continue
		}

		commentable := batch.CommentableLines[issue.File]
		texts := batch.LineTexts[issue.File]
		ext := path.Ext(issue.File)

		resolvedLine, matchedText, anchored := resolver.ResolveLine(
			issue, texts, commentable, issue.Line, ext, opts.MaxAnchorDistance)

		method := models.ResolutionNearestFallback
		if anchored {
			if issue.AnchorText != "" {
				method = models.ResolutionExplicitAnchor
			} else {
				method = models.ResolutionInferredAnchor
			}
			if resolvedLine != issue.Line {
				log.Debug().
					Str("file", issue.File).
					Int("proposed", issue.Line).
					Int("resolved", resolvedLine).
					Str("anchor", matchedText).
					Msg("re-anchored issue line")
			}
		} else {
			nearest, ok := diff.NearestCommentableLine(issue.Line, commentable)
			if !ok {
				reject(issue, models.RejectNoCommentableLines, "")
				continue
			}
			resolvedLine = nearest
			matchedText = ""
		}

		if dedup.IsPlaceholder(issue) {
			reject(issue, models.RejectPlaceholder, "")
			continue
		}

		resolved := models.ResolvedIssue{
			Issue:             issue,
			ResolvedLine:      resolvedLine,
			AnchorMatchedText: matchedText,
			Resolution:        method,
		}

		fp := dedup.Fingerprint(resolved, opts.BucketSize)
		if posted.Contains(fp) {
			reject(issue, models.RejectDuplicate, fp)
			continue
		}
		posted.Register(fp)
		validated = append(validated, resolved)
	}

	return validated, rejected
}
