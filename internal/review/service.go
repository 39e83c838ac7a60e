package review

import (
	"context"
	"fmt"

	"github.com/a11yreview/internal/anchor"
	"github.com/a11yreview/internal/batch"
	"github.com/a11yreview/internal/dedup"
	"github.com/a11yreview/internal/diff"
	"github.com/a11yreview/internal/guides"
	"github.com/a11yreview/internal/logging"
	"github.com/a11yreview/internal/platform"
	"github.com/a11yreview/internal/prompts"
	"github.com/a11yreview/internal/providers/github"
	"github.com/a11yreview/internal/report"
	"github.com/a11yreview/pkg/models"
)

// Forge is the slice of the GitHub client the service needs.
type Forge interface {
	PRDiff(ctx context.Context, ref github.PRRef) (string, error)
	ChangedFiles(ctx context.Context, ref github.PRRef) ([]string, error)
	PRHeadSHA(ctx context.Context, ref github.PRRef) (string, error)
	ExistingCommentLocations(ctx context.Context, ref github.PRRef) ([]models.CommentLocation, error)
	PostCommitStatus(ctx context.Context, ref github.PRRef, sha, state, description string) error
}

// CommentPoster posts one batch worth of validated issues.
type CommentPoster interface {
	PostReviewComments(ctx context.Context, ref github.PRRef, commitSHA string,
		issues []models.ResolvedIssue, existing []models.CommentLocation) (int, error)
}

// IssueReviewer turns a prompt into issues.
type IssueReviewer interface {
	ReviewIssues(ctx context.Context, prompt string) ([]models.Issue, error)
}

// ServiceOptions tune one review run.
type ServiceOptions struct {
	FilesPerBatch     int
	MaxAnchorDistance int
	SarifPath         string
	RunLogDir         string
}

func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		FilesPerBatch:     5,
		MaxAnchorDistance: anchor.DefaultMaxDistance,
	}
}

// Service runs a full accessibility review of one pull request: bucket the
// changed files by platform, review each phase in batches, validate and
// dedupe the findings, post comments progressively, and finish with a
// commit status and optional SARIF report.
type Service struct {
	forge    Forge
	poster   CommentPoster
	reviewer IssueReviewer
	guides   *guides.Loader
	parser   *diff.Parser
	planner  *batch.Planner
	prompts  *prompts.Builder
	resolver *anchor.Resolver
	opts     ServiceOptions
}

func NewService(forge Forge, poster CommentPoster, reviewer IssueReviewer,
	loader *guides.Loader, opts ServiceOptions) *Service {
	if opts.FilesPerBatch <= 0 {
		opts.FilesPerBatch = 5
	}
	if opts.MaxAnchorDistance <= 0 {
		opts.MaxAnchorDistance = anchor.DefaultMaxDistance
	}
	return &Service{
		forge:    forge,
		poster:   poster,
		reviewer: reviewer,
		guides:   loader,
		parser:   diff.NewParser(),
		planner:  batch.NewPlanner(opts.FilesPerBatch),
		prompts:  prompts.NewBuilder(),
		resolver: anchor.DefaultResolver(),
		opts:     opts,
	}
}

// RunReport summarizes what a run did.
type RunReport struct {
	RunID          string
	Phases         []string
	IssuesFound    int
	IssuesPosted   int
	Rejections     []models.Rejection
	ValidatedByRun []models.ResolvedIssue
}

// Run executes the review. Batch failures are logged and skipped so one bad
// model reply cannot abort the whole review; fetch failures before the first
// batch are fatal and reported as an error commit status.
func (s *Service) Run(ctx context.Context, ref github.PRRef) (*RunReport, error) {
	runID := logging.NewRunID()
	logger, closeLog := logging.ForRun(runID, s.opts.RunLogDir)
	defer closeLog()

	logger.Info().Str("pr", ref.String()).Msg("starting accessibility review")

	sha, err := s.forge.PRHeadSHA(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching head sha: %w", err)
	}
	_ = s.forge.PostCommitStatus(ctx, ref, sha, "pending", "Accessibility review in progress...")

	reportOut, err := s.run(ctx, ref, sha, runID)
	if err != nil {
		_ = s.forge.PostCommitStatus(ctx, ref, sha, "error", truncateStatus("Review failed: "+err.Error()))
		return nil, err
	}

	state, description := finalStatus(reportOut.ValidatedByRun)
	_ = s.forge.PostCommitStatus(ctx, ref, sha, state, description)

	logger.Info().Int("found", reportOut.IssuesFound).Int("posted", reportOut.IssuesPosted).
		Int("rejected", len(reportOut.Rejections)).Msg("review complete")
	return reportOut, nil
}

func (s *Service) run(ctx context.Context, ref github.PRRef, sha, runID string) (*RunReport, error) {
	prDiff, err := s.forge.PRDiff(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching pr diff: %w", err)
	}
	allFiles, err := s.forge.ChangedFiles(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching changed files: %w", err)
	}
	files := FilterReviewableFiles(allFiles)

	result := &RunReport{RunID: runID}
	if len(files) == 0 {
		return result, nil
	}

	existing, _ := s.forge.ExistingCommentLocations(ctx, ref)

	buckets := platform.Bucket(files, prDiff)
	phases := platform.Phases(buckets)
	result.Phases = phases

	// One posted set per run: batches and phases dedupe against each other,
	// runs do not.
	posted := dedup.NewPostedSet()
	validateOpts := ValidateOptions{
		MaxAnchorDistance: s.opts.MaxAnchorDistance,
		BucketSize:        dedup.DefaultBucketSize,
	}

	for _, phase := range phases {
		guideText := s.guides.LoadForPlatforms([]string{phase})

		planned, err := s.planner.Plan(prDiff, buckets[phase])
		if err != nil {
			continue
		}
		for _, unit := range planned {
			prompt := s.prompts.BuildReviewPrompt(prompts.Request{
				BatchDiff:        unit.Diff,
				Files:            unit.Files,
				Platforms:        []string{phase},
				Guides:           guideText,
				ExistingComments: existing,
			})

			issues, err := s.reviewer.ReviewIssues(ctx, prompt)
			if err != nil {
				// Skip the batch, keep the run going.
				continue
			}
			result.IssuesFound += len(issues)

			batchCtx, err := NewBatchContext(s.parser, unit.Diff, unit.Files)
			if err != nil {
				continue
			}
			validated, rejected := ValidateIssues(issues, batchCtx, s.resolver, posted, validateOpts)
			result.Rejections = append(result.Rejections, rejected...)
			if len(validated) == 0 {
				continue
			}
			s.fillCodeSnippets(validated, unit.Diff)
			result.ValidatedByRun = append(result.ValidatedByRun, validated...)

			postedCount, err := s.poster.PostReviewComments(ctx, ref, sha, validated, existing)
			if err != nil {
				continue
			}
			result.IssuesPosted += postedCount
		}
	}

	if s.opts.SarifPath != "" {
		repoURI := fmt.Sprintf("https://github.com/%s/%s", ref.Owner, ref.Repo)
		report.WriteFile(report.Generate(result.ValidatedByRun, repoURI, sha), s.opts.SarifPath)
	}
	return result, nil
}

// fillCodeSnippets backfills an issue's code excerpt from the diff when the
// model reply did not include one.
func (s *Service) fillCodeSnippets(issues []models.ResolvedIssue, batchDiff string) {
	for i := range issues {
		if issues[i].CurrentCode != "" {
			continue
		}
		snippet, err := s.parser.CodeAnchor(batchDiff, issues[i].File, issues[i].ResolvedLine, 2)
		if err == nil && snippet != "" {
			issues[i].CurrentCode = snippet
		}
	}
}

func finalStatus(issues []models.ResolvedIssue) (string, string) {
	if len(issues) == 0 {
		return "success", "No accessibility issues found"
	}
	critical, high := 0, 0
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityHigh:
			high++
		}
	}
	switch {
	case critical > 0:
		return "failure", fmt.Sprintf("Found %d critical accessibility issue(s)", critical)
	case high > 0:
		// High priority reports but does not block.
		return "success", fmt.Sprintf("Found %d high priority issue(s)", high)
	default:
		return "success", fmt.Sprintf("Found %d accessibility issue(s)", len(issues))
	}
}

func truncateStatus(s string) string {
	if len(s) > 140 {
		return s[:140]
	}
	return s
}
