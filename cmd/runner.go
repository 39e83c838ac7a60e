package cmd

import (
	"context"
	"fmt"

	"github.com/a11yreview/internal/ai"
	"github.com/a11yreview/internal/config"
	"github.com/a11yreview/internal/guides"
	"github.com/a11yreview/internal/logging"
	"github.com/a11yreview/internal/providers/github"
	"github.com/a11yreview/internal/review"
)

// runnerDeps wires a review run from configuration. Installation-bound
// credentials are resolved per run, so one process can serve many
// installations of the App.
type runnerDeps struct {
	cfg       *config.Config
	appAuth   *github.AppAuth
	generator ai.TextGenerator
}

func newRunnerDeps(ctx context.Context, cfg *config.Config) (*runnerDeps, error) {
	logging.Setup(cfg.General.LogLevel, cfg.General.LogConsole)

	deps := &runnerDeps{cfg: cfg}

	if cfg.GitHub.AppID != "" && cfg.GitHub.PrivateKey != "" {
		auth, err := github.NewAppAuth(cfg.GitHub.AppID, cfg.GitHub.PrivateKey, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("setting up app auth: %w", err)
		}
		deps.appAuth = auth
	}

	generator, err := ai.NewGenerator(ctx, ai.Options{
		Provider:    ai.ProviderName(cfg.AI.Provider),
		Model:       cfg.AI.Model,
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up model backend: %w", err)
	}
	deps.generator = generator

	return deps, nil
}

func (d *runnerDeps) tokenSource(installationID int64) (github.TokenSource, error) {
	if d.appAuth != nil && installationID > 0 {
		return &github.InstallationTokenSource{Auth: d.appAuth, InstallationID: installationID}, nil
	}
	if d.cfg.GitHub.Token != "" {
		return github.StaticToken(d.cfg.GitHub.Token), nil
	}
	return nil, fmt.Errorf("no usable github credentials for installation %d", installationID)
}

func (d *runnerDeps) service(installationID int64) (*review.Service, error) {
	source, err := d.tokenSource(installationID)
	if err != nil {
		return nil, err
	}
	client := github.NewClient(d.cfg.GitHub.BaseURL, source)

	opts := review.DefaultServiceOptions()
	opts.FilesPerBatch = d.cfg.Review.FilesPerBatch
	opts.MaxAnchorDistance = d.cfg.Review.MaxAnchorDistance
	opts.SarifPath = d.cfg.Review.SarifPath
	opts.RunLogDir = d.cfg.General.RunLogDir

	return review.NewService(
		client,
		github.NewPoster(client),
		ai.NewClient(d.generator),
		guides.NewLoader(d.cfg.Review.GuidesDir),
		opts,
	), nil
}

// StartReview implements api.ReviewRunner.
func (d *runnerDeps) StartReview(ctx context.Context, ref github.PRRef, installationID int64) error {
	service, err := d.service(installationID)
	if err != nil {
		return err
	}
	_, err = service.Run(ctx, ref)
	return err
}
