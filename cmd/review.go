package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/a11yreview/internal/config"
	"github.com/a11yreview/internal/providers/github"
)

// ReviewCommand reviews one pull request and exits.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Run an accessibility review on a pull request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "Repository owner",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "repo",
				Usage:    "Repository name",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "pr",
				Usage:    "Pull request number",
				Required: true,
			},
			&cli.Int64Flag{
				Name:  "installation",
				Usage: "GitHub App installation id (omit when using a token)",
			},
			&cli.StringFlag{
				Name:  "sarif",
				Usage: "Write a SARIF report to `FILE`",
			},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if sarif := c.String("sarif"); sarif != "" {
		cfg.Review.SarifPath = sarif
	}

	deps, err := newRunnerDeps(c.Context, cfg)
	if err != nil {
		return err
	}

	service, err := deps.service(c.Int64("installation"))
	if err != nil {
		return err
	}

	ref := github.PRRef{
		Owner:  c.String("owner"),
		Repo:   c.String("repo"),
		Number: c.Int("pr"),
	}

	result, err := service.Run(c.Context, ref)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	fmt.Printf("Review complete: %d issue(s) found, %d posted, %d rejected\n",
		result.IssuesFound, result.IssuesPosted, len(result.Rejections))
	return nil
}
