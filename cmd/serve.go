package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/a11yreview/internal/api"
	"github.com/a11yreview/internal/config"
)

// ServeCommand runs the webhook server.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the GitHub webhook server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides server.listen_addr)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	addr := cfg.Server.ListenAddr
	if listen := c.String("listen"); listen != "" {
		addr = listen
	}

	deps, err := newRunnerDeps(c.Context, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Listening for webhooks on %s\n", addr)
	return api.NewServer(addr, cfg.GitHub.WebhookSecret, deps).Start()
}
