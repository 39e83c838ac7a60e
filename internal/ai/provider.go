package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/a11yreview/internal/llm"
	"github.com/a11yreview/internal/retry"
	"github.com/a11yreview/pkg/models"
)

// ProviderName identifies a model backend.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderGemini    ProviderName = "gemini"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOllama    ProviderName = "ollama"
)

// Options configures a model connection.
type Options struct {
	Provider    ProviderName
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the narrow surface the review pipeline needs from a
// model backend.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Client calls a model with retry and parses issue responses.
type Client struct {
	generator TextGenerator
	retryCfg  retry.Config
}

func NewClient(generator TextGenerator) *Client {
	return &Client{generator: generator, retryCfg: retry.ModelConfig()}
}

// ReviewIssues sends one batch prompt to the model and parses the reply
// into issues. Transient failures are retried with backoff; a reply that
// stays unparseable after repair is an error, not an empty result.
func (c *Client) ReviewIssues(ctx context.Context, prompt string) ([]models.Issue, error) {
	var raw string
	result := retry.Do(ctx, c.retryCfg, "model_review", func() error {
		response, err := c.generator.GenerateText(ctx, prompt)
		if err != nil {
			return err
		}
		raw = response
		return nil
	})
	if !result.Success {
		return nil, fmt.Errorf("model request failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	issues, stats, err := llm.ParseIssues(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}
	log.Debug().Int("issues", len(issues)).Bool("repaired", stats.WasRepaired).
		Msg("model batch reviewed")
	return issues, nil
}

// langchainGenerator adapts a langchaingo model to TextGenerator.
type langchainGenerator struct {
	model llms.Model
	opts  Options
}

func (g *langchainGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	callOpts := []llms.CallOption{
		llms.WithTemperature(g.opts.Temperature),
	}
	if g.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(g.opts.MaxTokens))
	}
	if g.opts.Provider == ProviderGemini && g.opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(g.opts.Model))
	}
	return llms.GenerateFromSinglePrompt(ctx, g.model, prompt, callOpts...)
}

// NewGenerator builds a langchaingo-backed generator for the configured
// provider.
func NewGenerator(ctx context.Context, opts Options) (TextGenerator, error) {
	model, err := newModel(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("provider", string(opts.Provider)).Str("model", opts.Model).
		Msg("model backend created")
	return &langchainGenerator{model: model, opts: opts}, nil
}

func newModel(ctx context.Context, opts Options) (llms.Model, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		openaiOpts := []openai.Option{
			openai.WithModel(opts.Model),
			openai.WithToken(opts.APIKey),
		}
		if opts.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(opts.BaseURL))
		}
		return openai.New(openaiOpts...)
	case ProviderGemini:
		return googleai.New(ctx, googleai.WithAPIKey(opts.APIKey))
	case ProviderAnthropic:
		return anthropic.New(
			anthropic.WithToken(opts.APIKey),
			anthropic.WithModel(opts.Model),
		)
	case ProviderOllama:
		ollamaOpts := []ollama.Option{ollama.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			ollamaOpts = append(ollamaOpts, ollama.WithServerURL(opts.BaseURL))
		}
		return ollama.New(ollamaOpts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Provider)
	}
}
