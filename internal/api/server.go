package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/a11yreview/internal/providers/github"
)

// Review events that trigger a run.
var triggerActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// ReviewRunner starts an accessibility review for a pull request.
type ReviewRunner interface {
	StartReview(ctx context.Context, ref github.PRRef, installationID int64) error
}

// Server receives GitHub webhooks and dispatches review runs.
type Server struct {
	echo   *echo.Echo
	addr   string
	secret string
	runner ReviewRunner
}

func NewServer(addr, webhookSecret string, runner ReviewRunner) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())

	server := &Server{
		echo:   e,
		addr:   addr,
		secret: webhookSecret,
		runner: runner,
	}

	e.GET("/health", server.health)
	e.POST("/webhook", server.handleWebhook)

	return server
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type webhookPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// handleWebhook verifies the HMAC signature, filters for pull request events
// worth reviewing, and starts the review in the background. The response is
// 202 immediately; review progress is reported through commit statuses.
func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading body failed")
	}

	if s.secret != "" {
		signature := c.Request().Header.Get("X-Hub-Signature-256")
		if !verifySignature(body, signature, s.secret) {
			log.Warn().Msg("webhook signature verification failed")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
	}

	event := c.Request().Header.Get("X-GitHub-Event")
	if event != "pull_request" {
		return c.JSON(http.StatusOK, map[string]string{"message": "event ignored"})
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if !triggerActions[payload.Action] {
		return c.JSON(http.StatusOK, map[string]string{"message": "action ignored"})
	}
	if payload.Repository.Owner.Login == "" || payload.Repository.Name == "" || payload.Number == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete pull request payload")
	}

	ref := github.PRRef{
		Owner:  payload.Repository.Owner.Login,
		Repo:   payload.Repository.Name,
		Number: payload.Number,
	}
	log.Info().Str("pr", ref.String()).Str("action", payload.Action).Msg("review triggered")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.runner.StartReview(ctx, ref, payload.Installation.ID); err != nil {
			log.Error().Err(err).Str("pr", ref.String()).Msg("review run failed")
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"message": "review started"})
}

// verifySignature checks a GitHub X-Hub-Signature-256 header against the
// shared secret.
func verifySignature(payload []byte, signatureHeader, secret string) bool {
	const prefix = "sha256="
	if len(signatureHeader) <= len(prefix) || signatureHeader[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader[len(prefix):]))
}

// Start runs the server until interrupted, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
