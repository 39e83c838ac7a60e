package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	// GitHub caps App JWT lifetime at 10 minutes.
	appJWTLifetime = 10 * time.Minute

	// Installation tokens last an hour; refresh a little early.
	tokenRefreshMargin = 5 * time.Minute
)

// TokenSource yields an API token for request authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a personal access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// AppAuth authenticates as a GitHub App: it signs short-lived JWTs with the
// App's private key and exchanges them for installation access tokens, which
// it caches per installation until shortly before expiry.
type AppAuth struct {
	appID      string
	privateKey *rsa.PrivateKey
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	tokens map[int64]cachedToken
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// NewAppAuth parses a PEM private key and returns an authenticator.
// Escaped newlines are unescaped so keys can be passed through environment
// variables.
func NewAppAuth(appID, privateKeyPEM, baseURL string) (*AppAuth, error) {
	if appID == "" || privateKeyPEM == "" {
		return nil, fmt.Errorf("github app auth requires app id and private key")
	}
	privateKeyPEM = strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parsing app private key: %w", err)
	}
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &AppAuth{
		appID:      appID,
		privateKey: key,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     make(map[int64]cachedToken),
	}, nil
}

// AppJWT signs a JWT identifying the App itself.
func (a *AppAuth) AppJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
		Issuer:    a.appID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing app jwt: %w", err)
	}
	return signed, nil
}

// InstallationToken returns a cached or freshly minted access token for the
// installation.
func (a *AppAuth) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	a.mu.Lock()
	if cached, ok := a.tokens[installationID]; ok && time.Until(cached.expiresAt) > tokenRefreshMargin {
		a.mu.Unlock()
		return cached.value, nil
	}
	a.mu.Unlock()

	appJWT, err := a.AppJWT(time.Now())
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("installation token request failed: %s: %s", resp.Status, body)
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding installation token: %w", err)
	}

	a.mu.Lock()
	a.tokens[installationID] = cachedToken{value: payload.Token, expiresAt: payload.ExpiresAt}
	a.mu.Unlock()

	log.Debug().Int64("installation_id", installationID).
		Time("expires_at", payload.ExpiresAt).Msg("installation token minted")
	return payload.Token, nil
}

// InstallationTokenSource binds an AppAuth to one installation.
type InstallationTokenSource struct {
	Auth           *AppAuth
	InstallationID int64
}

func (s *InstallationTokenSource) Token(ctx context.Context) (string, error) {
	return s.Auth.InstallationToken(ctx, s.InstallationID)
}
