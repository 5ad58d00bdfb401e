package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// nolint:lll
type Config struct {
	BaseURL          string        `env:"BASE_URL, default=https://api.monzo.com/"`
	AuthURL          string        `env:"AUTH_URL, default=https://auth.monzo.com/"`
	TokenFile        string        `env:"TOKEN_FILE, default=auth.yaml"`
	Timeout          time.Duration `env:"TIMEOUT, default=30s"`
	TransactionLimit int           `env:"TRANSACTION_LIMIT, default=100"` // Page size cap enforced by the API
	OAuth            OAuthConfig   `env:",prefix=OAUTH_"`
}

// Client talks to the Monzo REST API with a bearer token.
type Client struct {
	cfg    Config
	token  string
	http   *http.Client
	logger *zap.Logger
}

// NewClient loads the stored access token and builds an authenticated
// client. Run the auth flow first if the token file is missing.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	tokens, err := ReadTokens(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read access tokens: %w", err)
	}
	return NewClientWithToken(cfg, tokens.AccessToken, logger), nil
}

// NewClientWithToken builds a client around an explicit access token.
func NewClientWithToken(cfg Config, token string, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		token:  token,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// apiError is the {code, message} envelope Monzo returns on failure.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e apiError) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("monzo request", zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
		}
		return fmt.Errorf("request %s: %w", path, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", s, err)
	}
	return &t, nil
}
