package monzo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// nolint:lll
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI, default=http://localhost:3000/oauth/callback"`
	ListenAddr   string `env:"LISTEN_ADDR, default=:3000"`
}

// AccessTokens is the token set returned by the OAuth code exchange and
// persisted to the token file.
type AccessTokens struct {
	AccessToken  string `json:"access_token" mapstructure:"access_token"`
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ExpiresIn    int64  `json:"expires_in" mapstructure:"expires_in"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token"`
	TokenType    string `json:"token_type" mapstructure:"token_type"`
	UserID       string `json:"user_id" mapstructure:"user_id"`
}

// LoginURL builds the hosted login page URL for the given state token.
func LoginURL(cfg Config, state string) string {
	q := url.Values{}
	q.Set("client_id", cfg.OAuth.ClientID)
	q.Set("redirect_uri", cfg.OAuth.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	return cfg.AuthURL + "?" + q.Encode()
}

// Authorize runs the OAuth login flow: prints the login URL, waits for the
// redirect on a local callback server, exchanges the auth code for tokens
// and writes them to the configured token file.
func Authorize(ctx context.Context, cfg Config, logger *zap.Logger) error {
	if cfg.OAuth.ClientID == "" || cfg.OAuth.ClientSecret == "" {
		return errors.New("oauth client id and secret are required")
	}

	state := uuid.NewString()
	fmt.Printf("Open the following URL in your browser to authorise:\n\n  %s\n\n", LoginURL(cfg, state))

	type outcome struct {
		tokens AccessTokens
		err    error
	}
	done := make(chan outcome, 1)

	r := chi.NewRouter()
	r.Get("/oauth/callback", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			done <- outcome{err: errors.New("oauth state mismatch")}
			return
		}

		tokens, err := exchangeAuthCode(req.Context(), cfg, req.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, fmt.Sprintf("error getting access token: %v", err), http.StatusInternalServerError)
			done <- outcome{err: err}
			return
		}

		fmt.Fprintln(w, "success")
		done <- outcome{tokens: tokens}
	})

	srv := &http.Server{Addr: cfg.OAuth.ListenAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- outcome{err: fmt.Errorf("callback server: %w", err)}
		}
	}()

	var result outcome
	select {
	case result = <-done:
	case <-ctx.Done():
		result = outcome{err: ctx.Err()}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if result.err != nil {
		return result.err
	}

	if err := WriteTokens(cfg.TokenFile, result.tokens); err != nil {
		return err
	}
	logger.Info("authorised", zap.String("user_id", result.tokens.UserID), zap.String("token_file", cfg.TokenFile))
	return nil
}

// exchangeAuthCode swaps the callback's auth code for an access token set.
func exchangeAuthCode(ctx context.Context, cfg Config, code string) (AccessTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", cfg.OAuth.ClientID)
	form.Set("client_secret", cfg.OAuth.ClientSecret)
	form.Set("redirect_uri", cfg.OAuth.RedirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return AccessTokens{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return AccessTokens{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AccessTokens{}, fmt.Errorf("exchange auth code: unexpected status %d", resp.StatusCode)
	}

	var tokens AccessTokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return AccessTokens{}, fmt.Errorf("decode token response: %w", err)
	}
	return tokens, nil
}

// ReadTokens loads the token set written by a previous Authorize run.
func ReadTokens(path string) (AccessTokens, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return AccessTokens{}, fmt.Errorf("read token file %s: %w", path, err)
	}

	var tokens AccessTokens
	if err := v.Unmarshal(&tokens); err != nil {
		return AccessTokens{}, fmt.Errorf("parse token file %s: %w", path, err)
	}
	if tokens.AccessToken == "" {
		return AccessTokens{}, fmt.Errorf("token file %s: empty access token", path)
	}
	return tokens, nil
}

// WriteTokens persists the token set for later runs.
func WriteTokens(path string, tokens AccessTokens) error {
	v := viper.New()
	v.Set("access_token", tokens.AccessToken)
	v.Set("client_id", tokens.ClientID)
	v.Set("expires_in", tokens.ExpiresIn)
	v.Set("refresh_token", tokens.RefreshToken)
	v.Set("token_type", tokens.TokenType)
	v.Set("user_id", tokens.UserID)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write token file %s: %w", path, err)
	}
	return nil
}
