// Package kroger is a client for the Kroger Public API with file-cached
// OAuth2 tokens.
package kroger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"github.com/cartwheel-tools/kroger-mcp/internal/tokenstore"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const requestTimeout = 30 * time.Second

// ErrNotAuthenticated is returned when a request needs a token and none is
// installed or cached.
var ErrNotAuthenticated = errors.New("no access token available, authenticate first")

// APIError is a non-2xx response from the Kroger API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kroger api: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kroger api: HTTP %d: %s", e.StatusCode, string(e.Body))
}

// Client calls the Kroger Public API. It holds one current token, the
// store that token is cached in, and per-area services.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        *config.KrogerConfig
	auth       *Authenticator

	mu    sync.RWMutex
	token *oauth2.Token
	store *tokenstore.Store

	Location *LocationService
	Product  *ProductService
	Cart     *CartService
	Identity *IdentityService
}

// NewClient creates a Client from the API configuration. No token is
// installed; call AuthenticateClientCredentials, LoadUserToken, or
// SetToken before making requests.
func NewClient(cfg *config.KrogerConfig) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		cfg:        cfg,
		auth:       NewAuthenticator(cfg),
	}
	c.Location = &LocationService{client: c}
	c.Product = &ProductService{client: c}
	c.Cart = &CartService{client: c}
	c.Identity = &IdentityService{client: c}
	return c
}

// Authenticator exposes the OAuth2 grant helpers for login flows.
func (c *Client) Authenticator() *Authenticator {
	return c.auth
}

// SetToken installs a token and the store it is cached in.
func (c *Client) SetToken(tok *oauth2.Token, store *tokenstore.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
	c.store = store
}

// Token returns the currently installed token, or nil.
func (c *Client) Token() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasUsableToken reports whether the installed token is present and not
// about to expire.
func (c *Client) HasUsableToken() bool {
	return usable(c.Token())
}

// AuthenticateClientCredentials installs an application token for the
// given scope, reusing the per-scope cache file when the saved token is
// still usable.
func (c *Client) AuthenticateClientCredentials(ctx context.Context, scope string) error {
	store := tokenstore.NewForScope(c.cfg.TokenDir, scope)

	if tok := TokenFromRecord(store.Load()); usable(tok) {
		logger.Debug("Reusing cached client token", zap.String("scope", scope))
		c.SetToken(tok, store)
		return nil
	}

	tok, err := c.auth.ClientCredentials(ctx, scope)
	if err != nil {
		return fmt.Errorf("client credentials grant failed: %w", err)
	}
	if err := store.Save(RecordFromToken(tok)); err != nil {
		return err
	}
	logger.Info("Authenticated with client credentials",
		zap.String("scope", scope),
		zap.Time("expires_at", tok.Expiry),
	)
	c.SetToken(tok, store)
	return nil
}

// LoadUserToken installs the cached user token, refreshing it first when
// it is past its recorded expiry. Returns ErrNotAuthenticated when there
// is nothing usable in the cache; the caller should direct the user to the
// interactive login.
func (c *Client) LoadUserToken(ctx context.Context) error {
	store := tokenstore.NewUser(c.cfg.TokenDir)

	tok := TokenFromRecord(store.Load())
	if usable(tok) {
		c.SetToken(tok, store)
		return nil
	}

	refresh, ok := store.RefreshToken()
	if !ok {
		return ErrNotAuthenticated
	}
	fresh, err := c.auth.Refresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("%w: token refresh failed: %v", ErrNotAuthenticated, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refresh
	}
	if err := store.Save(RecordFromToken(fresh)); err != nil {
		return err
	}
	c.SetToken(fresh, store)
	return nil
}

// refreshCurrent replaces the installed token using its refresh token and
// persists the result. Used on 401 responses mid-request.
func (c *Client) refreshCurrent(ctx context.Context) error {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	if store == nil {
		return ErrNotAuthenticated
	}

	refresh, ok := store.RefreshToken()
	if !ok {
		return ErrNotAuthenticated
	}
	fresh, err := c.auth.Refresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refresh
	}
	if err := store.Save(RecordFromToken(fresh)); err != nil {
		return err
	}
	c.SetToken(fresh, store)
	return nil
}

// TestToken probes the profile endpoint to check whether the installed
// token still authorizes requests.
func (c *Client) TestToken(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, profilePath, nil, nil, nil)
	return err == nil
}

// do builds, authorizes, and executes one API request, decoding the JSON
// response into out when out is non-nil. On a 401 invalid_token response
// it refreshes the current token and retries once.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.execute(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	var apiErr *APIError
	if errors.As(responseError(resp), &apiErr) && apiErr.StatusCode == http.StatusUnauthorized && apiErr.Code == "invalid_token" {
		logger.Info("Access token rejected, refreshing and retrying")
		if refreshErr := c.refreshCurrent(ctx); refreshErr != nil {
			logger.Warn("Token refresh failed", zap.Error(refreshErr))
			return apiErr
		}
		resp, err = c.execute(ctx, method, path, query, body)
		if err != nil {
			return err
		}
	}
	if err := responseError(resp); err != nil {
		return err
	}

	if out == nil || resp.statusCode == http.StatusNoContent || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type response struct {
	statusCode int
	body       []byte
}

// responseError converts a non-2xx response into an APIError.
func responseError(resp *response) error {
	if resp.statusCode < http.StatusBadRequest {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.statusCode, Body: resp.body}
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Errors           *struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		} `json:"errors"`
	}
	if json.Unmarshal(resp.body, &payload) == nil {
		switch {
		case payload.Error != "":
			apiErr.Code = payload.Error
			apiErr.Message = payload.ErrorDescription
		case payload.Errors != nil:
			apiErr.Code = payload.Errors.Code
			apiErr.Message = payload.Errors.Reason
		}
	}
	return apiErr
}

func (c *Client) execute(ctx context.Context, method, path string, query url.Values, body any) (*response, error) {
	tok := c.Token()
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("Kroger API request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{statusCode: resp.StatusCode, body: bodyBytes}, nil
}
