package auth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/kroger"
	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"github.com/cartwheel-tools/kroger-mcp/internal/tokenstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLoginTimeout is how long Login waits for the user to finish the
// browser authorization.
const DefaultLoginTimeout = 2 * time.Minute

// ErrStateMismatch indicates the redirect carried a state value other
// than the one sent, so the response cannot be trusted.
var ErrStateMismatch = errors.New("oauth state mismatch, possible CSRF")

// Flow runs the interactive authorization-code login and caches the
// resulting token through the token store.
type Flow struct {
	cfg     *config.KrogerConfig
	client  *kroger.Client
	timeout time.Duration
}

func NewFlow(cfg *config.KrogerConfig, client *kroger.Client) *Flow {
	return &Flow{
		cfg:     cfg,
		client:  client,
		timeout: DefaultLoginTimeout,
	}
}

// SetTimeout overrides the browser authorization timeout.
func (f *Flow) SetTimeout(d time.Duration) {
	f.timeout = d
}

// Login makes the client hold a valid user token. It reuses the cached
// token when still accepted, falls back to the refresh grant, and only
// then runs the full browser flow.
func (f *Flow) Login(ctx context.Context) error {
	// LoadUserToken covers both the still-valid and refreshable cases.
	if err := f.client.LoadUserToken(ctx); err == nil {
		if f.client.TestToken(ctx) {
			logger.Info("Saved token is valid, no login needed")
			return nil
		}
		logger.Info("Saved token rejected, starting new authorization")
	} else if !errors.Is(err, kroger.ErrNotAuthenticated) {
		return err
	}

	return f.authorize(ctx)
}

func (f *Flow) authorize(ctx context.Context) error {
	if f.cfg.RedirectURI == "" {
		return fmt.Errorf("redirect URI is required for interactive login: set KROGER_REDIRECT_URI")
	}

	port, err := PortFromRedirectURI(f.cfg.RedirectURI)
	if err != nil {
		return err
	}

	pkce, err := NewPKCE()
	if err != nil {
		return err
	}
	state := uuid.NewString()

	callback := NewCallbackServer(port)
	if err := callback.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := callback.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down callback server", zap.Error(err))
		}
	}()

	authURL := f.client.Authenticator().AuthCodeURL(
		strings.Fields(f.cfg.Scopes), state, pkce.Challenge, pkce.Method, "")

	logger.Info("Opening browser for Kroger login", zap.String("url", authURL))
	if err := openBrowser(authURL); err != nil {
		logger.Warn("Could not open browser, open the URL manually",
			zap.String("url", authURL), zap.Error(err))
	}

	result, err := callback.Wait(ctx, f.timeout)
	if err != nil {
		return err
	}
	if result.State != state {
		return ErrStateMismatch
	}

	tok, err := f.client.Authenticator().Exchange(ctx, result.Code, pkce.Verifier)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	store := tokenstore.NewUser(f.cfg.TokenDir)
	if err := store.Save(kroger.RecordFromToken(tok)); err != nil {
		return err
	}
	f.client.SetToken(tok, store)
	logger.Info("Login successful", zap.Time("expires_at", tok.Expiry))
	return nil
}

// openBrowser launches the platform's default browser at the given URL.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
