package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"go.uber.org/zap"
)

const successPage = `<html>
<head><title>Authorization Successful</title></head>
<body>
<h1>Authorization Successful</h1>
<p>You can close this window and return to the application.</p>
</body>
</html>`

const failurePage = `<html>
<head><title>Authorization Failed</title></head>
<body>
<h1>Authorization Failed</h1>
<p>No authorization code was received. Please try again.</p>
</body>
</html>`

// CallbackResult is the code/state pair delivered to the redirect URI.
type CallbackResult struct {
	Code  string
	State string
}

// CallbackServer is a short-lived local HTTP server that captures the
// OAuth2 redirect during interactive login.
type CallbackServer struct {
	server  *http.Server
	addr    string
	results chan CallbackResult
}

// NewCallbackServer creates a server listening on localhost at the given
// port. Call Start before directing the browser at it.
func NewCallbackServer(port int) *CallbackServer {
	s := &CallbackServer{
		results: make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRedirect)
	s.server = &http.Server{
		Addr:    net.JoinHostPort("localhost", strconv.Itoa(port)),
		Handler: mux,
	}
	return s
}

func (s *CallbackServer) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(failurePage))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(successPage))

	// Only the first redirect counts; repeats (browser refresh) are
	// dropped.
	select {
	case s.results <- CallbackResult{Code: code, State: r.URL.Query().Get("state")}:
	default:
	}
}

// Start begins listening. It returns once the listener is bound so the
// browser can be opened without racing the server.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()
	logger.Info("Started OAuth2 callback server", zap.String("address", s.addr))

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address once Start has succeeded.
func (s *CallbackServer) Addr() string {
	return s.addr
}

// Wait blocks until a redirect arrives, the timeout elapses, or the
// context is cancelled.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (CallbackResult, error) {
	select {
	case result := <-s.results:
		return result, nil
	case <-time.After(timeout):
		return CallbackResult{}, fmt.Errorf("authorization flow timed out after %s", timeout)
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// PortFromRedirectURI extracts the port the callback server must listen
// on from the registered redirect URI.
func PortFromRedirectURI(redirectURI string) (int, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return 0, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	portStr := u.Port()
	if portStr == "" {
		return 0, fmt.Errorf("redirect URI %q has no explicit port", redirectURI)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port in redirect URI %q: %w", redirectURI, err)
	}
	return port, nil
}
