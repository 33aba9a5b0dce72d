// Package server exposes the Kroger API client as MCP tools over STDIO,
// SSE, or streamable HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/agent"
	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/kroger"
	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second

	// productScope is the client-credentials scope used by the location
	// and product tools.
	productScope = "product.compact"
)

// Server is the MCP server instance. It carries two API clients: one
// authenticated with client credentials for public catalog data, and one
// holding the user token for cart and identity operations.
type Server struct {
	config *config.Config
	mcp    *mcpserver.MCPServer
	api    *kroger.Client
	user   *kroger.Client
	card   *agent.Card
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg *config.Config, api *kroger.Client) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}
	if api == nil {
		logger.Fatal("Kroger client cannot be nil")
	}

	mcpServer := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
	)

	srv := &Server{
		config: cfg,
		mcp:    mcpServer,
		api:    api,
		user:   kroger.NewClient(&cfg.API),
	}

	srv.setupTools()
	srv.card = agent.NewCard(cfg, srv.skills())
	return srv
}

// ensureAPIAuth makes sure the catalog client holds a usable application
// token, authenticating lazily when the startup attempt failed or the
// token expired.
func (s *Server) ensureAPIAuth(ctx context.Context) error {
	if s.api.HasUsableToken() {
		return nil
	}
	return s.api.AuthenticateClientCredentials(ctx, productScope)
}

// ensureUserAuth loads the cached user token for cart/identity tools.
func (s *Server) ensureUserAuth(ctx context.Context) error {
	if s.user.HasUsableToken() {
		return nil
	}
	return s.user.LoadUserToken(ctx)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.card)
}

// createHTTPHandler wires the agent card and MCP endpoints behind the
// logging middleware and CORS wrapper.
func (s *Server) createHTTPHandler(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/.well-known/agent.json", LoggingMiddleware(http.HandlerFunc(s.handleAgentCard)))
	mux.Handle("/", LoggingMiddleware(mcpHandler))
	return CORS(mux)
}

func (s *Server) ServeSSE(ctx context.Context) error {
	logger.Info("Starting SSE server")

	sseServer := mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)),
	)

	return s.serveHTTP(ctx, sseServer, "SSE")
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	logger.Info("Starting HTTP server")
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, handler http.Handler, mode string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.createHTTPHandler(handler),
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", addr),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start authenticates eagerly and serves in the configured mode. A failed
// startup authentication is downgraded to a warning; the tools retry on
// first use.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
	)

	if err := s.ensureAPIAuth(ctx); err != nil {
		logger.Warn("Startup authentication failed, will retry on first tool call", zap.Error(err))
	}

	switch s.config.Server.Mode {
	case config.ServerModeSSE:
		return s.ServeSSE(ctx)
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO:
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		NewServer,
	),
)
