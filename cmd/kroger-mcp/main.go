package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/cartwheel-tools/kroger-mcp/internal/auth"
	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/kroger"
	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"github.com/cartwheel-tools/kroger-mcp/internal/server"
	"github.com/cartwheel-tools/kroger-mcp/internal/tokenstore"
)

func main() {
	Execute()
}

// rootCmd serves MCP by default; login/logout manage the cached user
// token.
var rootCmd = &cobra.Command{
	Use:   "kroger-mcp",
	Short: "MCP server for the Kroger Public API",
	Long: `kroger-mcp exposes Kroger store locations, products, cart, and identity
as MCP tools so an agent can answer questions like "find nearby Kroger stores".`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize with your Kroger account in the browser",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete cached OAuth tokens",
	RunE:  runLogout,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	// cobra shares the flag objects registered on pflag.CommandLine, so
	// viper's BindPFlags sees the parsed values.
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		kroger.Module,
		server.Module,
		fx.Invoke(runServer),
	)

	app.Run()
	return nil
}

// runServer ties the serve loop to the fx lifecycle: the server runs
// until a shutdown signal cancels its context, and a server failure
// shuts the app down.
func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *server.Server) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(ctx); err != nil {
					logger.Error("Server exited", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := kroger.NewClient(&cfg.API)
	flow := auth.NewFlow(&cfg.API, client)

	pterm.Info.Println("Starting Kroger login, a browser window will open...")
	if err := flow.Login(cmd.Context()); err != nil {
		return err
	}
	pterm.Success.Println("Logged in. The token is cached for future runs.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stores := []*tokenstore.Store{
		tokenstore.NewUser(cfg.API.TokenDir),
		tokenstore.NewForScope(cfg.API.TokenDir, "product.compact"),
	}
	for _, store := range stores {
		if err := store.Clear(); err != nil {
			return err
		}
	}
	pterm.Success.Println("Cached tokens deleted.")
	return nil
}
