package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("kroger-mcp version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     KrogerConfig  `mapstructure:"api"`
}

type ServerMode string

const (
	ServerModeSSE   ServerMode = "sse"
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// KrogerConfig holds the Kroger Public API credentials and defaults.
// Credentials are owned by the deployment environment, not by this
// repository; they arrive via config file or KROGER_* variables.
type KrogerConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	ZipCode      string `mapstructure:"zip_code"`
	Scopes       string `mapstructure:"scopes"`
	// TokenDir is where cached OAuth token files are written.
	TokenDir string `mapstructure:"token_dir"`
}

const (
	DefaultBaseURL = "https://api.kroger.com"
	DefaultZipCode = "00000"
	// DefaultUserScopes covers the cart and identity tools.
	DefaultUserScopes = "cart.basic:write profile.compact"
)

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("mode", string(ServerModeSTDIO), "Server mode (stdio|sse|http)")
	pflag.String("zip-code", "", "Default zip code for store searches")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("KROGER_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// The original credential variables predate the KROGER_MCP prefix and
	// stay supported.
	_ = viper.BindEnv("api.client_id", "KROGER_CLIENT_ID")
	_ = viper.BindEnv("api.client_secret", "KROGER_CLIENT_SECRET")
	_ = viper.BindEnv("api.redirect_uri", "KROGER_REDIRECT_URI")
	_ = viper.BindEnv("api.zip_code", "KROGER_USER_ZIP_CODE")

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	viper.SetDefault("server.name", "Kroger MCP")
	viper.SetDefault("server.version", "1.0.0")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("api.base_url", DefaultBaseURL)
	viper.SetDefault("api.zip_code", DefaultZipCode)
	viper.SetDefault("api.scopes", DefaultUserScopes)
	viper.SetDefault("api.token_dir", ".")

	// config.yaml is optional; credentials may come entirely from the
	// environment.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/kroger-mcp")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Set server mode from flag
	if mode := viper.GetString("mode"); mode != "" {
		switch ServerMode(mode) {
		case ServerModeSSE, ServerModeSTDIO, ServerModeHTTP:
			config.Server.Mode = ServerMode(mode)
		}
	}

	if zip := viper.GetString("zip-code"); zip != "" {
		config.API.ZipCode = zip
	}

	if config.API.ClientID == "" || config.API.ClientSecret == "" {
		return nil, fmt.Errorf("missing Kroger API credentials: set KROGER_CLIENT_ID and KROGER_CLIENT_SECRET or api.client_id/api.client_secret in config.yaml")
	}

	return &config, nil
}
