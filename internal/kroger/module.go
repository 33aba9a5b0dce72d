package kroger

import (
	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"go.uber.org/fx"
)

// Module provides the Kroger API client dependencies
var Module = fx.Module("kroger",
	fx.Provide(
		func(cfg *config.Config) *config.KrogerConfig { return &cfg.API },
		NewClient,
	),
)
