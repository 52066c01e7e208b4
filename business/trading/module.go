// Package trading implements the quick swap and portfolio facade.
package trading

import (
	"context"

	advisoryDI "github.com/fd1az/swap-router/business/advisory/di"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	routingapp "github.com/fd1az/swap-router/business/routing/app"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/business/trading/app"
	tradingDI "github.com/fd1az/swap-router/business/trading/di"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the trading bounded context.
type Module struct{}

// RegisterServices registers the trader.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, tradingDI.Trader, func(sr di.ServiceRegistry) *app.Trader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hub := sr.Get("events").(*events.Registry)
		tokens := sr.Get("assetRegistry").(*asset.Registry)

		tradeCfg := app.DefaultConfig()
		if !cfg.Swap.DefaultSlippageDecimal().IsZero() {
			tradeCfg.Slippage = cfg.Swap.DefaultSlippageDecimal()
		}
		if cfg.Swap.Deadline > 0 {
			tradeCfg.Deadline = cfg.Swap.Deadline
		}
		tradeCfg.MaxHops = cfg.Routing.MaxHops
		if tradeCfg.MaxHops <= 0 {
			tradeCfg.MaxHops = routingapp.DefaultMaxHops
		}

		return app.NewTrader(tradeCfg,
			tokens,
			swapDI.GetEstimator(sr),
			swapDI.GetEngine(sr),
			advisoryDI.GetAdvisor(sr),
			chainDI.GetChainService(sr),
			hub,
			log,
		)
	})

	return nil
}

// Startup resolves the trader.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = tradingDI.GetTrader(mono.Services())

	mono.Logger().Info(ctx, "trading module started",
		"tokens", mono.AssetRegistry().Count(),
	)
	return nil
}
