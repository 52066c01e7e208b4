// Package routing implements the path finder bounded context.
package routing

import (
	"context"

	liquidityDI "github.com/fd1az/swap-router/business/liquidity/di"
	"github.com/fd1az/swap-router/business/routing/app"
	routingDI "github.com/fd1az/swap-router/business/routing/di"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the routing bounded context.
type Module struct{}

// RegisterServices registers the path finder with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, routingDI.PathFinder, func(sr di.ServiceRegistry) *app.PathFinder {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		finder, err := app.NewPathFinder(liquidityDI.GetRegistry(sr), cfg.Routing.MaxHops, log)
		if err != nil {
			panic("failed to create path finder: " + err.Error())
		}
		return finder
	})

	return nil
}

// Startup resolves the path finder so construction errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = routingDI.GetPathFinder(mono.Services())
	mono.Logger().Info(ctx, "routing module started", "max_hops", mono.Config().Routing.MaxHops)
	return nil
}
