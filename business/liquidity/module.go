// Package liquidity implements the pool registry and liquidity graph bounded context.
package liquidity

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/liquidity/app"
	liquidityDI "github.com/fd1az/swap-router/business/liquidity/di"
	"github.com/fd1az/swap-router/business/liquidity/infra/uniswap"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/internal/retry"
)

// Module implements the liquidity bounded context.
type Module struct{}

// RegisterServices registers all liquidity services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, liquidityDI.PoolReader, func(sr di.ServiceRegistry) app.PoolReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		reader, err := uniswap.NewPoolReader(chainDI.GetContractCaller(sr), cfg.Liquidity.DefaultFeePPM, log)
		if err != nil {
			panic("failed to create pool reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, liquidityDI.PoolLister, func(sr di.ServiceRegistry) app.PoolLister {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		static := make([]common.Address, 0, len(cfg.Liquidity.Pools))
		for _, p := range cfg.Liquidity.Pools {
			static = append(static, common.HexToAddress(p))
		}
		var factory common.Address
		if cfg.Liquidity.FactoryAddress != "" {
			factory = common.HexToAddress(cfg.Liquidity.FactoryAddress)
		}

		lister, err := uniswap.NewPoolLister(chainDI.GetContractCaller(sr), static, factory, cfg.Liquidity.MaxPools, log)
		if err != nil {
			panic("failed to create pool lister: " + err.Error())
		}
		return lister
	})

	di.RegisterToken(c, liquidityDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hub := sr.Get("events").(*events.Registry)

		regCfg := app.RegistryConfig{
			PoolTTL:     cfg.Liquidity.PoolTTL,
			GraphTTL:    cfg.Liquidity.GraphTTL,
			Concurrency: cfg.Liquidity.Concurrency,
			Retry: retry.Options{
				MaxAttempts:   cfg.Chain.MaxAttempts,
				InitialDelay:  cfg.Chain.InitialDelay,
				MaxDelay:      cfg.Chain.MaxDelay,
				BackoffFactor: cfg.Chain.BackoffFactor,
			},
		}
		return app.NewRegistry(regCfg,
			liquidityDI.GetPoolReader(sr),
			liquidityDI.GetPoolLister(sr),
			log,
			cache.WithNotifier(hub),
		)
	})

	return nil
}

// Startup warms the liquidity graph.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	reg := liquidityDI.GetRegistry(mono.Services())
	if g, err := reg.RebuildGraph(ctx); err != nil {
		log.Error(ctx, "initial liquidity graph build failed", "error", err)
		// Don't fail - the graph is rebuilt on first use
	} else {
		log.Info(ctx, "liquidity module started", "pools", len(g.Pools()), "tokens", g.TokenCount())
	}

	if closer, ok := mono.(interface{ OnClose(func() error) }); ok {
		closer.OnClose(func() error { reg.Close(); return nil })
	}
	return nil
}
