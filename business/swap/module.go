// Package swap implements the quote estimation and execution bounded context.
package swap

import (
	"context"
	"io"

	chainDI "github.com/fd1az/swap-router/business/chain/di"
	monitorDI "github.com/fd1az/swap-router/business/monitor/di"
	routingDI "github.com/fd1az/swap-router/business/routing/di"
	"github.com/fd1az/swap-router/business/swap/app"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/business/swap/infra/store"
	"github.com/fd1az/swap-router/business/swap/infra/uniswap"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/internal/retry"
)

// Module implements the swap bounded context.
type Module struct{}

// RegisterServices registers all swap services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, swapDI.AnalyticsStore, func(sr di.ServiceRegistry) app.AnalyticsStore {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Analytics.Backend == "redis" {
			s, err := store.NewRedis(context.Background(), store.RedisConfig{
				Addr:     cfg.Analytics.RedisAddr,
				Password: cfg.Analytics.RedisPassword,
				DB:       cfg.Analytics.RedisDB,
				TTL:      cfg.Analytics.TTL,
			})
			if err == nil {
				return s
			}
			log.Error(context.Background(), "redis analytics store unavailable, using memory", "addr", cfg.Analytics.RedisAddr, "error", err)
		}
		return store.NewMemory(cfg.Analytics.TTL)
	})

	di.RegisterToken(c, swapDI.Router, func(sr di.ServiceRegistry) app.Router {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		r, err := uniswap.NewRouter(cfg.Swap.RouterAddressHex(), chainDI.GetTransactionSender(sr), log)
		if err != nil {
			panic("failed to create router: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, swapDI.Estimator, func(sr di.ServiceRegistry) *app.Estimator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		estCfg := app.EstimatorConfig{
			MaxSlippage:      cfg.Swap.MaxSlippageDecimal(),
			GasBase:          cfg.Swap.GasBase,
			GasPerHop:        cfg.Swap.GasPerHop,
			GasBufferPercent: cfg.Swap.GasBufferPercent,
		}
		return app.NewEstimator(estCfg, routingDI.GetPathFinder(sr), log)
	})

	di.RegisterToken(c, swapDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hub := sr.Get("events").(*events.Registry)

		engCfg := app.EngineConfig{
			Deadline: cfg.Swap.Deadline,
			Retry: retry.Options{
				MaxAttempts:   cfg.Chain.MaxAttempts,
				InitialDelay:  cfg.Chain.InitialDelay,
				MaxDelay:      cfg.Chain.MaxDelay,
				BackoffFactor: cfg.Chain.BackoffFactor,
			},
		}
		engine, err := app.NewEngine(engCfg,
			swapDI.GetEstimator(sr),
			swapDI.GetRouter(sr),
			monitorDI.GetMonitor(sr),
			hub,
			log,
		)
		if err != nil {
			panic("failed to create swap engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup resolves the engine and registers the analytics store for shutdown.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()
	_ = swapDI.GetEngine(sr)

	s := swapDI.GetAnalyticsStore(sr)
	if c, ok := s.(io.Closer); ok {
		if closer, ok := mono.(interface{ OnClose(func() error) }); ok {
			closer.OnClose(c.Close)
		}
	}

	mono.Logger().Info(ctx, "swap module started",
		"router", mono.Config().Swap.RouterAddress,
		"analytics_backend", mono.Config().Analytics.Backend,
	)
	return nil
}
