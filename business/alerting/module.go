// Package alerting implements the metrics and alerting bounded context.
package alerting

import (
	"context"

	"github.com/fd1az/swap-router/business/alerting/app"
	alertingDI "github.com/fd1az/swap-router/business/alerting/di"
	"github.com/fd1az/swap-router/business/alerting/infra/binance"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	monitorDI "github.com/fd1az/swap-router/business/monitor/di"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the alerting bounded context.
type Module struct{}

// RegisterServices registers the alerting service and, when enabled, the
// Binance price feed.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, alertingDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hub := sr.Get("events").(*events.Registry)

		svcCfg := app.Config{
			CollectInterval: cfg.Alerting.CollectInterval,
			Retention:       cfg.Alerting.MetricsRetention,
		}
		svc, err := app.NewService(svcCfg,
			chainDI.GetLivenessProbe(sr),
			monitorDI.GetMonitor(sr),
			swapDI.GetAnalyticsStore(sr),
			hub,
			log,
		)
		if err != nil {
			panic("failed to create alerting service: " + err.Error())
		}
		return svc
	})

	di.RegisterToken(c, alertingDI.PriceFeed, func(sr di.ServiceRegistry) app.PriceFeed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		feedCfg := binance.DefaultConfig(cfg.Binance.Symbols)
		if cfg.Binance.WebSocketURL != "" {
			feedCfg.BaseURL = cfg.Binance.WebSocketURL
		}
		feed, err := binance.NewFeed(feedCfg, log)
		if err != nil {
			panic("failed to create binance feed: " + err.Error())
		}
		return feed
	})

	return nil
}

// Startup starts metrics collection and connects the price feed in the
// background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()
	cfg := mono.Config()
	log := mono.Logger()

	svc := alertingDI.GetService(sr)
	svc.Start(ctx)

	closer, canClose := mono.(interface{ OnClose(func() error) })
	if canClose {
		closer.OnClose(func() error { svc.Stop(); return nil })
	}

	if cfg.Binance.Enabled {
		feed := alertingDI.GetPriceFeed(sr)
		go func() {
			if err := feed.Start(ctx, svc); err != nil {
				log.Error(ctx, "price feed unavailable, price alerts will not fire", "error", err)
			}
		}()
		if canClose {
			closer.OnClose(feed.Close)
		}
	}

	log.Info(ctx, "alerting module started",
		"collect_interval", cfg.Alerting.CollectInterval,
		"price_feed", cfg.Binance.Enabled,
	)
	return nil
}
