// Package monitor implements the transaction monitor bounded context.
package monitor

import (
	"context"

	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/monitor/app"
	monitorDI "github.com/fd1az/swap-router/business/monitor/di"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the monitor bounded context.
type Module struct{}

// RegisterServices registers the transaction monitor with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, monitorDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hub := sr.Get("events").(*events.Registry)

		monCfg := app.Config{
			PollInterval:    cfg.Monitor.PollInterval,
			Timeout:         cfg.Monitor.Timeout,
			MaxPollErrors:   cfg.Monitor.MaxPollErrors,
			Retention:       cfg.Monitor.Retention,
			CleanupInterval: cfg.Monitor.CleanupInterval,
		}
		mon, err := app.NewMonitor(monCfg, chainDI.GetReceiptReader(sr), swapDI.GetAnalyticsStore(sr), hub, log)
		if err != nil {
			panic("failed to create transaction monitor: " + err.Error())
		}
		return mon
	})

	return nil
}

// Startup starts the poll and cleanup loops.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mon := monitorDI.GetMonitor(mono.Services())
	mon.Start(ctx)

	if closer, ok := mono.(interface{ OnClose(func() error) }); ok {
		closer.OnClose(func() error { mon.Stop(); return nil })
	}

	mono.Logger().Info(ctx, "monitor module started",
		"poll_interval", mono.Config().Monitor.PollInterval,
		"timeout", mono.Config().Monitor.Timeout,
	)
	return nil
}
