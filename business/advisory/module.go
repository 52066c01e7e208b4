// Package advisory implements the trading advice bounded context.
package advisory

import (
	"context"

	"github.com/fd1az/swap-router/business/advisory/app"
	advisoryDI "github.com/fd1az/swap-router/business/advisory/di"
	"github.com/fd1az/swap-router/business/advisory/infra/deepseek"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the advisory bounded context.
type Module struct{}

// RegisterServices registers the advisor. Without an API key the offline
// responder answers instead of the remote service.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, advisoryDI.Completer, func(sr di.ServiceRegistry) app.Completer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Advisory.APIKey == "" {
			log.Warn(context.Background(), "advisory api key not set, using offline responses")
			return deepseek.Offline{}
		}

		client, err := deepseek.NewClient(deepseek.Config{
			BaseURL: cfg.Advisory.BaseURL,
			APIKey:  cfg.Advisory.APIKey,
			Model:   cfg.Advisory.Model,
			Timeout: cfg.Advisory.Timeout,
		}, log)
		if err != nil {
			panic("failed to create advisory client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, advisoryDI.Advisor, func(sr di.ServiceRegistry) *app.Advisor {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewAdvisor(advisoryDI.GetCompleter(sr), log)
	})

	return nil
}

// Startup resolves the advisor so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = advisoryDI.GetAdvisor(mono.Services())

	mono.Logger().Info(ctx, "advisory module started",
		"base_url", mono.Config().Advisory.BaseURL,
		"online", mono.Config().Advisory.APIKey != "",
	)
	return nil
}
