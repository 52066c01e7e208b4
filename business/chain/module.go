// Package chain implements the chain bounded context: contract reads, swap
// submission, receipts, liveness, ERC20 reads and gas pricing.
package chain

import (
	"context"

	"github.com/fd1az/swap-router/business/chain/app"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, chainDI.Client, func(sr di.ServiceRegistry) *ethereum.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := ethereum.NewClient(ethereum.NewClientConfig(cfg.Chain), log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, chainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(ethereum.NewGasOracleConfig(cfg.Chain), chainDI.GetClient(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, chainDI.ContractCaller, func(sr di.ServiceRegistry) app.ContractCaller {
		return chainDI.GetClient(sr)
	})
	di.RegisterToken(c, chainDI.TransactionSender, func(sr di.ServiceRegistry) app.TransactionSender {
		return chainDI.GetClient(sr)
	})
	di.RegisterToken(c, chainDI.ReceiptReader, func(sr di.ServiceRegistry) app.ReceiptReader {
		return chainDI.GetClient(sr)
	})
	di.RegisterToken(c, chainDI.LivenessProbe, func(sr di.ServiceRegistry) app.LivenessProbe {
		return chainDI.GetClient(sr)
	})
	di.RegisterToken(c, chainDI.TokenReader, func(sr di.ServiceRegistry) app.TokenReader {
		return chainDI.GetClient(sr)
	})

	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewChainService(
			chainDI.GetLivenessProbe(sr),
			chainDI.GetTokenReader(sr),
			chainDI.GetGasOracle(sr),
			log,
		)
	})

	return nil
}

// Startup connects the RPC endpoints.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	client := chainDI.GetClient(mono.Services())
	if err := client.Connect(ctx); err != nil {
		log.Error(ctx, "failed to connect chain client", "error", err)
		// Don't fail - calls report the connection error until restart
	}

	oracle := chainDI.GetGasOracle(mono.Services())
	if closer, ok := mono.(interface{ OnClose(func() error) }); ok {
		closer.OnClose(client.Close)
		if c, ok := oracle.(interface{ Close() error }); ok {
			closer.OnClose(c.Close)
		}
	}

	log.Info(ctx, "chain module started", "account", client.Account().Hex())
	return nil
}
