// Package di contains dependency injection tokens for the trading context.
package di

import (
	"github.com/fd1az/swap-router/business/trading/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Trader = di.NewToken[*app.Trader]("trading.Trader")
)

func GetTrader(c di.ServiceRegistry) *app.Trader {
	return di.GetToken(c, Trader)
}
