// Package di contains dependency injection tokens for the liquidity context.
package di

import (
	"github.com/fd1az/swap-router/business/liquidity/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry = di.NewToken[*app.Registry]("liquidity.Registry")
)

// Private dependency tokens - internal to liquidity module
var (
	PoolReader = di.NewToken[app.PoolReader]("liquidity:poolReader")
	PoolLister = di.NewToken[app.PoolLister]("liquidity:poolLister")
)

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetPoolReader(c di.ServiceRegistry) app.PoolReader {
	return di.GetToken(c, PoolReader)
}

func GetPoolLister(c di.ServiceRegistry) app.PoolLister {
	return di.GetToken(c, PoolLister)
}
