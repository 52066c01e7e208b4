// Package di contains dependency injection tokens for the alerting context.
package di

import (
	"github.com/fd1az/swap-router/business/alerting/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("alerting.Service")
)

// Private tokens - internal to the alerting module
var (
	PriceFeed = di.NewToken[app.PriceFeed]("alerting:priceFeed")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetPriceFeed(c di.ServiceRegistry) app.PriceFeed {
	return di.GetToken(c, PriceFeed)
}
