// Package di contains dependency injection tokens for the swap context.
package di

import (
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Estimator      = di.NewToken[*app.Estimator]("swap.Estimator")
	Engine         = di.NewToken[*app.Engine]("swap.Engine")
	AnalyticsStore = di.NewToken[app.AnalyticsStore]("swap.AnalyticsStore")
)

// Private dependency tokens - internal to swap module
var (
	Router = di.NewToken[app.Router]("swap:router")
)

func GetEstimator(c di.ServiceRegistry) *app.Estimator {
	return di.GetToken(c, Estimator)
}

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetAnalyticsStore(c di.ServiceRegistry) app.AnalyticsStore {
	return di.GetToken(c, AnalyticsStore)
}

func GetRouter(c di.ServiceRegistry) app.Router {
	return di.GetToken(c, Router)
}
