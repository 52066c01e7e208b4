// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PathFinder = di.NewToken[*app.PathFinder]("routing.PathFinder")
)

func GetPathFinder(c di.ServiceRegistry) *app.PathFinder {
	return di.GetToken(c, PathFinder)
}
