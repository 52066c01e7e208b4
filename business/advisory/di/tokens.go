// Package di contains dependency injection tokens for the advisory context.
package di

import (
	"github.com/fd1az/swap-router/business/advisory/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Advisor = di.NewToken[*app.Advisor]("advisory.Advisor")
)

// Private tokens - internal to the advisory module
var (
	Completer = di.NewToken[app.Completer]("advisory:completer")
)

func GetAdvisor(c di.ServiceRegistry) *app.Advisor {
	return di.GetToken(c, Advisor)
}

func GetCompleter(c di.ServiceRegistry) app.Completer {
	return di.GetToken(c, Completer)
}
