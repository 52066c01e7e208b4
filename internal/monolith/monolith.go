// Package monolith holds the shared services every module starts against:
// config, logger, event hub, token registry and the DI container.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"time"

	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Events() *events.Registry
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	events        *events.Registry
	assetRegistry *asset.Registry
	container     di.Container
	closers       []func() error
}

// New creates a new Monolith instance. The token registry starts from the
// well-known assets of the configured chain and adds every configured token.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	assetRegistry, err := buildAssetRegistry(cfg)
	if err != nil {
		return nil, err
	}

	hub := events.NewRegistry("swaprouter")

	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("events", hub)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		events:        hub,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func buildAssetRegistry(cfg *config.Config) (*asset.Registry, error) {
	reg := asset.NewChainRegistry(cfg.Chain.ChainID)

	specs := make([]asset.TokenSpec, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		specs = append(specs, asset.TokenSpec{
			Symbol:   t.Symbol,
			Name:     t.Name,
			Address:  t.Address,
			Decimals: t.Decimals,
		})
	}
	if err := reg.RegisterTokens(specs); err != nil {
		return nil, err
	}

	if weth, err := reg.BySymbol("WETH"); err == nil {
		reg.SetWrappedNative(weth)
	}
	return reg, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Events() *events.Registry {
	return a.events
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// OnClose registers fn to run on Close, in reverse registration order.
func (a *app) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// RegisterModules lets each module bind its services, in order.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %s: %w", moduleName(m), err)
		}
	}
	return nil
}

// StartModules starts modules in order and stops at the first failure.
// Later modules resolve services that earlier ones started.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		start := time.Now()
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %s: %w", moduleName(m), err)
		}
		a.logger.Debug(ctx, "module started", "module", moduleName(m), "took", time.Since(start))
	}
	return nil
}

// moduleName is the package of the module type, e.g. "routing".
func moduleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return path.Base(t.PkgPath())
}

// Close releases every registered resource.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
