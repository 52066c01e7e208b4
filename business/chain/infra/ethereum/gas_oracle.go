package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

const gasPriceKey = "current"

// GasPriceSource suggests a gas price. *Client implements it.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // How long to cache gas prices
	MaxGasPrice *big.Int      // Prices above this are capped
}

// DefaultGasOracleConfig caches for about one block and caps at 500 gwei.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    12 * time.Second,
		MaxGasPrice: domain.GweiToWei(500),
	}
}

// NewGasOracleConfig maps the chain configuration section.
func NewGasOracleConfig(cfg config.ChainConfig) GasOracleConfig {
	out := DefaultGasOracleConfig()
	if cfg.GasPriceCacheTTL > 0 {
		out.CacheTTL = cfg.GasPriceCacheTTL
	}
	if cfg.MaxGasPriceGwei > 0 {
		out.MaxGasPrice = domain.GweiToWei(cfg.MaxGasPriceGwei)
	}
	return out
}

type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// GasOracle serves the node's gas price, cached and capped.
type GasOracle struct {
	config GasOracleConfig
	source GasPriceSource
	logger logger.LoggerInterface
	now    func() time.Time

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, source GasPriceSource, log logger.LoggerInterface, opts ...cache.Option) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		source:     source,
		logger:     log,
		now:        time.Now,
		priceCache: cache.New[string, *domain.GasPrice](0, append(opts, cache.WithName("gas_price"))...),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-oracle")
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// GasPrice returns the current gas price, capped at MaxGasPrice.
func (g *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, gasPriceKey); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.source.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	capped := false
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "wei", wei.String(), "max", g.config.MaxGasPrice.String())
		wei = g.config.MaxGasPrice
		capped = true
	}

	price := domain.NewGasPrice(wei, g.now())
	price.Capped = capped

	g.priceCache.Set(ctx, gasPriceKey, price, g.config.CacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei)

	span.SetAttributes(attribute.Float64("gwei", price.Gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Close releases the price cache.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
