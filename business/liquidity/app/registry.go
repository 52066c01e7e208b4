package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/business/liquidity/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/liquidity/app"

	poolKeyPrefix = "pool_info_"
	graphKey      = "liquidity_graph"
)

var _ GraphSource = (*Registry)(nil)

// RegistryConfig holds pool registry settings.
type RegistryConfig struct {
	PoolTTL     time.Duration
	GraphTTL    time.Duration
	Concurrency int
	Retry       retry.Options
}

// DefaultRegistryConfig caches pools for 60s and the graph for 30s.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PoolTTL:     60 * time.Second,
		GraphTTL:    30 * time.Second,
		Concurrency: 8,
		Retry:       retry.Default(),
	}
}

// Registry caches pool snapshots and the liquidity graph built from them.
type Registry struct {
	config RegistryConfig
	reader PoolReader
	lister PoolLister
	logger logger.LoggerInterface
	now    func() time.Time

	pools  *cache.Cache[string, *domain.PoolInfo]
	graphs *cache.Cache[string, *domain.Graph]

	rebuildMu sync.Mutex

	tracer trace.Tracer
}

// NewRegistry creates a Registry. Cache options (clock, notifier) apply to both caches.
func NewRegistry(cfg RegistryConfig, reader PoolReader, lister PoolLister, log logger.LoggerInterface, opts ...cache.Option) *Registry {
	def := DefaultRegistryConfig()
	if cfg.PoolTTL <= 0 {
		cfg.PoolTTL = def.PoolTTL
	}
	if cfg.GraphTTL <= 0 {
		cfg.GraphTTL = def.GraphTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	return &Registry{
		config: cfg,
		reader: reader,
		lister: lister,
		logger: log,
		now:    time.Now,
		pools:  cache.New[string, *domain.PoolInfo](time.Minute, append(opts, cache.WithName("pools"))...),
		graphs: cache.New[string, *domain.Graph](0, append(opts, cache.WithName("graph"))...),
		tracer: otel.Tracer(tracerName),
	}
}

// WithClock sets the clock stamped on rebuilt graphs.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func poolKey(address common.Address) string {
	return poolKeyPrefix + strings.ToLower(address.Hex())
}

// GetPoolInfo returns the pool snapshot, reading it through the retry
// executor when the cached copy is missing or stale.
func (r *Registry) GetPoolInfo(ctx context.Context, address common.Address) (*domain.PoolInfo, error) {
	return cache.GetOrFetch(ctx, r.pools, poolKey(address), r.config.PoolTTL, func(ctx context.Context) (*domain.PoolInfo, error) {
		return retry.Do(ctx, r.config.Retry, func(ctx context.Context) (*domain.PoolInfo, error) {
			return r.reader.ReadPool(ctx, address)
		})
	})
}

// Graph returns the cached graph, rebuilding it when stale.
func (r *Registry) Graph(ctx context.Context) (*domain.Graph, error) {
	if g, ok := r.graphs.Get(ctx, graphKey); ok {
		return g, nil
	}

	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	// a caller queued ahead of us may have rebuilt already
	if g, ok := r.graphs.Get(ctx, graphKey); ok {
		return g, nil
	}
	return r.rebuild(ctx)
}

// RebuildGraph lists every pool, reads them concurrently and publishes a new
// graph. Pools that cannot be read are logged and left out; the survivors
// keep listing order.
func (r *Registry) RebuildGraph(ctx context.Context) (*domain.Graph, error) {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	return r.rebuild(ctx)
}

func (r *Registry) rebuild(ctx context.Context) (*domain.Graph, error) {
	ctx, span := r.tracer.Start(ctx, "liquidity.rebuild_graph")
	defer span.End()

	addrs, err := r.lister.ListPools(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, apperror.New(apperror.CodePoolListFailed, apperror.WithCause(err))
	}

	read := make([]*domain.PoolInfo, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			info, err := r.GetPoolInfo(gctx, addr)
			if err != nil {
				r.logger.Warn(gctx, "pool omitted from graph", "pool", addr.Hex(), "error", err)
				return nil
			}
			read[i] = info
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	survivors := make([]*domain.PoolInfo, 0, len(read))
	for _, p := range read {
		if p != nil {
			survivors = append(survivors, p)
		}
	}

	graph := domain.NewGraph(survivors, r.now())
	r.graphs.Set(ctx, graphKey, graph, r.config.GraphTTL)

	span.SetAttributes(
		attribute.Int("pools_listed", len(addrs)),
		attribute.Int("pools_indexed", len(survivors)),
		attribute.Int("tokens", graph.TokenCount()),
	)
	span.SetStatus(codes.Ok, "rebuilt")

	r.logger.Info(ctx, "liquidity graph rebuilt",
		"pools_listed", len(addrs),
		"pools_indexed", len(survivors),
		"tokens", graph.TokenCount(),
	)

	return graph, nil
}

// Invalidate drops the graph and the given pools so the next lookup re-reads them.
func (r *Registry) Invalidate(pools ...common.Address) {
	for _, p := range pools {
		r.pools.Delete(poolKey(p))
	}
	r.graphs.Delete(graphKey)
}

// Close stops the cache sweepers.
func (r *Registry) Close() {
	r.pools.Close()
	r.graphs.Close()
}
