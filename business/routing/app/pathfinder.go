// Package app contains the path finder.
package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	liquidityapp "github.com/fd1az/swap-router/business/liquidity/app"
	liquidity "github.com/fd1az/swap-router/business/liquidity/domain"
	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/routing/app"
	meterName  = "github.com/fd1az/swap-router/business/routing/app"
)

// DefaultMaxHops bounds the search when the caller passes 0.
const DefaultMaxHops = 3

type finderMetrics struct {
	searches   metric.Int64Counter
	noPath     metric.Int64Counter
	candidates metric.Int64Histogram
	latency    metric.Float64Histogram
}

// PathFinder searches the liquidity graph for the route with the highest
// simulated output.
type PathFinder struct {
	graphs         liquidityapp.GraphSource
	defaultMaxHops int
	logger         logger.LoggerInterface

	tracer  trace.Tracer
	metrics *finderMetrics
}

// NewPathFinder creates a PathFinder. A non-positive defaultMaxHops uses DefaultMaxHops.
func NewPathFinder(graphs liquidityapp.GraphSource, defaultMaxHops int, log logger.LoggerInterface) (*PathFinder, error) {
	if defaultMaxHops <= 0 {
		defaultMaxHops = DefaultMaxHops
	}

	f := &PathFinder{
		graphs:         graphs,
		defaultMaxHops: defaultMaxHops,
		logger:         log,
		tracer:         otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *PathFinder) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &finderMetrics{}

	f.metrics.searches, err = meter.Int64Counter(
		"path_searches_total",
		metric.WithDescription("Total path searches"),
	)
	if err != nil {
		return err
	}

	f.metrics.noPath, err = meter.Int64Counter(
		"path_not_found_total",
		metric.WithDescription("Searches that found no route"),
	)
	if err != nil {
		return err
	}

	f.metrics.candidates, err = meter.Int64Histogram(
		"path_candidates",
		metric.WithDescription("Candidate routes simulated per search"),
	)
	if err != nil {
		return err
	}

	f.metrics.latency, err = meter.Float64Histogram(
		"path_search_latency_ms",
		metric.WithDescription("Path search latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// FindBestPath enumerates simple paths of at most maxHops pools from tokenIn
// to tokenOut and returns the one with the greatest final output. Ties keep
// the first path found. maxHops 0 means the configured default.
func (f *PathFinder) FindBestPath(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, maxHops int) (*domain.SwapPath, error) {
	if maxHops == 0 {
		maxHops = f.defaultMaxHops
	}
	if err := validate(tokenIn, tokenOut, amountIn, maxHops); err != nil {
		return nil, err
	}

	ctx, span := f.tracer.Start(ctx, "routing.find_best_path",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", amountIn.String()),
			attribute.Int("max_hops", maxHops),
		),
	)
	defer span.End()

	start := time.Now()
	f.metrics.searches.Add(ctx, 1)

	g, err := f.graphs.Graph(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph unavailable")
		return nil, err
	}

	s := &search{
		graph:   g,
		target:  tokenOut,
		maxHops: maxHops,
		visited: map[common.Address]bool{tokenIn: true},
	}
	s.walk(tokenIn, []common.Address{tokenIn}, nil, nil, []*big.Int{amountIn}, 0)

	f.metrics.candidates.Record(ctx, int64(s.candidates))
	f.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(attribute.Int("candidates", s.candidates))

	if s.best == nil {
		f.metrics.noPath.Add(ctx, 1)
		span.SetStatus(codes.Error, "no path")
		f.logger.Debug(ctx, "no path found",
			"token_in", tokenIn.Hex(),
			"token_out", tokenOut.Hex(),
			"tokens_in_graph", g.TokenCount(),
		)
		return nil, apperror.New(apperror.CodeNoPathFound,
			apperror.WithContext(fmt.Sprintf("%s -> %s within %d hops", tokenIn.Hex(), tokenOut.Hex(), maxHops)))
	}

	span.AddEvent("path selected", trace.WithAttributes(
		attribute.Int("hops", s.best.Hops()),
		attribute.String("expected_output", s.best.ExpectedOutput.String()),
		attribute.Float64("price_impact", s.best.PriceImpact),
	))
	span.SetStatus(codes.Ok, "found")
	return s.best, nil
}

func validate(tokenIn, tokenOut common.Address, amountIn *big.Int, maxHops int) error {
	switch {
	case tokenIn == tokenOut:
		return apperror.New(apperror.CodeInvalidSwapParams, apperror.WithContext("token in and token out are the same"))
	case amountIn == nil || amountIn.Sign() <= 0:
		return apperror.New(apperror.CodeInvalidSwapParams, apperror.WithContext("amount in must be positive"))
	case maxHops < 1:
		return apperror.New(apperror.CodeInvalidSwapParams, apperror.WithContext("max hops must be at least 1"))
	}
	return nil
}

// search is one depth-first enumeration over a graph snapshot.
type search struct {
	graph   *liquidity.Graph
	target  common.Address
	maxHops int
	visited map[common.Address]bool

	best       *domain.SwapPath
	candidates int
}

func (s *search) walk(token common.Address, tokens []common.Address, pools []*liquidity.PoolInfo, fees []uint32, amounts []*big.Int, impact float64) {
	amount := amounts[len(amounts)-1]

	for _, next := range s.graph.Neighbours(token) {
		if s.visited[next] {
			continue
		}
		for _, edge := range s.graph.Edges(token, next) {
			rin, rout := edge.Pool.Reserves(token)
			out, hopImpact, ok := domain.HopOutput(amount, rin, rout, edge.Pool.FeePPM)
			if !ok {
				continue
			}

			// Full slice expressions force a copy so sibling branches never share backing arrays.
			nt := append(tokens[:len(tokens):len(tokens)], next)
			np := append(pools[:len(pools):len(pools)], edge.Pool)
			nf := append(fees[:len(fees):len(fees)], edge.Pool.FeePPM)
			na := append(amounts[:len(amounts):len(amounts)], out)

			if next == s.target {
				s.consider(nt, np, nf, na, impact+hopImpact)
				continue
			}
			if len(np) < s.maxHops {
				s.visited[next] = true
				s.walk(next, nt, np, nf, na, impact+hopImpact)
				s.visited[next] = false
			}
		}
	}
}

func (s *search) consider(tokens []common.Address, pools []*liquidity.PoolInfo, fees []uint32, amounts []*big.Int, impact float64) {
	s.candidates++
	out := amounts[len(amounts)-1]
	if s.best != nil && out.Cmp(s.best.ExpectedOutput) <= 0 {
		return
	}

	addrs := make([]common.Address, len(pools))
	for i, p := range pools {
		addrs[i] = p.Address
	}
	s.best = &domain.SwapPath{
		Tokens:         tokens,
		Pools:          addrs,
		Fees:           fees,
		Amounts:        amounts,
		ExpectedOutput: new(big.Int).Set(out),
		PriceImpact:    impact,
	}
}
