package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/logger"
)

const tracerName = "github.com/fd1az/swap-router/business/swap/app"

// EstimatorConfig holds slippage and gas policy.
type EstimatorConfig struct {
	MaxSlippage      decimal.Decimal
	GasBase          uint64
	GasPerHop        uint64
	GasBufferPercent uint64
}

// DefaultEstimatorConfig caps slippage at 5% and budgets 100k gas plus 50k
// per extra hop with a 10% buffer.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		MaxSlippage:      decimal.NewFromFloat(0.05),
		GasBase:          100_000,
		GasPerHop:        50_000,
		GasBufferPercent: 10,
	}
}

// Estimator turns a best path into a user-facing quote.
type Estimator struct {
	config EstimatorConfig
	paths  PathFinder
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewEstimator creates an Estimator.
func NewEstimator(cfg EstimatorConfig, paths PathFinder, log logger.LoggerInterface) *Estimator {
	if cfg.GasBase == 0 {
		cfg.GasBase = DefaultEstimatorConfig().GasBase
	}
	return &Estimator{
		config: cfg,
		paths:  paths,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// EstimateSwap finds the best path and derives minimum output and gas. A
// tolerance above the configured maximum is clamped, not rejected.
func (e *Estimator) EstimateSwap(ctx context.Context, params domain.SwapParams) (*domain.SwapEstimate, error) {
	ctx, span := e.tracer.Start(ctx, "swap.estimate",
		trace.WithAttributes(
			attribute.String("token_in", params.TokenIn.Hex()),
			attribute.String("token_out", params.TokenOut.Hex()),
			attribute.String("slippage", params.SlippageTolerance.String()),
		),
	)
	defer span.End()

	if err := params.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid params")
		return nil, err
	}

	path, err := e.paths.FindBestPath(ctx, params.TokenIn, params.TokenOut, params.AmountIn, params.MaxHops)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no route")
		return nil, err
	}

	minOut, applied := domain.ApplySlippage(path.ExpectedOutput, params.SlippageTolerance, e.config.MaxSlippage)
	if !applied.Equal(params.SlippageTolerance) {
		e.logger.Warn(ctx, "slippage tolerance clamped",
			"requested", params.SlippageTolerance.String(),
			"applied", applied.String(),
		)
	}

	est := &domain.SwapEstimate{
		ExpectedOutput:  path.ExpectedOutput,
		MinimumOutput:   minOut,
		PriceImpact:     path.PriceImpact,
		Path:            path,
		GasEstimate:     domain.GasEstimate(e.config.GasBase, e.config.GasPerHop, e.config.GasBufferPercent, path.Hops()),
		AppliedSlippage: applied,
	}

	span.SetAttributes(
		attribute.Int("hops", path.Hops()),
		attribute.String("expected_output", est.ExpectedOutput.String()),
		attribute.String("minimum_output", est.MinimumOutput.String()),
		attribute.Int64("gas_estimate", int64(est.GasEstimate)),
	)
	span.SetStatus(codes.Ok, "estimated")
	return est, nil
}
