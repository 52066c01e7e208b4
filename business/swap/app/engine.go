package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

const meterName = "github.com/fd1az/swap-router/business/swap/app"

type engineMetrics struct {
	submitted metric.Int64Counter
	failed    metric.Int64Counter
	latency   metric.Float64Histogram
}

// EngineConfig holds execution policy.
type EngineConfig struct {
	Deadline time.Duration
	Retry    retry.Options
}

// Engine re-estimates and submits swaps, then hands them to the tracker.
type Engine struct {
	config    EngineConfig
	estimator *Estimator
	router    Router
	tracker   Tracker
	events    *events.Registry
	logger    logger.LoggerInterface
	now       func() time.Time

	tracer  trace.Tracer
	metrics *engineMetrics
}

// NewEngine creates an Engine. Only nonce and gas errors are resubmitted.
func NewEngine(cfg EngineConfig, estimator *Estimator, router Router, tracker Tracker, hub *events.Registry, log logger.LoggerInterface) (*Engine, error) {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 300 * time.Second
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = IsResubmittable
	}

	e := &Engine{
		config:    cfg,
		estimator: estimator,
		router:    router,
		tracker:   tracker,
		events:    hub,
		logger:    log,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return e, nil
}

// WithClock replaces the clock used for deadlines and analytics timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.submitted, err = meter.Int64Counter(
		"swaps_submitted_total",
		metric.WithDescription("Swaps broadcast to the router"),
	)
	if err != nil {
		return err
	}

	e.metrics.failed, err = meter.Int64Counter(
		"swaps_failed_total",
		metric.WithDescription("Swaps that failed before inclusion"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"swap_submit_latency_ms",
		metric.WithDescription("Estimate plus submission latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// ExecuteSwap re-estimates, submits the router call and registers the
// transaction with the tracker. Routing errors are returned unchanged;
// submission errors are wrapped as SUBMISSION_FAILED.
func (e *Engine) ExecuteSwap(ctx context.Context, account common.Address, params domain.SwapParams) (common.Hash, error) {
	ctx, span := e.tracer.Start(ctx, "swap.execute",
		trace.WithAttributes(
			attribute.String("account", account.Hex()),
			attribute.String("token_in", params.TokenIn.Hex()),
			attribute.String("token_out", params.TokenOut.Hex()),
			attribute.String("amount_in", params.AmountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()

	est, err := e.estimator.EstimateSwap(ctx, params)
	if err != nil {
		return common.Hash{}, e.fail(ctx, span, params, err)
	}

	e.events.Emit(events.SwapStarted, domain.SwapStartedEvent{
		Params:    params,
		Estimate:  est,
		Timestamp: e.now(),
	})

	deadline := params.Deadline
	if deadline <= 0 {
		deadline = e.config.Deadline
	}
	call := RouterCall{
		AmountIn:     params.AmountIn,
		AmountOutMin: est.MinimumOutput,
		Path:         est.Path.Tokens,
		Recipient:    account,
		Deadline:     e.now().Add(deadline),
	}

	opts := e.config.Retry
	opts.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn(ctx, "swap submission retry", "attempt", attempt, "delay", delay, "error", err)
	}
	sent, err := retry.Do(ctx, opts, func(ctx context.Context) (*sentTx, error) {
		tx, err := e.router.SwapExactTokensForTokens(ctx, call)
		if err != nil {
			return nil, err
		}
		return &sentTx{hash: tx.Hash, gasLimit: tx.GasLimit, gasPrice: tx.GasPrice}, nil
	})
	if err != nil {
		return common.Hash{}, e.fail(ctx, span, params, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s -> %s", params.TokenIn.Hex(), params.TokenOut.Hex()))))
	}

	analytics := &domain.TradeAnalytics{
		TxHash:      sent.hash,
		Timestamp:   e.now(),
		TokenIn:     params.TokenIn,
		TokenOut:    params.TokenOut,
		AmountIn:    new(big.Int).Set(params.AmountIn),
		AmountOut:   new(big.Int).Set(est.ExpectedOutput),
		PriceImpact: est.PriceImpact,
		GasCost:     sent.gasCost(),
		Route:       append([]common.Address(nil), est.Path.Tokens...),
		Status:      domain.StatusPending,
	}

	if err := e.tracker.Track(ctx, sent.hash, analytics); err != nil {
		// The transaction is already broadcast; report the hash regardless.
		e.logger.Error(ctx, "failed to track transaction", "tx_hash", sent.hash.Hex(), "error", err)
		span.AddEvent("tracking failed")
	}

	e.metrics.submitted.Add(ctx, 1)
	e.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	e.events.Emit(events.SwapCompleted, domain.SwapCompletedEvent{
		TxHash:    sent.hash,
		Analytics: analytics.Clone(),
		Timestamp: e.now(),
	})

	e.logger.Info(ctx, "swap submitted",
		"tx_hash", sent.hash.Hex(),
		"hops", est.Path.Hops(),
		"expected_output", est.ExpectedOutput.String(),
		"minimum_output", est.MinimumOutput.String(),
	)

	span.SetAttributes(attribute.String("tx_hash", sent.hash.Hex()))
	span.SetStatus(codes.Ok, "submitted")
	return sent.hash, nil
}

func (e *Engine) fail(ctx context.Context, span trace.Span, params domain.SwapParams, err error) error {
	e.metrics.failed.Add(ctx, 1)
	span.RecordError(err)
	span.SetStatus(codes.Error, "swap failed")

	e.logger.Warn(ctx, "swap failed", "error", err)
	e.events.Emit(events.SwapFailed, domain.SwapFailedEvent{
		Err:       err,
		Error:     err.Error(),
		Params:    params,
		Timestamp: e.now(),
	})
	return err
}

type sentTx struct {
	hash     common.Hash
	gasLimit uint64
	gasPrice *big.Int
}

func (s *sentTx) gasCost() *big.Int {
	if s.gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(s.gasLimit), s.gasPrice)
}

// IsResubmittable reports whether a submission error is worth another
// attempt: stale nonces and gas pricing or estimation failures.
func IsResubmittable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "insufficient funds") {
		return false
	}
	for _, s := range []string{"nonce", "underpriced", "gas"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
