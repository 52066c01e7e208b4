// Package uniswap reads UniswapV2-style pairs and factories through the chain client.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/liquidity/app"
	"github.com/fd1az/swap-router/business/liquidity/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/liquidity/infra/uniswap"
	meterName  = "github.com/fd1az/swap-router/business/liquidity/infra/uniswap"
)

var _ app.PoolReader = (*PoolReader)(nil)

type readerMetrics struct {
	reads       metric.Int64Counter
	readErrors  metric.Int64Counter
	readLatency metric.Float64Histogram
}

// PoolReader snapshots pairs with getReserves, token0 and token1.
type PoolReader struct {
	caller     chainapp.ContractCaller
	pairABI    abi.ABI
	defaultFee uint32
	logger     logger.LoggerInterface
	now        func() time.Time

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewPoolReader creates a PoolReader. Pools without a fee() getter use defaultFeePPM.
func NewPoolReader(caller chainapp.ContractCaller, defaultFeePPM uint32, log logger.LoggerInterface) (*PoolReader, error) {
	parsed, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	r := &PoolReader{
		caller:     caller,
		pairABI:    parsed,
		defaultFee: defaultFeePPM,
		logger:     log,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return r, nil
}

func (r *PoolReader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.reads, err = meter.Int64Counter(
		"pool_reads_total",
		metric.WithDescription("Total pool snapshot reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"pool_read_errors_total",
		metric.WithDescription("Pool snapshot reads that failed"),
	)
	if err != nil {
		return err
	}

	r.metrics.readLatency, err = meter.Float64Histogram(
		"pool_read_latency_ms",
		metric.WithDescription("Pool snapshot latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// ReadPool reads the pair's tokens, reserves and fee.
func (r *PoolReader) ReadPool(ctx context.Context, address common.Address) (*domain.PoolInfo, error) {
	ctx, span := r.tracer.Start(ctx, "uniswap.read_pool",
		trace.WithAttributes(attribute.String("pool", address.Hex())),
	)
	defer span.End()

	start := time.Now()
	r.metrics.reads.Add(ctx, 1)

	info, err := r.readPool(ctx, address)

	r.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext(address.Hex()))
	}

	span.SetAttributes(
		attribute.String("reserve0", info.Reserve0.String()),
		attribute.String("reserve1", info.Reserve1.String()),
		attribute.Int("fee_ppm", int(info.FeePPM)),
	)
	span.SetStatus(codes.Ok, "read")
	return info, nil
}

func (r *PoolReader) readPool(ctx context.Context, address common.Address) (*domain.PoolInfo, error) {
	token0, err := r.callAddress(ctx, address, "token0")
	if err != nil {
		return nil, err
	}
	token1, err := r.callAddress(ctx, address, "token1")
	if err != nil {
		return nil, err
	}

	out, err := r.call(ctx, address, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("getReserves returned %d values", len(out))
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("getReserves returned %T, %T", out[0], out[1])
	}

	return &domain.PoolInfo{
		Address:        address,
		Token0:         token0,
		Token1:         token1,
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		FeePPM:         r.readFee(ctx, address),
		LastUpdateTime: r.now(),
	}, nil
}

// readFee returns the pool's fee() or the default when the pool has none.
func (r *PoolReader) readFee(ctx context.Context, address common.Address) uint32 {
	out, err := r.call(ctx, address, "fee")
	if err != nil || len(out) != 1 {
		return r.defaultFee
	}
	fee, ok := out[0].(*big.Int)
	if !ok || !fee.IsUint64() || fee.Uint64() >= domain.FeeDenominator {
		return r.defaultFee
	}
	return uint32(fee.Uint64())
}

func (r *PoolReader) callAddress(ctx context.Context, address common.Address, method string) (common.Address, error) {
	out, err := r.call(ctx, address, method)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s returned %d values", method, len(out))
	}
	a, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s returned %T", method, out[0])
	}
	return a, nil
}

func (r *PoolReader) call(ctx context.Context, address common.Address, method string) ([]interface{}, error) {
	data, err := r.pairABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	result, err := r.caller.CallContract(ctx, address, data)
	if err != nil {
		return nil, err
	}

	out, err := r.pairABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return out, nil
}
