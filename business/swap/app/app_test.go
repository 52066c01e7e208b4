package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	liquidity "github.com/fd1az/swap-router/business/liquidity/domain"
	routingapp "github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

var (
	eth  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func units(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

type graphOf []*liquidity.PoolInfo

func (g graphOf) Graph(context.Context) (*liquidity.Graph, error) {
	return liquidity.NewGraph(g, time.Unix(0, 0)), nil
}

func ethUsdcPool() *liquidity.PoolInfo {
	return &liquidity.PoolInfo{
		Address:  common.HexToAddress("0x01"),
		Token0:   eth,
		Token1:   usdc,
		Reserve0: units(1000, 18),
		Reserve1: units(2_000_000, 6),
		FeePPM:   3000,
	}
}

func newEstimator(t *testing.T, pools ...*liquidity.PoolInfo) *Estimator {
	t.Helper()
	finder, err := routingapp.NewPathFinder(graphOf(pools), 3, testLogger())
	require.NoError(t, err)
	return NewEstimator(DefaultEstimatorConfig(), finder, testLogger())
}

func scenarioParams(tolerance string) domain.SwapParams {
	return domain.SwapParams{
		TokenIn:           eth,
		TokenOut:          usdc,
		AmountIn:          units(10, 18),
		SlippageTolerance: decimal.RequireFromString(tolerance),
	}
}

func TestEstimator_EthUsdcScenario(t *testing.T) {
	e := newEstimator(t, ethUsdcPool())

	est, err := e.EstimateSwap(context.Background(), scenarioParams("0.005"))
	require.NoError(t, err)

	assert.Equal(t, "19743160687", est.ExpectedOutput.String())
	assert.Equal(t, "19644444883", est.MinimumOutput.String())
	assert.Equal(t, uint64(110_000), est.GasEstimate)
	assert.Equal(t, 1, est.Path.Hops())
	assert.InDelta(t, 1.0, est.PriceImpact, 1e-12)
}

func TestEstimator_ZeroToleranceAndClamp(t *testing.T) {
	e := newEstimator(t, ethUsdcPool())

	est, err := e.EstimateSwap(context.Background(), scenarioParams("0"))
	require.NoError(t, err)
	assert.Equal(t, est.ExpectedOutput, est.MinimumOutput)

	est, err = e.EstimateSwap(context.Background(), scenarioParams("0.5"))
	require.NoError(t, err)
	assert.True(t, est.AppliedSlippage.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, "18756002652", est.MinimumOutput.String())
}

func TestEstimator_TwoHopGas(t *testing.T) {
	e := newEstimator(t,
		&liquidity.PoolInfo{Address: common.HexToAddress("0x02"), Token0: eth, Token1: dai,
			Reserve0: units(1000, 18), Reserve1: units(2_000_000, 18), FeePPM: 3000},
		&liquidity.PoolInfo{Address: common.HexToAddress("0x03"), Token0: dai, Token1: usdc,
			Reserve0: units(10_000_000, 18), Reserve1: units(10_000_000, 6), FeePPM: 3000},
	)

	est, err := e.EstimateSwap(context.Background(), scenarioParams("0.01"))
	require.NoError(t, err)
	assert.Equal(t, 2, est.Path.Hops())
	assert.Equal(t, uint64(165_000), est.GasEstimate)
}

func TestEstimator_Errors(t *testing.T) {
	e := newEstimator(t, ethUsdcPool())

	_, err := e.EstimateSwap(context.Background(), scenarioParams("-0.1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidSwapParams))

	p := scenarioParams("0.01")
	p.TokenOut = dai
	_, err = e.EstimateSwap(context.Background(), p)
	assert.True(t, apperror.HasCode(err, apperror.CodeNoPathFound))
}

type fakeRouter struct {
	mu    sync.Mutex
	calls []RouterCall
	errs  []error
}

func (r *fakeRouter) SwapExactTokensForTokens(_ context.Context, call RouterCall) (*chaindomain.SentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return nil, err
	}
	return &chaindomain.SentTransaction{
		Hash:     common.HexToHash("0xabc"),
		GasLimit: 150_000,
		GasPrice: big.NewInt(20_000_000_000),
	}, nil
}

type fakeTracker struct {
	tracked map[common.Hash]*domain.TradeAnalytics
	err     error
}

func (f *fakeTracker) Track(_ context.Context, hash common.Hash, a *domain.TradeAnalytics) error {
	if f.tracked == nil {
		f.tracked = make(map[common.Hash]*domain.TradeAnalytics)
	}
	f.tracked[hash] = a
	return f.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

func newEngine(t *testing.T, router *fakeRouter, tracker *fakeTracker, pools ...*liquidity.PoolInfo) (*Engine, *recorder, time.Time) {
	t.Helper()
	hub := events.NewRegistry("test")
	rec := &recorder{}
	hub.OnAny(func(ev events.Event) {
		rec.mu.Lock()
		rec.events = append(rec.events, ev)
		rec.mu.Unlock()
	})

	cfg := EngineConfig{Retry: retry.Options{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}}
	e, err := NewEngine(cfg, newEstimator(t, pools...), router, tracker, hub, testLogger())
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	return e.WithClock(func() time.Time { return now }), rec, now
}

func TestEngine_ExecuteSwap(t *testing.T) {
	router := &fakeRouter{}
	tracker := &fakeTracker{}
	e, rec, now := newEngine(t, router, tracker, ethUsdcPool())
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")

	hash, err := e.ExecuteSwap(context.Background(), account, scenarioParams("0.005"))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xabc"), hash)

	assert.Equal(t, []string{events.SwapStarted, events.SwapCompleted}, rec.names())

	require.Len(t, router.calls, 1)
	call := router.calls[0]
	assert.Equal(t, "19644444883", call.AmountOutMin.String())
	assert.Equal(t, []common.Address{eth, usdc}, call.Path)
	assert.Equal(t, account, call.Recipient)
	assert.Equal(t, now.Add(300*time.Second), call.Deadline)

	a := tracker.tracked[hash]
	require.NotNil(t, a)
	assert.Equal(t, domain.StatusPending, a.Status)
	assert.Equal(t, "3000000000000000", a.GasCost.String())
	assert.Equal(t, "19743160687", a.AmountOut.String())
	assert.Equal(t, []common.Address{eth, usdc}, a.Route)
	assert.Equal(t, now, a.Timestamp)

	completed, ok := rec.events[1].Payload.(domain.SwapCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, hash, completed.TxHash)
	assert.Equal(t, domain.StatusPending, completed.Analytics.Status)
}

func TestEngine_RoutingErrorPropagatesVerbatim(t *testing.T) {
	router := &fakeRouter{}
	tracker := &fakeTracker{}
	e, rec, _ := newEngine(t, router, tracker, ethUsdcPool())

	p := scenarioParams("0.005")
	p.TokenOut = dai
	_, err := e.ExecuteSwap(context.Background(), common.Address{}, p)

	assert.True(t, apperror.HasCode(err, apperror.CodeNoPathFound))
	assert.False(t, apperror.HasCode(err, apperror.CodeSubmissionFailed))
	assert.Equal(t, []string{events.SwapFailed}, rec.names())
	assert.Empty(t, router.calls)
	assert.Empty(t, tracker.tracked)

	failed := rec.events[0].Payload.(domain.SwapFailedEvent)
	assert.Equal(t, err, failed.Err)
	assert.Equal(t, err.Error(), failed.Error)
}

func TestEngine_SubmissionFailureIsWrapped(t *testing.T) {
	reverted := errors.New("execution reverted: UniswapV2Router: EXPIRED")
	router := &fakeRouter{errs: []error{reverted}}
	tracker := &fakeTracker{}
	e, rec, _ := newEngine(t, router, tracker, ethUsdcPool())

	_, err := e.ExecuteSwap(context.Background(), common.Address{}, scenarioParams("0.005"))

	assert.True(t, apperror.HasCode(err, apperror.CodeSubmissionFailed))
	assert.ErrorIs(t, err, reverted)
	assert.Len(t, router.calls, 1, "reverts are not resubmitted")
	assert.Empty(t, tracker.tracked, "failed submissions never enter PENDING")
	assert.Equal(t, []string{events.SwapStarted, events.SwapFailed}, rec.names())
}

func TestEngine_RetriesNonceErrors(t *testing.T) {
	router := &fakeRouter{errs: []error{errors.New("nonce too low")}}
	tracker := &fakeTracker{}
	e, _, _ := newEngine(t, router, tracker, ethUsdcPool())

	hash, err := e.ExecuteSwap(context.Background(), common.Address{}, scenarioParams("0.005"))
	require.NoError(t, err)
	assert.Len(t, router.calls, 2)
	assert.Contains(t, tracker.tracked, hash)
}

func TestEngine_TrackerErrorStillReturnsHash(t *testing.T) {
	router := &fakeRouter{}
	tracker := &fakeTracker{err: errors.New("monitor stopped")}
	e, rec, _ := newEngine(t, router, tracker, ethUsdcPool())

	hash, err := e.ExecuteSwap(context.Background(), common.Address{}, scenarioParams("0.005"))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xabc"), hash)
	assert.Equal(t, []string{events.SwapStarted, events.SwapCompleted}, rec.names())
}

func TestIsResubmittable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{errors.New("nonce too low"), true},
		{errors.New("replacement transaction underpriced"), true},
		{errors.New("intrinsic gas too low"), true},
		{errors.New("insufficient funds for gas * price + value"), false},
		{errors.New("execution reverted"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsResubmittable(tt.err), "%v", tt.err)
	}
}
