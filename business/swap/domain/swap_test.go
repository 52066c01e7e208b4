package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/swap-router/internal/apperror"
)

func TestApplySlippage(t *testing.T) {
	expected := big.NewInt(19743160687)
	ceiling := decimal.RequireFromString("0.05")

	tests := []struct {
		name        string
		tolerance   string
		wantMin     string
		wantApplied string
	}{
		{"half percent", "0.005", "19644444883", "0.005"},
		{"zero keeps expected", "0", "19743160687", "0"},
		{"clamped to ceiling", "0.2", "18756002652", "0.05"},
		{"at ceiling", "0.05", "18756002652", "0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minOut, applied := ApplySlippage(expected, decimal.RequireFromString(tt.tolerance), ceiling)
			assert.Equal(t, tt.wantMin, minOut.String())
			assert.True(t, applied.Equal(decimal.RequireFromString(tt.wantApplied)), "applied %s", applied)
			assert.LessOrEqual(t, minOut.Cmp(expected), 0)
		})
	}
}

func TestGasEstimate(t *testing.T) {
	tests := []struct {
		hops int
		want uint64
	}{
		{0, 110_000},
		{1, 110_000},
		{2, 165_000},
		{3, 220_000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GasEstimate(100_000, 50_000, 10, tt.hops), "hops=%d", tt.hops)
	}
}

func TestSwapParams_Validate(t *testing.T) {
	assert.NoError(t, SwapParams{SlippageTolerance: decimal.RequireFromString("0.01")}.Validate())

	err := SwapParams{SlippageTolerance: decimal.RequireFromString("-0.01")}.Validate()
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidSwapParams))

	err = SwapParams{Deadline: -time.Second}.Validate()
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidSwapParams))
}

func TestTradeAnalytics_FinishDoesNotMutate(t *testing.T) {
	submitted := time.Unix(1_700_000_000, 0)
	a := &TradeAnalytics{
		TxHash:    common.HexToHash("0x01"),
		Timestamp: submitted,
		AmountIn:  big.NewInt(100),
		AmountOut: big.NewInt(250),
		GasCost:   big.NewInt(7),
		Route:     []common.Address{common.HexToAddress("0xA"), common.HexToAddress("0xB")},
		Status:    StatusPending,
	}

	done := a.Finish(StatusCompleted, submitted.Add(42*time.Second))

	assert.Equal(t, StatusPending, a.Status)
	assert.Zero(t, a.ExecutionTime)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 42*time.Second, done.ExecutionTime)
	assert.True(t, done.Status.IsTerminal())
	assert.False(t, a.Status.IsTerminal())

	done.AmountIn.SetInt64(1)
	done.Route[0] = common.Address{}
	assert.Equal(t, int64(100), a.AmountIn.Int64())
	assert.Equal(t, common.HexToAddress("0xA"), a.Route[0])

	assert.InDelta(t, 2.5, a.OutputRatio(), 1e-12)
	assert.Equal(t, a.RouteKey(), (&TradeAnalytics{Route: a.Route}).RouteKey())
}

func TestTradeAnalytics_OutputRatioUndefined(t *testing.T) {
	assert.Zero(t, (&TradeAnalytics{}).OutputRatio())
	assert.Zero(t, (&TradeAnalytics{AmountIn: big.NewInt(0), AmountOut: big.NewInt(5)}).OutputRatio())
}
