package ui

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerting "github.com/fd1az/swap-router/business/alerting/domain"
	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	monitor "github.com/fd1az/swap-router/business/monitor/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/events"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func testTokens(t *testing.T) *asset.Registry {
	t.Helper()
	reg := asset.NewChainRegistry(31337)
	require.NoError(t, reg.RegisterTokens([]asset.TokenSpec{
		{Symbol: "WETH", Name: "Wrapped Ether", Address: weth.Hex(), Decimals: 18},
		{Symbol: "USDC", Name: "USD Coin", Address: usdc.Hex(), Decimals: 6},
	}))
	return reg
}

func TestTranslate_Swaps(t *testing.T) {
	tokens := testTokens(t)
	params := swapdomain.SwapParams{
		TokenIn:  weth,
		TokenOut: usdc,
		AmountIn: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)),
	}

	msg := Translate(events.Event{Payload: swapdomain.SwapStartedEvent{Params: params}}, tokens)
	assert.Equal(t, SwapMsg{Stage: "started", Pair: "WETH/USDC", AmountIn: "1.5 WETH"}, msg)

	msg = Translate(events.Event{Payload: swapdomain.SwapFailedEvent{Params: params, Error: "boom", Err: errors.New("boom")}}, tokens)
	failed, ok := msg.(SwapMsg)
	require.True(t, ok)
	assert.Equal(t, "failed", failed.Stage)
	assert.Equal(t, "boom", failed.Detail)

	msg = Translate(events.Event{Payload: swapdomain.SwapCompletedEvent{
		TxHash: common.HexToHash("0x01"),
		Analytics: &swapdomain.TradeAnalytics{
			TokenIn:   weth,
			TokenOut:  usdc,
			AmountIn:  params.AmountIn,
			AmountOut: big.NewInt(2_950_000_000),
		},
	}}, tokens)
	done, ok := msg.(SwapMsg)
	require.True(t, ok)
	assert.Equal(t, "completed", done.Stage)
	assert.Equal(t, "expect 2950 USDC", done.Detail)
}

func TestTranslate_TransactionsMetricsAlerts(t *testing.T) {
	tokens := testTokens(t)
	hash := common.HexToHash("0xabc")

	msg := Translate(events.Event{Payload: monitor.TransactionCompletedEvent{
		Hash:    hash,
		Receipt: &chaindomain.Receipt{BlockNumber: 100, GasUsed: 21000},
	}}, tokens)
	assert.Equal(t, "block 100, gas 21000", msg.(TransactionMsg).Detail)

	msg = Translate(events.Event{Payload: monitor.TransactionTimeoutEvent{Hash: hash, Elapsed: 5 * time.Minute}}, tokens)
	assert.Equal(t, "timeout", msg.(TransactionMsg).Status)

	msg = Translate(events.Event{Payload: alerting.MetricsCollectedEvent{Metrics: alerting.SystemMetrics{
		CacheHitRate:       75,
		APILatency:         12,
		ActiveTransactions: 2,
	}}}, tokens)
	assert.Equal(t, 75.0, msg.(MetricsMsg).CacheHitRate)
	assert.Equal(t, 2, msg.(MetricsMsg).ActiveTransactions)

	msg = Translate(events.Event{Payload: alerting.AlertTriggeredEvent{
		ID:    "price_alert_1",
		Kind:  alerting.KindPrice,
		Price: &alerting.PriceObservation{Token: "ETH", Price: decimal.NewFromInt(2001), Source: "binance"},
	}}, tokens)
	assert.Equal(t, "ETH at 2001 (binance)", msg.(AlertMsg).Detail)

	assert.Nil(t, Translate(events.Event{Name: events.CacheHit, Payload: "ignored"}, tokens))
}
