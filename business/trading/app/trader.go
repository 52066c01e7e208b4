// Package app contains the trading facade over routing, execution and advice.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	advisory "github.com/fd1az/swap-router/business/advisory/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/business/trading/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

const tracerName = "github.com/fd1az/swap-router/business/trading/app"

// Quoter estimates swaps.
type Quoter interface {
	EstimateSwap(ctx context.Context, params swapdomain.SwapParams) (*swapdomain.SwapEstimate, error)
}

// Executor submits swaps.
type Executor interface {
	ExecuteSwap(ctx context.Context, account common.Address, params swapdomain.SwapParams) (common.Hash, error)
}

// Advisor grades trades and recommends portfolio actions.
type Advisor interface {
	AssessTrade(ctx context.Context, trade any) (advisory.TradeAssessment, error)
	Recommend(ctx context.Context, payload any, instruction string) (advisory.Advice, error)
}

// BalanceReader reads token balances.
type BalanceReader interface {
	Balances(ctx context.Context, owner common.Address, tokens []common.Address) map[common.Address]*big.Int
}

// Config holds the quick swap defaults.
type Config struct {
	Slippage decimal.Decimal
	Deadline time.Duration
	MaxHops  int
}

// DefaultConfig uses 0.5% slippage and a 300s deadline.
func DefaultConfig() Config {
	return Config{
		Slippage: decimal.RequireFromString("0.005"),
		Deadline: 300 * time.Second,
	}
}

// Trader exposes symbol-level quick swaps, quotes and portfolio views.
type Trader struct {
	config   Config
	tokens   *asset.Registry
	quoter   Quoter
	executor Executor
	advisor  Advisor
	balances BalanceReader
	events   *events.Registry
	logger   logger.LoggerInterface
	now      func() time.Time
	tracer   trace.Tracer
}

// NewTrader creates a Trader.
func NewTrader(cfg Config, tokens *asset.Registry, quoter Quoter, executor Executor, advisor Advisor, balances BalanceReader, hub *events.Registry, log logger.LoggerInterface) *Trader {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultConfig().Deadline
	}
	return &Trader{
		config:   cfg,
		tokens:   tokens,
		quoter:   quoter,
		executor: executor,
		advisor:  advisor,
		balances: balances,
		events:   hub,
		logger:   log,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
}

// WithClock replaces time.Now.
func (t *Trader) WithClock(now func() time.Time) *Trader {
	t.now = now
	return t
}

// Quote estimates swapping amount of symbolIn into symbolOut.
func (t *Trader) Quote(ctx context.Context, symbolIn, symbolOut, amount string) (domain.Quote, error) {
	ctx, span := t.tracer.Start(ctx, "trader.quote",
		trace.WithAttributes(
			attribute.String("symbol_in", symbolIn),
			attribute.String("symbol_out", symbolOut),
		),
	)
	defer span.End()

	q, err := t.quote(ctx, symbolIn, symbolOut, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
	}
	return q, err
}

func (t *Trader) quote(ctx context.Context, symbolIn, symbolOut, amount string) (domain.Quote, error) {
	in, err := t.tokens.Resolve(symbolIn)
	if err != nil {
		return domain.Quote{}, err
	}
	out, err := t.tokens.Resolve(symbolOut)
	if err != nil {
		return domain.Quote{}, err
	}

	amt, err := asset.ParseString(in, amount)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeInvalidSwapParams, apperror.WithCause(err), apperror.WithContext("amount "+amount))
	}

	params := swapdomain.SwapParams{
		TokenIn:           in.Address(),
		TokenOut:          out.Address(),
		AmountIn:          amt.Raw(),
		SlippageTolerance: t.config.Slippage,
		Deadline:          t.config.Deadline,
		MaxHops:           t.config.MaxHops,
	}

	est, err := t.quoter.EstimateSwap(ctx, params)
	if err != nil {
		return domain.Quote{}, err
	}

	route := make([]string, 0, len(est.Path.Tokens))
	for _, addr := range est.Path.Tokens {
		route = append(route, t.tokens.Label(addr))
	}

	return domain.Quote{
		SymbolIn:       in.Symbol(),
		SymbolOut:      out.Symbol(),
		AmountIn:       asset.FormatRaw(in, amt.Raw()),
		ExpectedOutput: asset.FormatRaw(out, est.ExpectedOutput),
		MinimumOutput:  asset.FormatRaw(out, est.MinimumOutput),
		Route:          route,
		Estimate:       est,
		Params:         params,
	}, nil
}

// QuickSwap quotes, asks the advisor for a risk grade, emits highRiskTrade
// when the grade is high and submits the swap. An unavailable advisor grades
// the trade unknown and does not block it.
func (t *Trader) QuickSwap(ctx context.Context, account common.Address, symbolIn, symbolOut, amount string) (domain.TradeResult, error) {
	ctx, span := t.tracer.Start(ctx, "trader.quick_swap",
		trace.WithAttributes(
			attribute.String("symbol_in", symbolIn),
			attribute.String("symbol_out", symbolOut),
			attribute.String("amount", amount),
		),
	)
	defer span.End()

	q, err := t.quote(ctx, symbolIn, symbolOut, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return domain.TradeResult{}, err
	}

	assessment, err := t.advisor.AssessTrade(ctx, assessmentPayload(q))
	if err != nil {
		t.logger.Warn(ctx, "trade assessment unavailable", "error", err)
		assessment = advisory.TradeAssessment{RiskLevel: advisory.RiskUnknown}
	}
	span.SetAttributes(attribute.String("risk_level", string(assessment.RiskLevel)))

	if assessment.IsHighRisk() {
		t.logger.Warn(ctx, "high risk trade",
			"symbol_in", q.SymbolIn,
			"symbol_out", q.SymbolOut,
			"amount_in", q.AmountIn,
			"reason", assessment.Reason,
		)
		t.events.Emit(events.HighRiskTrade, domain.HighRiskTradeEvent{
			Account:    account,
			Quote:      q,
			Assessment: assessment,
			Timestamp:  t.now(),
		})
	}

	hash, err := t.executor.ExecuteSwap(ctx, account, q.Params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap failed")
		return domain.TradeResult{Quote: q, Assessment: assessment}, err
	}

	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	return domain.TradeResult{TxHash: hash, Quote: q, Assessment: assessment}, nil
}

func assessmentPayload(q domain.Quote) map[string]any {
	return map[string]any{
		"tokenIn":        q.SymbolIn,
		"tokenOut":       q.SymbolOut,
		"amountIn":       q.AmountIn,
		"expectedOutput": q.ExpectedOutput,
		"minimumOutput":  q.MinimumOutput,
		"route":          q.Route,
		"priceImpact":    q.Estimate.PriceImpact,
		"gasEstimate":    q.Estimate.GasEstimate,
	}
}

// Portfolio reads owner's balance of every registered token and asks the
// advisor for recommendations. Advice failures leave Advice empty.
func (t *Trader) Portfolio(ctx context.Context, owner common.Address) (domain.Portfolio, error) {
	ctx, span := t.tracer.Start(ctx, "trader.portfolio",
		trace.WithAttributes(attribute.String("owner", owner.Hex())),
	)
	defer span.End()

	if owner == (common.Address{}) {
		err := apperror.New(apperror.CodeInvalidInput, apperror.WithContext("owner address is required"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no owner")
		return domain.Portfolio{}, err
	}

	tokens := t.tokens.Tokens()
	addrs := make([]common.Address, len(tokens))
	for i, a := range tokens {
		addrs[i] = a.Address()
	}
	balances := t.balances.Balances(ctx, owner, addrs)

	p := domain.Portfolio{Owner: owner, Holdings: []domain.Holding{}}
	summary := make(map[string]string)
	for _, a := range tokens {
		bal, ok := balances[a.Address()]
		if !ok || bal.Sign() == 0 {
			continue
		}
		h := domain.Holding{
			Symbol:  a.Symbol(),
			Address: a.Address(),
			Balance: asset.FormatRaw(a, bal),
			Raw:     bal,
		}
		p.Holdings = append(p.Holdings, h)
		summary[h.Symbol] = h.Balance
	}
	span.SetAttributes(attribute.Int("holdings", len(p.Holdings)))

	advice, err := t.advisor.Recommend(ctx, summary, "Please analyze this portfolio and provide investment advice")
	if err != nil {
		t.logger.Warn(ctx, "portfolio advice unavailable", "error", err)
		return p, nil
	}
	p.Advice = advice
	return p, nil
}
