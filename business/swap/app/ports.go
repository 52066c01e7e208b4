// Package app contains the quote estimator, the execution engine and their ports.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	routing "github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/business/swap/domain"
)

// PathFinder selects the best route for an amount.
type PathFinder interface {
	FindBestPath(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, maxHops int) (*routing.SwapPath, error)
}

// RouterCall is one swapExactTokensForTokens invocation.
type RouterCall struct {
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []common.Address
	Recipient    common.Address
	Deadline     time.Time
}

// Router submits swaps to the on-chain router contract.
type Router interface {
	SwapExactTokensForTokens(ctx context.Context, call RouterCall) (*chaindomain.SentTransaction, error)
}

// Tracker takes ownership of a submitted transaction until it is terminal.
type Tracker interface {
	Track(ctx context.Context, hash common.Hash, analytics *domain.TradeAnalytics) error
}

// AnalyticsStore persists trade analytics for aggregation.
type AnalyticsStore interface {
	Save(ctx context.Context, a *domain.TradeAnalytics) error

	// Range returns the records with timestamps in [from, to], newest first.
	Range(ctx context.Context, from, to time.Time) ([]*domain.TradeAnalytics, error)
}
