package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	routing "github.com/fd1az/swap-router/business/routing/domain"
)

// TradeStatus is the lifecycle state of an executed swap.
type TradeStatus string

const (
	StatusPending   TradeStatus = "PENDING"
	StatusCompleted TradeStatus = "COMPLETED"
	StatusFailed    TradeStatus = "FAILED"
)

// IsTerminal reports whether the status is COMPLETED or FAILED.
func (s TradeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TradeAnalytics records one executed swap. It is created PENDING at
// submission and only the transaction monitor moves it to a terminal status.
type TradeAnalytics struct {
	TxHash        common.Hash      `json:"txHash"`
	Timestamp     time.Time        `json:"timestamp"`
	TokenIn       common.Address   `json:"tokenIn"`
	TokenOut      common.Address   `json:"tokenOut"`
	AmountIn      *big.Int         `json:"amountIn"`
	AmountOut     *big.Int         `json:"amountOut"`
	PriceImpact   float64          `json:"priceImpact"`
	GasCost       *big.Int         `json:"gasCost"`
	Route         []common.Address `json:"route"`
	Status        TradeStatus      `json:"status"`
	ExecutionTime time.Duration    `json:"executionTime"`
}

// RouteKey identifies the route the trade took.
func (a *TradeAnalytics) RouteKey() string {
	return routing.RouteKey(a.Route)
}

// Clone returns a deep copy.
func (a *TradeAnalytics) Clone() *TradeAnalytics {
	cp := *a
	cp.AmountIn = cloneInt(a.AmountIn)
	cp.AmountOut = cloneInt(a.AmountOut)
	cp.GasCost = cloneInt(a.GasCost)
	cp.Route = append([]common.Address(nil), a.Route...)
	return &cp
}

// Finish returns a copy moved to status with the execution time measured
// from submission to at.
func (a *TradeAnalytics) Finish(status TradeStatus, at time.Time) *TradeAnalytics {
	cp := a.Clone()
	cp.Status = status
	cp.ExecutionTime = at.Sub(a.Timestamp)
	return cp
}

// OutputRatio is amountOut / amountIn in raw units, 0 when undefined.
func (a *TradeAnalytics) OutputRatio() float64 {
	if a.AmountIn == nil || a.AmountIn.Sign() == 0 || a.AmountOut == nil {
		return 0
	}
	r, _ := new(big.Rat).SetFrac(a.AmountOut, a.AmountIn).Float64()
	return r
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
