// Package domain contains the result types of the trading facade.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	advisory "github.com/fd1az/swap-router/business/advisory/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
)

// Quote is an estimate expressed in token symbols and human amounts.
type Quote struct {
	SymbolIn       string                   `json:"symbolIn"`
	SymbolOut      string                   `json:"symbolOut"`
	AmountIn       string                   `json:"amountIn"`
	ExpectedOutput string                   `json:"expectedOutput"`
	MinimumOutput  string                   `json:"minimumOutput"`
	Route          []string                 `json:"route"`
	Estimate       *swapdomain.SwapEstimate `json:"estimate"`
	Params         swapdomain.SwapParams    `json:"params"`
}

// TradeResult is the outcome of a submitted quick swap.
type TradeResult struct {
	TxHash     common.Hash              `json:"txHash"`
	Quote      Quote                    `json:"quote"`
	Assessment advisory.TradeAssessment `json:"assessment"`
}

// HighRiskTradeEvent is emitted before a swap the advisor graded high risk
// is submitted.
type HighRiskTradeEvent struct {
	Account    common.Address           `json:"account"`
	Quote      Quote                    `json:"quote"`
	Assessment advisory.TradeAssessment `json:"assessment"`
	Timestamp  time.Time                `json:"timestamp"`
}

// Holding is one token balance.
type Holding struct {
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
	Raw     *big.Int       `json:"raw"`
}

// Portfolio lists the non-zero balances of an owner with advice.
type Portfolio struct {
	Owner    common.Address  `json:"owner"`
	Holdings []Holding       `json:"holdings"`
	Advice   advisory.Advice `json:"advice"`
}
