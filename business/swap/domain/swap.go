// Package domain contains swap requests, estimates and trade analytics.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	routing "github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
)

// SwapParams is a swap request in raw token units.
type SwapParams struct {
	TokenIn           common.Address  `json:"tokenIn"`
	TokenOut          common.Address  `json:"tokenOut"`
	AmountIn          *big.Int        `json:"amountIn"`
	SlippageTolerance decimal.Decimal `json:"slippageTolerance"` // fraction, 0.005 = 0.5%
	Deadline          time.Duration   `json:"deadline"`
	MaxHops           int             `json:"maxHops"`
}

// Validate checks the fields the estimator does not delegate to the path finder.
func (p SwapParams) Validate() error {
	if p.SlippageTolerance.IsNegative() {
		return apperror.New(apperror.CodeInvalidSwapParams, apperror.WithContext("slippage tolerance cannot be negative"))
	}
	if p.Deadline < 0 {
		return apperror.New(apperror.CodeInvalidSwapParams, apperror.WithContext("deadline cannot be negative"))
	}
	return nil
}

// SwapEstimate is a quote derived from one path search. It is never mutated;
// every request derives a new one.
type SwapEstimate struct {
	ExpectedOutput  *big.Int          `json:"expectedOutput"`
	MinimumOutput   *big.Int          `json:"minimumOutput"`
	PriceImpact     float64           `json:"priceImpact"`
	Path            *routing.SwapPath `json:"path"`
	GasEstimate     uint64            `json:"gasEstimate"`
	AppliedSlippage decimal.Decimal   `json:"appliedSlippage"`
}

// ApplySlippage returns floor(expected * (1 - min(tolerance, ceiling))) and the
// tolerance actually applied.
func ApplySlippage(expected *big.Int, tolerance, ceiling decimal.Decimal) (*big.Int, decimal.Decimal) {
	applied := tolerance
	if applied.GreaterThan(ceiling) {
		applied = ceiling
	}
	if applied.IsNegative() {
		applied = decimal.Zero
	}

	minOut := decimal.NewFromBigInt(expected, 0).Mul(decimal.NewFromInt(1).Sub(applied)).Floor()
	return minOut.BigInt(), applied
}

// GasEstimate returns (base + (hops-1) * perHop) inflated by bufferPercent.
func GasEstimate(base, perHop, bufferPercent uint64, hops int) uint64 {
	if hops < 1 {
		hops = 1
	}
	gas := base + uint64(hops-1)*perHop
	return gas * (100 + bufferPercent) / 100
}
