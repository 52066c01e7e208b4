// Package domain contains swap path types and constant-product hop math.
package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	liquidity "github.com/fd1az/swap-router/business/liquidity/domain"
)

// SwapPath is a simulated route. Amounts[0] is the input amount and
// Amounts[i+1] is the output of hop i.
type SwapPath struct {
	Tokens         []common.Address `json:"tokens"`
	Pools          []common.Address `json:"pools"`
	Fees           []uint32         `json:"fees"`
	Amounts        []*big.Int       `json:"amounts"`
	ExpectedOutput *big.Int         `json:"expectedOutput"`
	PriceImpact    float64          `json:"priceImpact"` // percent, summed over hops
}

// Hops returns the number of pools traversed.
func (p *SwapPath) Hops() int {
	return len(p.Pools)
}

// TokenIn returns the first token of the path.
func (p *SwapPath) TokenIn() common.Address {
	return p.Tokens[0]
}

// TokenOut returns the last token of the path.
func (p *SwapPath) TokenOut() common.Address {
	return p.Tokens[len(p.Tokens)-1]
}

// Key identifies the route by its token sequence.
func (p *SwapPath) Key() string {
	return RouteKey(p.Tokens)
}

// RouteKey joins lowercase token addresses with "->".
func RouteKey(tokens []common.Address) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = strings.ToLower(t.Hex())
	}
	return strings.Join(parts, "->")
}

// HopOutput simulates selling amountIn into a constant-product pool:
//
//	eff = amountIn * (1e6 - feePPM) / 1e6
//	out = eff * reserveOut / (reserveIn + eff)
//
// with floor division, and returns the hop's price impact in percent
// (amountIn * 100 / reserveIn). ok is false for pools with an empty side.
func HopOutput(amountIn, reserveIn, reserveOut *big.Int, feePPM uint32) (out *big.Int, impact float64, ok bool) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, 0, false
	}
	if feePPM >= liquidity.FeeDenominator {
		return nil, 0, false
	}

	denom := big.NewInt(liquidity.FeeDenominator)
	eff := new(big.Int).Mul(amountIn, big.NewInt(int64(liquidity.FeeDenominator-feePPM)))
	eff.Quo(eff, denom)

	num := new(big.Int).Mul(eff, reserveOut)
	out = num.Quo(num, new(big.Int).Add(reserveIn, eff))

	pct := new(big.Float).SetInt(new(big.Int).Mul(amountIn, big.NewInt(100)))
	pct.Quo(pct, new(big.Float).SetInt(reserveIn))
	impact, _ = pct.Float64()

	return out, impact, true
}
