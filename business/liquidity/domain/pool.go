// Package domain contains the pool and liquidity graph types.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FeeDenominator is the scale of FeePPM: 3000 means 0.3%.
const FeeDenominator = 1_000_000

// PoolInfo is a snapshot of a constant-product pool.
type PoolInfo struct {
	Address        common.Address `json:"address"`
	Token0         common.Address `json:"token0"`
	Token1         common.Address `json:"token1"`
	Reserve0       *big.Int       `json:"reserve0"`
	Reserve1       *big.Int       `json:"reserve1"`
	FeePPM         uint32         `json:"feePpm"`
	LastUpdateTime time.Time      `json:"lastUpdateTime"`
}

// Has reports whether token is one side of the pool.
func (p *PoolInfo) Has(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// Other returns the token on the opposite side of token.
func (p *PoolInfo) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	default:
		return common.Address{}, false
	}
}

// Reserves returns (reserveIn, reserveOut) for a swap selling tokenIn.
func (p *PoolInfo) Reserves(tokenIn common.Address) (*big.Int, *big.Int) {
	if tokenIn == p.Token0 {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

// FeeFraction returns the fee as a fraction of one.
func (p *PoolInfo) FeeFraction() float64 {
	return float64(p.FeePPM) / FeeDenominator
}
