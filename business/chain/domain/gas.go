// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
	"time"
)

var weiPerGwei = big.NewFloat(1e9)

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Gwei      float64
	Capped    bool
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int, at time.Time) *GasPrice {
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerGwei).Float64()

	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Gwei:      gwei,
		Timestamp: at,
	}
}

// GweiToWei converts a gwei amount to wei, truncating fractions of a wei.
func GweiToWei(gwei float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), weiPerGwei).Int(nil)
	return wei
}

// GasCost returns gasLimit * gasPrice in wei.
func GasCost(gasLimit uint64, gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
}
