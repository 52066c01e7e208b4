// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/chain/domain"
)

// ContractCaller executes read-only contract calls against the latest block.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// TransactionSender signs and broadcasts transactions from the configured account.
type TransactionSender interface {
	SendTransaction(ctx context.Context, req domain.TxRequest) (*domain.SentTransaction, error)

	// Account returns the signing address, or the zero address when no key is configured.
	Account() common.Address
}

// ReceiptReader reports a transaction's inclusion state. A transaction the
// node does not know yet is reported as pending, not as an error.
type ReceiptReader interface {
	Receipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}

// LivenessProbe measures the round trip of a trivial node request.
type LivenessProbe interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// TokenReader reads ERC20 state.
type TokenReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// GasOracle provides the current gas price.
type GasOracle interface {
	GasPrice(ctx context.Context) (*domain.GasPrice, error)
}
