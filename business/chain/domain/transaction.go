package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest describes a contract call to sign and broadcast. A zero GasLimit
// asks the node for an estimate; a nil GasPrice uses the gas oracle.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
}

// SentTransaction is a broadcast transaction.
type SentTransaction struct {
	Hash     common.Hash
	From     common.Address
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
}

// ReceiptStatus is the inclusion state of a transaction.
type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptAccepted ReceiptStatus = "accepted"
	ReceiptRejected ReceiptStatus = "rejected"
)

// Receipt is the chain's verdict on a transaction.
type Receipt struct {
	Hash              common.Hash   `json:"hash"`
	Status            ReceiptStatus `json:"status"`
	BlockNumber       uint64        `json:"blockNumber,omitempty"`
	GasUsed           uint64        `json:"gasUsed,omitempty"`
	EffectiveGasPrice *big.Int      `json:"effectiveGasPrice,omitempty"`
	RevertReason      string        `json:"revertReason,omitempty"`
}

// PendingReceipt is returned while a transaction is not yet included.
func PendingReceipt(hash common.Hash) *Receipt {
	return &Receipt{Hash: hash, Status: ReceiptPending}
}
