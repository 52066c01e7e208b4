// Package domain contains tracked transaction state and lifecycle events.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
)

// TransactionState is the monitor's view of one submitted transaction.
type TransactionState struct {
	Hash        common.Hash                `json:"hash"`
	Status      swapdomain.TradeStatus     `json:"status"`
	SubmittedAt time.Time                  `json:"submittedAt"`
	TerminalAt  time.Time                  `json:"terminalAt,omitzero"`
	RetryCount  int                        `json:"retryCount"` // consecutive failed polls
	LastError   string                     `json:"lastError,omitempty"`
	Receipt     *chaindomain.Receipt       `json:"receipt,omitempty"`
	Analytics   *swapdomain.TradeAnalytics `json:"analytics"`
}

// Clone returns a copy that shares nothing mutable with s.
func (s *TransactionState) Clone() *TransactionState {
	cp := *s
	if s.Analytics != nil {
		cp.Analytics = s.Analytics.Clone()
	}
	if s.Receipt != nil {
		r := *s.Receipt
		cp.Receipt = &r
	}
	return &cp
}

// TransactionSubmittedEvent is emitted when tracking starts.
type TransactionSubmittedEvent struct {
	Hash      common.Hash                `json:"hash"`
	Analytics *swapdomain.TradeAnalytics `json:"analytics"`
}

// TransactionCompletedEvent is emitted when the chain accepts the transaction.
type TransactionCompletedEvent struct {
	Hash      common.Hash                `json:"hash"`
	Receipt   *chaindomain.Receipt       `json:"receipt"`
	Analytics *swapdomain.TradeAnalytics `json:"analytics"`
}

// TransactionFailedEvent is emitted on a rejected receipt or repeated poll failures.
type TransactionFailedEvent struct {
	Hash      common.Hash                `json:"hash"`
	Error     string                     `json:"error"`
	Analytics *swapdomain.TradeAnalytics `json:"analytics"`
}

// TransactionTimeoutEvent is emitted when no terminal receipt arrived in time.
type TransactionTimeoutEvent struct {
	Hash      common.Hash                `json:"hash"`
	Elapsed   time.Duration              `json:"elapsed"`
	Analytics *swapdomain.TradeAnalytics `json:"analytics"`
}
