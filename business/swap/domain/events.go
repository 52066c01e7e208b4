package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SwapStartedEvent is emitted once a fresh estimate exists, before submission.
type SwapStartedEvent struct {
	Params    SwapParams    `json:"params"`
	Estimate  *SwapEstimate `json:"estimate"`
	Timestamp time.Time     `json:"timestamp"`
}

// SwapCompletedEvent is emitted after the transaction was broadcast.
type SwapCompletedEvent struct {
	TxHash    common.Hash     `json:"txHash"`
	Analytics *TradeAnalytics `json:"analytics"`
	Timestamp time.Time       `json:"timestamp"`
}

// SwapFailedEvent carries the original error of a failed swap.
type SwapFailedEvent struct {
	Err       error      `json:"-"`
	Error     string     `json:"error"`
	Params    SwapParams `json:"params"`
	Timestamp time.Time  `json:"timestamp"`
}
