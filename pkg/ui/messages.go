// Package ui provides the Bubble Tea dashboard for the swap router.
package ui

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message types for TUI updates

// SwapMsg is sent on every swap lifecycle event.
type SwapMsg struct {
	Stage     string // "started", "completed", "failed"
	Pair      string
	AmountIn  string
	Detail    string
	TxHash    string
	Timestamp time.Time
}

// TransactionMsg is sent when the monitor moves a transaction.
type TransactionMsg struct {
	Hash      string
	Status    string // "submitted", "completed", "failed", "timeout"
	Detail    string
	Timestamp time.Time
}

// MetricsMsg carries a system metrics snapshot.
type MetricsMsg struct {
	CacheHitRate       float64
	APILatencyMs       float64
	ErrorRate          float64
	ActiveTransactions int
	Timestamp          time.Time
}

// AlertMsg is sent when a price or system alert fires.
type AlertMsg struct {
	ID        string
	Kind      string
	Detail    string
	Timestamp time.Time
}

// HighRiskMsg is sent when the advisor grades a quick swap high risk.
type HighRiskMsg struct {
	Pair   string
	Amount string
	Reason string
}

// PriceUpdateMsg is sent when a reference price is observed.
type PriceUpdateMsg struct {
	Token     string
	Price     decimal.Decimal
	Source    string
	Timestamp time.Time
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "ethereum", "binance", "modules"
	Status  string // "connecting", "connected", "done", "failed"
	Message string
}
