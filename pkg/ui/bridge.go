package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	alerting "github.com/fd1az/swap-router/business/alerting/domain"
	monitor "github.com/fd1az/swap-router/business/monitor/domain"
	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
	trading "github.com/fd1az/swap-router/business/trading/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/events"
)

// Bridge forwards hub events to the running program. The returned func
// unsubscribes.
func Bridge(hub *events.Registry, tokens *asset.Registry) func() {
	return hub.OnAny(func(ev events.Event) {
		if msg := Translate(ev, tokens); msg != nil {
			Send(msg)
		}
	})
}

// Translate maps a hub event to a TUI message. Events the dashboard does not
// show return nil.
func Translate(ev events.Event, tokens *asset.Registry) tea.Msg {
	switch p := ev.Payload.(type) {
	case swapdomain.SwapStartedEvent:
		return SwapMsg{
			Stage:     "started",
			Pair:      pair(tokens, p.Params),
			AmountIn:  amount(tokens, p.Params),
			Timestamp: p.Timestamp,
		}
	case swapdomain.SwapCompletedEvent:
		msg := SwapMsg{Stage: "completed", TxHash: p.TxHash.Hex(), Timestamp: p.Timestamp}
		if a := p.Analytics; a != nil {
			msg.Pair = tokens.Label(a.TokenIn) + "/" + tokens.Label(a.TokenOut)
			if in, ok := tokens.ByAddress(a.TokenIn); ok && a.AmountIn != nil {
				msg.AmountIn = asset.FormatRaw(in, a.AmountIn)
			}
			if out, ok := tokens.ByAddress(a.TokenOut); ok && a.AmountOut != nil {
				msg.Detail = "expect " + asset.FormatRaw(out, a.AmountOut)
			}
		}
		return msg
	case swapdomain.SwapFailedEvent:
		return SwapMsg{
			Stage:     "failed",
			Pair:      pair(tokens, p.Params),
			AmountIn:  amount(tokens, p.Params),
			Detail:    p.Error,
			Timestamp: p.Timestamp,
		}
	case monitor.TransactionSubmittedEvent:
		return TransactionMsg{Hash: p.Hash.Hex(), Status: "submitted", Timestamp: ev.Timestamp}
	case monitor.TransactionCompletedEvent:
		msg := TransactionMsg{Hash: p.Hash.Hex(), Status: "completed", Timestamp: ev.Timestamp}
		if p.Receipt != nil {
			msg.Detail = fmt.Sprintf("block %d, gas %d", p.Receipt.BlockNumber, p.Receipt.GasUsed)
		}
		return msg
	case monitor.TransactionFailedEvent:
		return TransactionMsg{Hash: p.Hash.Hex(), Status: "failed", Detail: p.Error, Timestamp: ev.Timestamp}
	case monitor.TransactionTimeoutEvent:
		return TransactionMsg{
			Hash:      p.Hash.Hex(),
			Status:    "timeout",
			Detail:    "after " + p.Elapsed.String(),
			Timestamp: ev.Timestamp,
		}
	case alerting.MetricsCollectedEvent:
		m := p.Metrics
		return MetricsMsg{
			CacheHitRate:       m.CacheHitRate,
			APILatencyMs:       m.APILatency,
			ErrorRate:          m.ErrorRate,
			ActiveTransactions: m.ActiveTransactions,
			Timestamp:          m.Timestamp,
		}
	case alerting.AlertTriggeredEvent:
		msg := AlertMsg{ID: p.ID, Kind: string(p.Kind), Timestamp: p.Timestamp}
		switch {
		case p.Price != nil:
			msg.Detail = fmt.Sprintf("%s at %s (%s)", p.Price.Token, p.Price.Price.String(), p.Price.Source)
		case p.Metrics != nil:
			msg.Detail = fmt.Sprintf("error rate %.1f%%, latency %.0fms", p.Metrics.ErrorRate, p.Metrics.APILatency)
		}
		return msg
	case trading.HighRiskTradeEvent:
		return HighRiskMsg{
			Pair:   p.Quote.SymbolIn + "/" + p.Quote.SymbolOut,
			Amount: p.Quote.AmountIn,
			Reason: p.Assessment.Reason,
		}
	}
	return nil
}

func pair(tokens *asset.Registry, p swapdomain.SwapParams) string {
	return tokens.Label(p.TokenIn) + "/" + tokens.Label(p.TokenOut)
}

func amount(tokens *asset.Registry, p swapdomain.SwapParams) string {
	if p.AmountIn == nil {
		return ""
	}
	if a, ok := tokens.ByAddress(p.TokenIn); ok {
		return asset.FormatRaw(a, p.AmountIn)
	}
	return p.AmountIn.String()
}
