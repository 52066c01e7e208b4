// Package binance streams best bid/ask prices from Binance as price observations.
package binance

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// WSRequest is a WebSocket control request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is the reply to a WSRequest.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent wraps every message on a combined stream.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerEvent is a best bid/ask update.
// Stream: <symbol>@bookTicker
type BookTickerEvent struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// MidPrice returns (bid + ask) / 2.
func (e *BookTickerEvent) MidPrice() (decimal.Decimal, error) {
	bid, err := decimal.NewFromString(e.BidPrice)
	if err != nil {
		return decimal.Zero, err
	}
	ask, err := decimal.NewFromString(e.AskPrice)
	if err != nil {
		return decimal.Zero, err
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
}

// BookTickerStream returns the bookTicker stream name for a symbol.
func BookTickerStream(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}

// DefaultQuoteAssets are stripped from pair symbols to find the priced token.
var DefaultQuoteAssets = []string{"USDC", "USDT", "FDUSD", "BUSD", "DAI", "USD"}

// BaseAsset maps a pair symbol such as ETHUSDC to its base token ETH. The
// first matching quote suffix wins; an unmatched symbol is returned as is.
func BaseAsset(symbol string, quotes []string) string {
	s := strings.ToUpper(symbol)
	for _, q := range quotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return s[:len(s)-len(q)]
		}
	}
	return s
}
