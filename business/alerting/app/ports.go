// Package app contains the metrics and alerting service.
package app

import (
	"context"

	"github.com/fd1az/swap-router/business/alerting/domain"
)

// ActiveCounter reports how many transactions are still pending.
type ActiveCounter interface {
	ActiveCount() int
}

// PriceSink receives observations from a price feed.
type PriceSink interface {
	ObservePrice(ctx context.Context, obs domain.PriceObservation) int
}

// PriceFeed streams price observations into a sink until ctx is done or
// the feed is closed.
type PriceFeed interface {
	Start(ctx context.Context, sink PriceSink) error
	IsConnected() bool
	Close() error
}
