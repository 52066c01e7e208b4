// Package store persists trade analytics in process or in Redis.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/cache"
)

const keyPrefix = "trade_analytics_"

var _ app.AnalyticsStore = (*Memory)(nil)

// Memory keeps analytics in a TTL cache keyed trade_analytics_<ms>_<hash>.
type Memory struct {
	ttl   time.Duration
	cache *cache.Cache[string, *domain.TradeAnalytics]
}

// NewMemory creates a Memory store whose records expire after ttl.
func NewMemory(ttl time.Duration, opts ...cache.Option) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{
		ttl:   ttl,
		cache: cache.New[string, *domain.TradeAnalytics](time.Hour, append(opts, cache.WithName("analytics"))...),
	}
}

func memoryKey(a *domain.TradeAnalytics) string {
	return fmt.Sprintf("%s%d_%s", keyPrefix, a.Timestamp.UnixMilli(), strings.ToLower(a.TxHash.Hex()))
}

// Save stores a copy of a. Saving the same trade again replaces it.
func (m *Memory) Save(ctx context.Context, a *domain.TradeAnalytics) error {
	m.cache.Set(ctx, memoryKey(a), a.Clone(), m.ttl)
	return nil
}

// Range returns unexpired records in [from, to], newest first.
func (m *Memory) Range(_ context.Context, from, to time.Time) ([]*domain.TradeAnalytics, error) {
	var out []*domain.TradeAnalytics
	for _, a := range cache.WithPrefix(m.cache.Entries(), keyPrefix) {
		if a.Timestamp.Before(from) || a.Timestamp.After(to) {
			continue
		}
		out = append(out, a.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

// Close stops the background sweep.
func (m *Memory) Close() error {
	m.cache.Close()
	return nil
}

func sortNewestFirst(records []*domain.TradeAnalytics) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].TxHash.Hex() < records[j].TxHash.Hex()
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
