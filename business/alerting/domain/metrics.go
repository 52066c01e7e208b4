package domain

import (
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	swapdomain "github.com/fd1az/swap-router/business/swap/domain"
)

// MetricName names a SystemMetrics field for system alerts.
type MetricName string

const (
	MetricCacheHitRate       MetricName = "cacheHitRate"
	MetricAPILatency         MetricName = "apiLatency"
	MetricErrorRate          MetricName = "errorRate"
	MetricActiveTransactions MetricName = "activeTransactions"
)

// SystemMetrics is one periodic snapshot. APILatency is in milliseconds, -1
// when the liveness probe failed.
type SystemMetrics struct {
	Timestamp          time.Time `json:"timestamp"`
	CacheHitRate       float64   `json:"cacheHitRate"`
	APILatency         float64   `json:"apiLatency"`
	ErrorRate          float64   `json:"errorRate"`
	ActiveTransactions int       `json:"activeTransactions"`
}

// Value returns the named metric.
func (m SystemMetrics) Value(name MetricName) (float64, bool) {
	switch name {
	case MetricCacheHitRate:
		return m.CacheHitRate, true
	case MetricAPILatency:
		return m.APILatency, true
	case MetricErrorRate:
		return m.ErrorRate, true
	case MetricActiveTransactions:
		return float64(m.ActiveTransactions), true
	}
	return 0, false
}

// Percent returns part / total * 100, or 0 when total is zero.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TradingMetrics aggregates the trades of a time window.
type TradingMetrics struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	TotalTrades     int              `json:"totalTrades"`
	SuccessRate     float64          `json:"successRate"`
	AverageSlippage float64          `json:"averageSlippage"`
	AverageGasCost  *big.Int         `json:"averageGasCost"`
	TotalVolume     *big.Int         `json:"totalVolume"`
	BestRoute       []common.Address `json:"bestRoute"`
	WorstRoute      []common.Address `json:"worstRoute"`
}

// ComputeTradingMetrics derives TradingMetrics from trades. Slippage, gas,
// volume and route ranking only consider completed trades. Routes are ranked
// by mean output/input ratio; on equal means the route seen first wins.
func ComputeTradingMetrics(trades []*swapdomain.TradeAnalytics) TradingMetrics {
	m := TradingMetrics{
		TotalTrades:    len(trades),
		AverageGasCost: new(big.Int),
		TotalVolume:    new(big.Int),
	}

	type routeStat struct {
		route []common.Address
		sum   float64
		n     int
		order int
	}
	routes := make(map[string]*routeStat)

	var completed int
	var impact float64
	gas := new(big.Int)
	for _, t := range trades {
		if t.Status != swapdomain.StatusCompleted {
			continue
		}
		completed++
		impact += t.PriceImpact
		if t.GasCost != nil {
			gas.Add(gas, t.GasCost)
		}
		if t.AmountIn != nil {
			m.TotalVolume.Add(m.TotalVolume, t.AmountIn)
		}

		key := t.RouteKey()
		rs, ok := routes[key]
		if !ok {
			rs = &routeStat{route: append([]common.Address(nil), t.Route...), order: len(routes)}
			routes[key] = rs
		}
		rs.sum += t.OutputRatio()
		rs.n++
	}

	if completed == 0 {
		return m
	}

	m.SuccessRate = Percent(int64(completed), int64(len(trades)))
	m.AverageSlippage = impact / float64(completed)
	m.AverageGasCost.Quo(gas, big.NewInt(int64(completed)))

	ranked := make([]*routeStat, 0, len(routes))
	for _, rs := range routes {
		ranked = append(ranked, rs)
	}
	sort.Slice(ranked, func(i, j int) bool {
		mi := ranked[i].sum / float64(ranked[i].n)
		mj := ranked[j].sum / float64(ranked[j].n)
		if mi != mj {
			return mi > mj
		}
		return ranked[i].order < ranked[j].order
	})
	m.BestRoute = ranked[0].route
	m.WorstRoute = ranked[len(ranked)-1].route
	return m
}
