package domain

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Edge is one pool connecting two tokens.
type Edge struct {
	Pool   *PoolInfo
	Weight float64
}

// Graph is an immutable token adjacency built from a pool snapshot.
// Neighbours and the pools between two tokens keep insertion order so path
// search over a graph is deterministic.
type Graph struct {
	neighbours map[common.Address][]common.Address
	edges      map[common.Address]map[common.Address][]Edge
	pools      []*PoolInfo
	builtAt    time.Time
}

// NewGraph indexes pools in the given order. Pools with identical sides are ignored.
func NewGraph(pools []*PoolInfo, builtAt time.Time) *Graph {
	g := &Graph{
		neighbours: make(map[common.Address][]common.Address),
		edges:      make(map[common.Address]map[common.Address][]Edge),
		builtAt:    builtAt,
	}

	for _, p := range pools {
		if p == nil || p.Token0 == p.Token1 {
			continue
		}
		w := Weight(p)
		g.addEdge(p.Token0, p.Token1, Edge{Pool: p, Weight: w})
		g.addEdge(p.Token1, p.Token0, Edge{Pool: p, Weight: w})
		g.pools = append(g.pools, p)
	}

	return g
}

func (g *Graph) addEdge(from, to common.Address, e Edge) {
	byTo, ok := g.edges[from]
	if !ok {
		byTo = make(map[common.Address][]Edge)
		g.edges[from] = byTo
	}
	if _, seen := byTo[to]; !seen {
		g.neighbours[from] = append(g.neighbours[from], to)
	}
	byTo[to] = append(byTo[to], e)
}

// Weight is ln(reserve0 * reserve1) * (1 - fee). Pools with an empty side weigh 0.
func Weight(p *PoolInfo) float64 {
	if p.Reserve0 == nil || p.Reserve1 == nil || p.Reserve0.Sign() <= 0 || p.Reserve1.Sign() <= 0 {
		return 0
	}
	return (logBig(p.Reserve0) + logBig(p.Reserve1)) * (1 - p.FeeFraction())
}

func logBig(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return math.Log(f)
}

// Neighbours returns the tokens directly reachable from token, in insertion order.
func (g *Graph) Neighbours(token common.Address) []common.Address {
	return g.neighbours[token]
}

// Edges returns the pools between from and to, in insertion order.
func (g *Graph) Edges(from, to common.Address) []Edge {
	return g.edges[from][to]
}

// HasToken reports whether any pool touches token.
func (g *Graph) HasToken(token common.Address) bool {
	_, ok := g.neighbours[token]
	return ok
}

// Pools returns the pools in insertion order.
func (g *Graph) Pools() []*PoolInfo {
	return g.pools
}

// TokenCount returns the number of distinct tokens.
func (g *Graph) TokenCount() int {
	return len(g.neighbours)
}

// BuiltAt returns when the snapshot was taken.
func (g *Graph) BuiltAt() time.Time {
	return g.builtAt
}
