// Package app contains the pool registry and its ports.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/liquidity/domain"
)

// PoolReader reads the current state of one pool.
type PoolReader interface {
	ReadPool(ctx context.Context, address common.Address) (*domain.PoolInfo, error)
}

// PoolLister returns the pool addresses to index, in a stable order.
type PoolLister interface {
	ListPools(ctx context.Context) ([]common.Address, error)
}

// GraphSource provides the current liquidity graph.
type GraphSource interface {
	Graph(ctx context.Context) (*domain.Graph, error)
}
