package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/liquidity/app"
	"github.com/fd1az/swap-router/internal/logger"
)

var _ app.PoolLister = (*PoolLister)(nil)

// PoolLister lists the configured pools followed by pairs enumerated from an
// optional factory, deduplicated and capped at maxPools.
type PoolLister struct {
	caller     chainapp.ContractCaller
	static     []common.Address
	factory    common.Address
	maxPools   int
	factoryABI abi.ABI
	logger     logger.LoggerInterface
}

// NewPoolLister creates a PoolLister. A zero factory disables enumeration and
// a non-positive maxPools means no cap.
func NewPoolLister(caller chainapp.ContractCaller, static []common.Address, factory common.Address, maxPools int, log logger.LoggerInterface) (*PoolLister, error) {
	parsed, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	return &PoolLister{
		caller:     caller,
		static:     static,
		factory:    factory,
		maxPools:   maxPools,
		factoryABI: parsed,
		logger:     log,
	}, nil
}

// ListPools returns pool addresses in a stable order. A failing factory is
// logged and only the configured pools are returned.
func (l *PoolLister) ListPools(ctx context.Context) ([]common.Address, error) {
	seen := make(map[common.Address]struct{})
	out := make([]common.Address, 0, len(l.static))

	add := func(a common.Address) bool {
		if l.maxPools > 0 && len(out) >= l.maxPools {
			return false
		}
		if _, dup := seen[a]; !dup {
			seen[a] = struct{}{}
			out = append(out, a)
		}
		return true
	}

	for _, a := range l.static {
		if !add(a) {
			return out, nil
		}
	}

	if l.factory == (common.Address{}) {
		return out, nil
	}

	n, err := l.pairCount(ctx)
	if err != nil {
		l.logger.Warn(ctx, "factory enumeration failed", "factory", l.factory.Hex(), "error", err)
		return out, nil
	}

	for i := uint64(0); i < n; i++ {
		if l.maxPools > 0 && len(out) >= l.maxPools {
			break
		}
		pair, err := l.pairAt(ctx, i)
		if err != nil {
			l.logger.Warn(ctx, "factory pair lookup failed", "index", i, "error", err)
			break
		}
		add(pair)
	}

	return out, nil
}

func (l *PoolLister) pairCount(ctx context.Context) (uint64, error) {
	out, err := l.call(ctx, "allPairsLength")
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("allPairsLength returned %v", out[0])
	}
	return n.Uint64(), nil
}

func (l *PoolLister) pairAt(ctx context.Context, i uint64) (common.Address, error) {
	out, err := l.call(ctx, "allPairs", new(big.Int).SetUint64(i))
	if err != nil {
		return common.Address{}, err
	}
	a, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("allPairs returned %T", out[0])
	}
	return a, nil
}

func (l *PoolLister) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := l.factoryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	result, err := l.caller.CallContract(ctx, l.factory, data)
	if err != nil {
		return nil, err
	}
	out, err := l.factoryABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	return out, nil
}
