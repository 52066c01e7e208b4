package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/logger"
)

// ChainService coordinates read-side chain interactions used outside the
// swap path: health, gas display and portfolio balances.
type ChainService struct {
	probe  LivenessProbe
	tokens TokenReader
	gas    GasOracle
	logger logger.LoggerInterface
}

// NewChainService creates a new ChainService.
func NewChainService(probe LivenessProbe, tokens TokenReader, gas GasOracle, log logger.LoggerInterface) *ChainService {
	return &ChainService{
		probe:  probe,
		tokens: tokens,
		gas:    gas,
		logger: log,
	}
}

// Ping returns the node round trip.
func (s *ChainService) Ping(ctx context.Context) (time.Duration, error) {
	return s.probe.Ping(ctx)
}

// GasPrice returns the current gas price.
func (s *ChainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gas.GasPrice(ctx)
}

// Balances reads owner's balance of every token. Tokens whose read fails are
// logged and left out of the result.
func (s *ChainService) Balances(ctx context.Context, owner common.Address, tokens []common.Address) map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(tokens))
	for _, token := range tokens {
		bal, err := s.tokens.BalanceOf(ctx, token, owner)
		if err != nil {
			s.logger.Warn(ctx, "balance read failed", "token", token.Hex(), "owner", owner.Hex(), "error", err)
			continue
		}
		out[token] = bal
	}
	return out
}
