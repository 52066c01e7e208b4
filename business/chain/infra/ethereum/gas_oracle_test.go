package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/config"
)

type countingSource struct {
	price *big.Int
	calls int
}

func (s *countingSource) SuggestGasPrice(context.Context) (*big.Int, error) {
	s.calls++
	return s.price, nil
}

func TestGasOracle_CachesForTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	src := &countingSource{price: domain.GweiToWei(30)}
	cfg := DefaultGasOracleConfig()
	oracle, err := NewGasOracle(cfg, src, testLogger(), cache.WithClock(clock))
	require.NoError(t, err)
	defer oracle.Close()

	ctx := context.Background()
	p, err := oracle.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.Gwei)

	now = now.Add(cfg.CacheTTL - time.Second)
	_, err = oracle.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	now = now.Add(time.Second)
	_, err = oracle.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestGasOracle_CapsAtMax(t *testing.T) {
	src := &countingSource{price: domain.GweiToWei(900)}
	oracle, err := NewGasOracle(DefaultGasOracleConfig(), src, testLogger())
	require.NoError(t, err)
	defer oracle.Close()

	p, err := oracle.GasPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Capped)
	assert.Equal(t, 500.0, p.Gwei)
}

func TestNewGasOracleConfig(t *testing.T) {
	cfg := NewGasOracleConfig(config.ChainConfig{MaxGasPriceGwei: 150, GasPriceCacheTTL: 3 * time.Second})
	assert.Equal(t, "150000000000", cfg.MaxGasPrice.String())
	assert.Equal(t, 3*time.Second, cfg.CacheTTL)

	def := NewGasOracleConfig(config.ChainConfig{})
	assert.Equal(t, 12*time.Second, def.CacheTTL)
}
