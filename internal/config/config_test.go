package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  log_level: debug
chain:
  rpc_urls:
    - http://node-a:8545
    - http://node-b:8545
  chain_id: 5
tokens:
  - symbol: PEPE
    address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933"
    decimals: 18
liquidity:
  pools:
    - "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"
routing:
  max_hops: 2
analytics:
  backend: redis
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, []string{"http://node-a:8545", "http://node-b:8545"}, cfg.Chain.RPCURLs)
	assert.Equal(t, uint64(5), cfg.Chain.ChainID)
	assert.Equal(t, 2, cfg.Routing.MaxHops)
	assert.Equal(t, "redis", cfg.Analytics.Backend)
	require.Len(t, cfg.Tokens, 1)
	assert.Equal(t, uint8(18), cfg.Tokens[0].Decimals)

	// defaults
	assert.Equal(t, 5*time.Second, cfg.Chain.CallTimeout)
	assert.Equal(t, 3, cfg.Chain.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Liquidity.PoolTTL)
	assert.Equal(t, 30*time.Second, cfg.Liquidity.GraphTTL)
	assert.Equal(t, 5*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, time.Hour, cfg.Monitor.Timeout)
	assert.Equal(t, 5, cfg.Monitor.MaxPollErrors)
	assert.Equal(t, 24*time.Hour, cfg.Monitor.Retention)
	assert.Equal(t, 300*time.Second, cfg.Swap.Deadline)
	assert.Equal(t, "0.05", cfg.Swap.MaxSlippageDecimal().String())
	assert.Equal(t, "0.005", cfg.Swap.DefaultSlippageDecimal().String())
	assert.Equal(t, uint32(3000), cfg.Liquidity.DefaultFeePPM)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SWAP_RPC_URLS", "http://env-node:8545")
	t.Setenv("SWAP_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://env-node:8545"}, cfg.Chain.RPCURLs)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "test", cfg.App.Name)
}

func TestLoad_RequiresRPC(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain.rpc_urls")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"bad router", func(c *Config) { c.Swap.RouterAddress = "nope" }, "router_address"},
		{"bad pool", func(c *Config) { c.Liquidity.Pools = []string{"0x1"} }, "pool address"},
		{"fee too high", func(c *Config) { c.Liquidity.DefaultFeePPM = 1_000_000 }, "default_fee_ppm"},
		{"zero hops", func(c *Config) { c.Routing.MaxHops = 0 }, "max_hops"},
		{"slippage above cap", func(c *Config) { c.Swap.DefaultSlippage = 0.1 }, "default_slippage"},
		{"unknown backend", func(c *Config) { c.Analytics.Backend = "mongo" }, "analytics.backend"},
		{"bad token", func(c *Config) { c.Tokens[0].Address = "x" }, "token entry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}
