package monolith

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

type recordingModule struct {
	name     string
	order    *[]string
	startErr error
}

func (m *recordingModule) RegisterServices(c di.Container) error {
	*m.order = append(*m.order, "register:"+m.name)
	c.Register(m.name, m.name)
	return nil
}

func (m *recordingModule) Startup(_ context.Context, mono Monolith) error {
	*m.order = append(*m.order, "start:"+m.name)
	if _, ok := mono.Services().Get(m.name).(string); !ok {
		return errors.New("service not registered")
	}
	return m.startErr
}

func TestNew_SharedServices(t *testing.T) {
	cfg := &config.Config{
		Chain: config.ChainConfig{ChainID: 31337},
		Tokens: []config.TokenConfig{
			{Symbol: "WETH", Name: "Wrapped Ether", Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3", Decimals: 18},
			{Symbol: "USDC", Name: "USD Coin", Address: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", Decimals: 6},
		},
	}

	a, err := New(cfg, testLogger())
	require.NoError(t, err)

	sr := a.Services()
	assert.Same(t, cfg, sr.Get("config"))
	assert.Same(t, a.Events(), sr.Get("events").(*events.Registry))
	assert.Same(t, a.AssetRegistry(), sr.Get("assetRegistry"))
	assert.Equal(t, "swaprouter", a.Events().Source())

	weth, err := a.AssetRegistry().Resolve("ETH")
	require.NoError(t, err)
	assert.Equal(t, "WETH", weth.Symbol())
	assert.Equal(t, 3, a.AssetRegistry().Count())
}

func TestNew_RejectsBadToken(t *testing.T) {
	cfg := &config.Config{
		Chain:  config.ChainConfig{ChainID: 31337},
		Tokens: []config.TokenConfig{{Symbol: "BAD", Address: "nope"}},
	}
	_, err := New(cfg, testLogger())
	assert.Error(t, err)
}

func TestModules_RegisterThenStartInOrder(t *testing.T) {
	a, err := New(&config.Config{Chain: config.ChainConfig{ChainID: 1}}, testLogger())
	require.NoError(t, err)

	var order []string
	mods := []Module{
		&recordingModule{name: "a", order: &order},
		&recordingModule{name: "b", order: &order},
	}

	require.NoError(t, a.RegisterModules(mods...))
	require.NoError(t, a.StartModules(context.Background(), mods...))
	assert.Equal(t, []string{"register:a", "register:b", "start:a", "start:b"}, order)
}

func TestStartModules_StopsAtFirstError(t *testing.T) {
	a, err := New(&config.Config{Chain: config.ChainConfig{ChainID: 1}}, testLogger())
	require.NoError(t, err)

	var order []string
	boom := errors.New("boom")
	mods := []Module{
		&recordingModule{name: "a", order: &order, startErr: boom},
		&recordingModule{name: "b", order: &order},
	}
	require.NoError(t, a.RegisterModules(mods...))

	err = a.StartModules(context.Background(), mods...)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "start monolith: boom")
	assert.Equal(t, []string{"register:a", "register:b", "start:a"}, order)
}

func TestClose_ReverseOrderJoinsErrors(t *testing.T) {
	a, err := New(&config.Config{Chain: config.ChainConfig{ChainID: 1}}, testLogger())
	require.NoError(t, err)

	var order []int
	first := errors.New("first")
	last := errors.New("last")
	a.OnClose(func() error { order = append(order, 1); return first })
	a.OnClose(func() error { order = append(order, 2); return nil })
	a.OnClose(func() error { order = append(order, 3); return last })

	err = a.Close()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, last)
}
