package ethereum

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

type fakeBackend struct {
	mu sync.Mutex

	callFn   func(msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	blockErr error
	gasPrice *big.Int
	gas      uint64
	gasErr   error
	nonce    uint64
	receipts map[common.Hash]*types.Receipt
	txs      map[common.Hash]*types.Transaction

	sent       []*types.Transaction
	blockCalls int
	closed     bool
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return f.callFn(msg, block)
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if tx, ok := f.txs[hash]; ok {
		return tx, false, nil
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	return 100, f.blockErr
}

func (f *fakeBackend) Close() {
	f.closed = true
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func newTestClient(t *testing.T, key string, backends ...*fakeBackend) *Client {
	t.Helper()

	urls := make([]string, len(backends))
	byURL := make(map[string]Backend, len(backends))
	for i, b := range backends {
		urls[i] = "http://node-" + string(rune('a'+i))
		byURL[urls[i]] = b
	}

	cfg := ClientConfig{
		URLs:             urls,
		ChainID:          1,
		PrivateKey:       key,
		CallTimeout:      time.Second,
		Retry:            retry.Options{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		GasLimitFallback: 300000,
	}

	c, err := NewClient(cfg, testLogger(), WithDialer(func(_ context.Context, url string) (Backend, error) {
		return byURL[url], nil
	}))
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func newKey(t *testing.T) (string, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return common.Bytes2Hex(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey)
}

func TestClient_RotatesToNextEndpointOnFailure(t *testing.T) {
	bad := &fakeBackend{blockErr: errors.New("connection refused")}
	good := &fakeBackend{}
	c := newTestClient(t, "", bad, good)

	_, err := c.Ping(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, bad.blockCalls)
	assert.Equal(t, 1, good.blockCalls)

	_, err = c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bad.blockCalls, "cursor stays on the healthy endpoint")
}

func TestClient_PingFailsWhenEveryEndpointFails(t *testing.T) {
	a := &fakeBackend{blockErr: errors.New("down")}
	b := &fakeBackend{blockErr: errors.New("down")}
	c := newTestClient(t, "", a, b)

	_, err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeRetryExhausted))
	assert.Equal(t, 3, a.blockCalls+b.blockCalls)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient(ClientConfig{ChainID: 1}, testLogger())
	require.NoError(t, err)

	_, err = c.CallContract(context.Background(), common.Address{}, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeEthereumConnectionFailed))
}

func TestClient_ConnectFailsWithoutReachableEndpoint(t *testing.T) {
	c, err := NewClient(ClientConfig{URLs: []string{"http://x"}, ChainID: 1}, testLogger(),
		WithDialer(func(context.Context, string) (Backend, error) { return nil, errors.New("refused") }))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeEthereumConnectionFailed))
	assert.False(t, c.Connected())
}

func TestClient_InvalidPrivateKey(t *testing.T) {
	_, err := NewClient(ClientConfig{ChainID: 1, PrivateKey: "zz"}, testLogger())
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPrivateKey))
}

func TestClient_BalanceOf(t *testing.T) {
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	b := &fakeBackend{callFn: func(msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
		if *msg.To != token {
			return nil, errors.New("wrong contract")
		}
		return common.LeftPadBytes(big.NewInt(1_234_000).Bytes(), 32), nil
	}}
	c := newTestClient(t, "", b)

	bal, err := c.BalanceOf(context.Background(), token, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1_234_000), bal.Int64())
}

func TestClient_SendTransaction(t *testing.T) {
	key, account := newKey(t)
	b := &fakeBackend{gasPrice: big.NewInt(20_000_000_000), gas: 100000, nonce: 7}
	c := newTestClient(t, key, b)

	router := common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	sent, err := c.SendTransaction(context.Background(), domain.TxRequest{To: router, Data: []byte{0x38, 0xed, 0x17, 0x39}})
	require.NoError(t, err)

	require.Len(t, b.sent, 1)
	tx := b.sent[0]
	assert.Equal(t, tx.Hash(), sent.Hash)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(110000), tx.Gas())
	assert.Equal(t, uint64(110000), sent.GasLimit)
	assert.Equal(t, "20000000000", tx.GasPrice().String())
	assert.Equal(t, router, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, account, from)
	assert.Equal(t, account, c.Account())
}

func TestClient_SendTransactionUsesFallbackGas(t *testing.T) {
	key, _ := newKey(t)
	b := &fakeBackend{gasPrice: big.NewInt(1), gasErr: errors.New("execution reverted")}
	c := newTestClient(t, key, b)

	sent, err := c.SendTransaction(context.Background(), domain.TxRequest{To: common.Address{1}})
	require.NoError(t, err)
	assert.Equal(t, uint64(300000), sent.GasLimit)
}

func TestClient_SendTransactionRequiresKey(t *testing.T) {
	c := newTestClient(t, "", &fakeBackend{})

	_, err := c.SendTransaction(context.Background(), domain.TxRequest{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPrivateKey))
}

func TestClient_Receipt(t *testing.T) {
	key, _ := newKey(t)
	priv, err := crypto.HexToECDSA(key)
	require.NoError(t, err)

	reverted, err := types.SignTx(
		types.NewTx(&types.LegacyTx{Nonce: 1, To: &common.Address{2}, Gas: 21000, GasPrice: big.NewInt(1), Value: new(big.Int)}),
		types.LatestSignerForChainID(big.NewInt(1)), priv)
	require.NoError(t, err)

	okHash := common.HexToHash("0x01")
	pendingHash := common.HexToHash("0x02")

	b := &fakeBackend{
		receipts: map[common.Hash]*types.Receipt{
			okHash:          {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10), GasUsed: 90000},
			reverted.Hash(): {Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(11)},
		},
		txs: map[common.Hash]*types.Transaction{reverted.Hash(): reverted},
		callFn: func(_ ethereum.CallMsg, block *big.Int) ([]byte, error) {
			if block == nil || block.Int64() != 11 {
				return nil, errors.New("replayed at wrong block")
			}
			return nil, errors.New("execution reverted: UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
		},
	}
	c := newTestClient(t, "", b)
	ctx := context.Background()

	r, err := c.Receipt(ctx, pendingHash)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptPending, r.Status)

	r, err = c.Receipt(ctx, okHash)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptAccepted, r.Status)
	assert.Equal(t, uint64(10), r.BlockNumber)
	assert.Equal(t, uint64(90000), r.GasUsed)

	r, err = c.Receipt(ctx, reverted.Hash())
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptRejected, r.Status)
	assert.Contains(t, r.RevertReason, "INSUFFICIENT_OUTPUT_AMOUNT")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ethereum.NotFound, false},
		{errors.New("execution reverted"), false},
		{errors.New("nonce too low"), false},
		{errors.New("insufficient funds for gas * price + value"), false},
		{errors.New("dial tcp: connection refused"), true},
		{context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestClient_CloseClosesBackends(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, "", b)

	require.NoError(t, c.Close())
	assert.True(t, b.closed)
	assert.False(t, c.Connected())
}
