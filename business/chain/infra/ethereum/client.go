// Package ethereum implements the chain ports over go-ethereum JSON-RPC clients.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/ratelimit"
	"github.com/fd1az/swap-router/internal/retry"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/chain/infra/ethereum"
	meterName  = "github.com/fd1az/swap-router/business/chain/infra/ethereum"
)

var (
	_ app.ContractCaller    = (*Client)(nil)
	_ app.TransactionSender = (*Client)(nil)
	_ app.ReceiptReader     = (*Client)(nil)
	_ app.LivenessProbe     = (*Client)(nil)
	_ app.TokenReader       = (*Client)(nil)
)

// Backend is the subset of ethclient.Client the chain client uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

var _ Backend = (*ethclient.Client)(nil)

// Dialer opens a Backend for an RPC URL.
type Dialer func(ctx context.Context, url string) (Backend, error)

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ClientConfig holds configuration for the chain client.
type ClientConfig struct {
	URLs              []string
	ChainID           uint64
	PrivateKey        string
	CallTimeout       time.Duration
	Retry             retry.Options
	RequestsPerMinute int
	GasLimitFallback  uint64
}

// NewClientConfig maps the chain configuration section.
func NewClientConfig(cfg config.ChainConfig) ClientConfig {
	return ClientConfig{
		URLs:        cfg.RPCURLs,
		ChainID:     cfg.ChainID,
		PrivateKey:  cfg.PrivateKey,
		CallTimeout: cfg.CallTimeout,
		Retry: retry.Options{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffFactor: cfg.BackoffFactor,
		},
		RequestsPerMinute: cfg.RequestsPerMinute,
		GasLimitFallback:  cfg.GasLimitFallback,
	}
}

// node is one RPC endpoint with its own breaker.
type node struct {
	backend Backend
	breaker *circuitbreaker.CircuitBreaker[any]
}

type clientMetrics struct {
	calls     metric.Int64Counter
	errors    metric.Int64Counter
	latency   metric.Float64Histogram
	rotations metric.Int64Counter
	sent      metric.Int64Counter
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces ethclient dialing.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// Client talks to an ordered list of RPC endpoints. Every call is rate
// limited, passes through the endpoint's circuit breaker, is raced against
// the call timeout and retried on the next endpoint after a failure.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface
	dial   Dialer

	mu      sync.RWMutex
	rotator *retry.Rotator[*node]
	nodes   []*node

	key     *ecdsa.PrivateKey
	account common.Address
	signer  types.Signer
	sendMu  sync.Mutex

	erc20   abi.ABI
	limiter *ratelimit.Limiter

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a chain client. Call Connect before use.
func NewClient(cfg ClientConfig, log logger.LoggerInterface, opts ...Option) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}

	c := &Client{
		config:  cfg,
		logger:  log,
		dial:    dialEthclient,
		signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(cfg.ChainID)),
		erc20:   parsed,
		limiter: ratelimit.New("ethereum rpc", cfg.RequestsPerMinute),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidPrivateKey, apperror.WithCause(err))
		}
		c.key = key
		c.account = crypto.PubkeyToAddress(key.PublicKey)
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.calls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total chain RPC operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Chain RPC operations that failed after retries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"chain_rpc_latency_ms",
		metric.WithDescription("Chain RPC operation latency including retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.rotations, err = meter.Int64Counter(
		"chain_rpc_rotations_total",
		metric.WithDescription("Switches to the next RPC endpoint"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return err
	}

	c.metrics.sent, err = meter.Int64Counter(
		"chain_transactions_sent_total",
		metric.WithDescription("Signed transactions broadcast"),
		metric.WithUnit("{transaction}"),
	)
	return err
}

// Connect dials every configured endpoint. Unreachable endpoints are skipped;
// it fails only when none can be dialed.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "chain.connect",
		trace.WithAttributes(attribute.Int("endpoints", len(c.config.URLs))),
	)
	defer span.End()

	var (
		endpoints []retry.Endpoint[*node]
		nodes     []*node
	)
	for _, url := range c.config.URLs {
		backend, err := c.dial(ctx, url)
		if err != nil {
			span.AddEvent("dial_failed", trace.WithAttributes(attribute.String("url", url)))
			c.logger.Warn(ctx, "rpc endpoint unreachable", "url", url, "error", err)
			continue
		}

		n := &node{backend: backend, breaker: c.newBreaker(url)}
		nodes = append(nodes, n)
		endpoints = append(endpoints, retry.Endpoint[*node]{URL: url, Client: n})
	}

	if len(endpoints) == 0 {
		err := apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext(fmt.Sprintf("no reachable endpoint among %d", len(c.config.URLs))))
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return err
	}

	rotator, err := retry.NewRotator(endpoints, c.config.CallTimeout)
	if err != nil {
		return err
	}
	rotator.OnRotate(func(from, to retry.Endpoint[*node], cause error) {
		c.metrics.rotations.Add(context.Background(), 1)
		c.logger.Warn(context.Background(), "rotating rpc endpoint", "from", from.URL, "to", to.URL, "error", cause)
	})

	c.mu.Lock()
	old := c.nodes
	c.rotator = rotator
	c.nodes = nodes
	c.mu.Unlock()

	for _, n := range old {
		n.backend.Close()
	}

	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "chain client connected", "endpoints", len(nodes), "chain_id", c.config.ChainID, "account", c.account.Hex())
	return nil
}

func (c *Client) newBreaker(url string) *circuitbreaker.CircuitBreaker[any] {
	cfg := circuitbreaker.DefaultConfig("rpc:" + url)
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || !isTransient(err)
	}
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn(context.Background(), "rpc circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	return circuitbreaker.New[any](cfg)
}

// Connected reports whether Connect has succeeded.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rotator != nil
}

// Account returns the signing address.
func (c *Client) Account() common.Address {
	return c.account
}

// Close closes every endpoint.
func (c *Client) Close() error {
	c.mu.Lock()
	nodes := c.nodes
	c.nodes = nil
	c.rotator = nil
	c.mu.Unlock()

	for _, n := range nodes {
		n.backend.Close()
	}
	return nil
}

// isTransient reports whether err may succeed on another attempt. Node
// verdicts on the call itself (reverts, nonce and funding errors) are final.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, ethereum.NotFound) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"execution reverted",
		"nonce too low",
		"nonce too high",
		"insufficient funds",
		"already known",
		"replacement transaction underpriced",
		"intrinsic gas too low",
		"exceeds block gas limit",
	} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}

func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context, b Backend) (T, error)) (T, error) {
	var zero T

	c.mu.RLock()
	rotator := c.rotator
	c.mu.RUnlock()
	if rotator == nil {
		return zero, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("chain client not connected"))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	attrs := metric.WithAttributes(attribute.String("op", op))
	start := time.Now()

	opts := c.config.Retry
	opts.ShouldRetry = isTransient
	v, err := retry.Call(ctx, rotator, opts, func(ctx context.Context, n *node) (T, error) {
		out, err := n.breaker.Execute(func() (any, error) {
			return fn(ctx, n.backend)
		})
		if err != nil {
			return zero, err
		}
		t, _ := out.(T)
		return t, nil
	})

	c.metrics.calls.Add(ctx, 1, attrs)
	c.metrics.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	if err != nil {
		c.metrics.errors.Add(ctx, 1, attrs)
	}
	return v, err
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.call_contract",
		trace.WithAttributes(attribute.String("to", to.Hex())),
	)
	defer span.End()

	out, err := call(ctx, c, "eth_call", func(ctx context.Context, b Backend) ([]byte, error) {
		return b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(to.Hex()))
	}
	return out, nil
}

// SuggestGasPrice returns the node's gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, "eth_gasPrice", func(ctx context.Context, b Backend) (*big.Int, error) {
		return b.SuggestGasPrice(ctx)
	})
}

// Ping measures an eth_blockNumber round trip.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := call(ctx, c, "eth_blockNumber", func(ctx context.Context, b Backend) (uint64, error) {
		return b.BlockNumber(ctx)
	})
	if err != nil {
		return 0, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("liveness probe"))
	}
	return time.Since(start), nil
}

// SendTransaction signs req as a legacy transaction from the configured
// account and broadcasts it. Sends are serialised so nonces stay ordered.
func (c *Client) SendTransaction(ctx context.Context, req domain.TxRequest) (*domain.SentTransaction, error) {
	ctx, span := c.tracer.Start(ctx, "chain.send_transaction",
		trace.WithAttributes(attribute.String("to", req.To.Hex())),
	)
	defer span.End()

	if c.key == nil {
		err := apperror.New(apperror.CodeInvalidPrivateKey,
			apperror.WithContext("no signing key configured"))
		span.RecordError(err)
		return nil, err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := call(ctx, c, "eth_getTransactionCount", func(ctx context.Context, b Backend) (uint64, error) {
		return b.PendingNonceAt(ctx, c.account)
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err), apperror.WithContext("nonce"))
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		if gasPrice, err = c.SuggestGasPrice(ctx); err != nil {
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err), apperror.WithContext("gas price"))
		}
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = c.estimateGas(ctx, req.To, req.Data, value)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &req.To,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeInvalidPrivateKey, apperror.WithCause(err))
	}

	if _, err := call(ctx, c, "eth_sendRawTransaction", func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, b.SendTransaction(ctx, signed)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("send transaction"))
	}

	c.metrics.sent.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("tx_hash", signed.Hash().Hex()),
		attribute.Int64("nonce", int64(nonce)),
		attribute.Int64("gas_limit", int64(gasLimit)),
	)
	span.SetStatus(codes.Ok, "sent")

	c.logger.Info(ctx, "transaction sent",
		"hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas_limit", gasLimit,
		"gas_price", gasPrice.String(),
	)

	return &domain.SentTransaction{
		Hash:     signed.Hash(),
		From:     c.account,
		Nonce:    nonce,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
	}, nil
}

// estimateGas asks the node and adds 10%, falling back to the configured limit.
func (c *Client) estimateGas(ctx context.Context, to common.Address, data []byte, value *big.Int) uint64 {
	gas, err := call(ctx, c, "eth_estimateGas", func(ctx context.Context, b Backend) (uint64, error) {
		return b.EstimateGas(ctx, ethereum.CallMsg{From: c.account, To: &to, Data: data, Value: value})
	})
	if err != nil {
		c.logger.Warn(ctx, "gas estimation failed, using fallback", "fallback", c.config.GasLimitFallback, "error", err)
		return c.config.GasLimitFallback
	}
	return gas + gas/10
}

// Receipt reads the transaction receipt. Unknown transactions are pending.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "chain.receipt",
		trace.WithAttributes(attribute.String("tx_hash", hash.Hex())),
	)
	defer span.End()

	rcpt, err := call(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context, b Backend) (*types.Receipt, error) {
		r, err := b.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return r, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt lookup failed")
		return nil, apperror.New(apperror.CodeReceiptLookupFailed,
			apperror.WithCause(err),
			apperror.WithContext(hash.Hex()))
	}
	if rcpt == nil {
		span.AddEvent("pending")
		return domain.PendingReceipt(hash), nil
	}

	out := &domain.Receipt{
		Hash:              hash,
		Status:            domain.ReceiptAccepted,
		GasUsed:           rcpt.GasUsed,
		EffectiveGasPrice: rcpt.EffectiveGasPrice,
	}
	if rcpt.BlockNumber != nil {
		out.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	if rcpt.Status == types.ReceiptStatusFailed {
		out.Status = domain.ReceiptRejected
		out.RevertReason = c.revertReason(ctx, hash, rcpt.BlockNumber)
	}

	span.SetAttributes(attribute.String("status", string(out.Status)))
	return out, nil
}

// revertReason replays the transaction at its block to recover the revert
// message. Best effort: any failure yields a generic reason.
func (c *Client) revertReason(ctx context.Context, hash common.Hash, block *big.Int) string {
	const generic = "execution reverted"

	tx, err := call(ctx, c, "eth_getTransactionByHash", func(ctx context.Context, b Backend) (*types.Transaction, error) {
		tx, _, err := b.TransactionByHash(ctx, hash)
		return tx, err
	})
	if err != nil || tx == nil {
		return generic
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return generic
	}

	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	_, replayErr := call(ctx, c, "eth_call", func(ctx context.Context, b Backend) ([]byte, error) {
		return b.CallContract(ctx, msg, block)
	})
	if replayErr == nil {
		return generic
	}

	var dataErr interface{ ErrorData() interface{} }
	if errors.As(replayErr, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if reason, err := abi.UnpackRevert(common.FromHex(s)); err == nil {
				return reason
			}
		}
	}
	return replayErr.Error()
}

// BalanceOf reads an ERC20 balance.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.readUint(ctx, token, "balanceOf", owner)
}

// Allowance reads an ERC20 allowance.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.readUint(ctx, token, "allowance", owner, spender)
}

func (c *Client) readUint(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	out, err := c.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}

	values, err := c.erc20.Unpack(method, out)
	if err != nil || len(values) != 1 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("decode %s from %s", method, token.Hex())))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %T", method, values[0])))
	}
	return v, nil
}
