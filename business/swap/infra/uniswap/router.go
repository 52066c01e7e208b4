// Package uniswap submits swaps to a UniswapV2-style router.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/fd1az/swap-router/business/chain/app"
	chaindomain "github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/internal/logger"
)

const tracerName = "github.com/fd1az/swap-router/business/swap/infra/uniswap"

var _ app.Router = (*Router)(nil)

// Router encodes swapExactTokensForTokens calls and sends them from the
// configured account.
type Router struct {
	address   common.Address
	sender    chainapp.TransactionSender
	routerABI abi.ABI
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

// NewRouter creates a Router for the contract at address.
func NewRouter(address common.Address, sender chainapp.TransactionSender, log logger.LoggerInterface) (*Router, error) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	return &Router{
		address:   address,
		sender:    sender,
		routerABI: parsed,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Address returns the router contract address.
func (r *Router) Address() common.Address {
	return r.address
}

// SwapExactTokensForTokens broadcasts the swap. A zero recipient sends the
// output to the signing account.
func (r *Router) SwapExactTokensForTokens(ctx context.Context, call app.RouterCall) (*chaindomain.SentTransaction, error) {
	ctx, span := r.tracer.Start(ctx, "uniswap.swap_exact_tokens_for_tokens",
		trace.WithAttributes(
			attribute.String("router", r.address.Hex()),
			attribute.Int("hops", len(call.Path)-1),
			attribute.String("amount_in", call.AmountIn.String()),
			attribute.String("amount_out_min", call.AmountOutMin.String()),
		),
	)
	defer span.End()

	recipient := call.Recipient
	if recipient == (common.Address{}) {
		recipient = r.sender.Account()
	}

	data, err := r.routerABI.Pack("swapExactTokensForTokens",
		call.AmountIn,
		call.AmountOutMin,
		call.Path,
		recipient,
		big.NewInt(call.Deadline.Unix()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, fmt.Errorf("failed to encode swap: %w", err)
	}

	sent, err := r.sender.SendTransaction(ctx, chaindomain.TxRequest{To: r.address, Data: data})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return nil, err
	}

	r.logger.Debug(ctx, "swap broadcast", "tx_hash", sent.Hash.Hex(), "nonce", sent.Nonce, "gas_limit", sent.GasLimit)
	span.SetAttributes(attribute.String("tx_hash", sent.Hash.Hex()))
	span.SetStatus(codes.Ok, "sent")
	return sent, nil
}
