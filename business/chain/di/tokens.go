// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService      = di.NewToken[*app.ChainService]("chain.ChainService")
	ContractCaller    = di.NewToken[app.ContractCaller]("chain.ContractCaller")
	TransactionSender = di.NewToken[app.TransactionSender]("chain.TransactionSender")
	ReceiptReader     = di.NewToken[app.ReceiptReader]("chain.ReceiptReader")
	LivenessProbe     = di.NewToken[app.LivenessProbe]("chain.LivenessProbe")
	TokenReader       = di.NewToken[app.TokenReader]("chain.TokenReader")
	GasOracle         = di.NewToken[app.GasOracle]("chain.GasOracle")
)

// Private dependency tokens - internal to chain module
var (
	Client = di.NewToken[*ethereum.Client]("chain:client")
)

func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetContractCaller(c di.ServiceRegistry) app.ContractCaller {
	return di.GetToken(c, ContractCaller)
}

func GetTransactionSender(c di.ServiceRegistry) app.TransactionSender {
	return di.GetToken(c, TransactionSender)
}

func GetReceiptReader(c di.ServiceRegistry) app.ReceiptReader {
	return di.GetToken(c, ReceiptReader)
}

func GetLivenessProbe(c di.ServiceRegistry) app.LivenessProbe {
	return di.GetToken(c, LivenessProbe)
}

func GetTokenReader(c di.ServiceRegistry) app.TokenReader {
	return di.GetToken(c, TokenReader)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetClient(c di.ServiceRegistry) *ethereum.Client {
	return di.GetToken(c, Client)
}
