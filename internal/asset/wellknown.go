package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDGoerli   = 5
	ChainIDSepolia  = 11155111
)

// Well-known token addresses on Ethereum Mainnet
var (
	// Stablecoins
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	// Wrapped
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// Well-known Ethereum Mainnet assets.
var (
	ETH  = NewNative(ChainIDEthereum, "ETH", "Ethereum", 18)
	USDC = NewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6)
	USDT = NewToken(ChainIDEthereum, AddrUSDTEthereum, "USDT", "Tether USD", 6)
	DAI  = NewToken(ChainIDEthereum, AddrDAIEthereum, "DAI", "Dai Stablecoin", 18)
	WETH = NewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18)
	WBTC = NewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped Bitcoin", 8)
)

// DefaultRegistry returns a mainnet registry with the well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry(ChainIDEthereum)

	for _, a := range []*Asset{ETH, USDC, USDT, DAI, WETH, WBTC} {
		r.MustRegister(a)
	}
	r.SetWrappedNative(WETH)

	return r
}

// NewChainRegistry returns DefaultRegistry on mainnet and an empty registry
// with a native ETH entry elsewhere, leaving tokens to configuration.
func NewChainRegistry(chainID uint64) *Registry {
	if chainID == ChainIDEthereum {
		return DefaultRegistry()
	}
	r := NewRegistry(chainID)
	r.MustRegister(NewNative(chainID, "ETH", "Ether", 18))
	return r
}
