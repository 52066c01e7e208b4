// Package asset models the tokens the router trades and exact amounts of
// them. Amounts stay in base units as big.Int; decimal.Decimal appears only
// when parsing user input or formatting output.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID identifies an asset by chain and contract. The native coin has the zero
// address. Symbols are labels, never identity.
type ID struct {
	chainID uint64
	address common.Address
}

// NativeID is the native coin of chainID.
func NativeID(chainID uint64) ID {
	return ID{chainID: chainID}
}

// TokenID is the ERC20 at addr on chainID. It panics on the zero address.
func TokenID(chainID uint64, addr common.Address) ID {
	if addr == (common.Address{}) {
		panic("asset: zero token address")
	}
	return ID{chainID: chainID, address: addr}
}

func (id ID) ChainID() uint64 { return id.chainID }
func (id ID) Address() common.Address { return id.address }
func (id ID) IsNative() bool { return id.address == (common.Address{}) }

func (id ID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("%d:native", id.chainID)
	}
	return fmt.Sprintf("%d:%s", id.chainID, id.address.Hex())
}

// Asset is immutable token metadata.
type Asset struct {
	id       ID
	symbol   string
	name     string
	decimals uint8
}

func newAsset(id ID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 36 {
		panic(fmt.Sprintf("asset: %s has %d decimals", symbol, decimals))
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// NewToken describes an ERC20 token.
func NewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return newAsset(TokenID(chainID, address), symbol, name, decimals)
}

// NewNative describes a chain's native coin.
func NewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return newAsset(NativeID(chainID), symbol, name, decimals)
}

func (a *Asset) ID() ID { return a.id }
func (a *Asset) Symbol() string { return a.symbol }
func (a *Asset) Decimals() uint8 { return a.decimals }
func (a *Asset) ChainID() uint64 { return a.id.chainID }
func (a *Asset) Address() common.Address { return a.id.address }
func (a *Asset) IsNative() bool { return a.id.IsNative() }
func (a *Asset) String() string { return a.symbol }

// Name falls back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}
