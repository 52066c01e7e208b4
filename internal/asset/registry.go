package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/apperror"
)

// TokenSpec describes a token to register from configuration.
type TokenSpec struct {
	Symbol   string
	Name     string
	Address  string
	Decimals uint8
}

// Registry is a thread-safe, single-chain registry of known assets.
// Symbols are matched case-insensitively.
type Registry struct {
	chainID  uint64
	byID     map[ID]*Asset
	bySymbol map[string]*Asset
	native   *Asset
	wrapped  *Asset
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry for chainID.
func NewRegistry(chainID uint64) *Registry {
	return &Registry{
		chainID:  chainID,
		byID:     make(map[ID]*Asset),
		bySymbol: make(map[string]*Asset),
	}
}

// ChainID returns the chain this registry describes.
func (r *Registry) ChainID() uint64 {
	return r.chainID
}

// Register adds an asset. Duplicate IDs or symbols are rejected.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return ErrNilAsset
	}
	if a.ChainID() != r.chainID {
		return fmt.Errorf("asset: %s belongs to chain %d, registry is chain %d", a.Symbol(), a.ChainID(), r.chainID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(a.Symbol())
	if _, exists := r.byID[a.ID()]; exists {
		return fmt.Errorf("asset: %s already registered", a.ID())
	}
	if _, exists := r.bySymbol[key]; exists {
		return fmt.Errorf("asset: symbol %s already registered", a.Symbol())
	}

	r.byID[a.ID()] = a
	r.bySymbol[key] = a
	if a.IsNative() {
		r.native = a
	}
	return nil
}

// MustRegister is Register that panics, for static tables.
func (r *Registry) MustRegister(a *Asset) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// RegisterTokens registers configured ERC20 tokens. Entries whose address is
// already known are skipped so configuration can restate well-known tokens.
func (r *Registry) RegisterTokens(specs []TokenSpec) error {
	for _, s := range specs {
		if !common.IsHexAddress(s.Address) {
			return fmt.Errorf("asset: invalid address %q for %s", s.Address, s.Symbol)
		}
		addr := common.HexToAddress(s.Address)
		if _, ok := r.ByAddress(addr); ok {
			continue
		}
		if err := r.Register(NewToken(r.chainID, addr, s.Symbol, s.Name, s.Decimals)); err != nil {
			return err
		}
	}
	return nil
}

// SetWrappedNative marks the ERC20 that stands in for the native coin on DEXes.
func (r *Registry) SetWrappedNative(a *Asset) {
	r.mu.Lock()
	r.wrapped = a
	r.mu.Unlock()
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id ID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// BySymbol retrieves an asset by ticker symbol.
func (r *Registry) BySymbol(symbol string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, apperror.NotFound(apperror.CodeUnknownToken, symbol)
	}
	return a, nil
}

// ByAddress retrieves a token by contract address.
func (r *Registry) ByAddress(address common.Address) (*Asset, bool) {
	if address == (common.Address{}) {
		return r.Native()
	}
	return r.Get(TokenID(r.chainID, address))
}

// Native returns the chain's native coin, if registered.
func (r *Registry) Native() (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.native, r.native != nil
}

// Resolve returns the routable ERC20 for symbol: the native coin resolves to
// its wrapped token.
func (r *Registry) Resolve(symbol string) (*Asset, error) {
	a, err := r.BySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !a.IsNative() {
		return a, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.wrapped == nil {
		return nil, apperror.NotFound(apperror.CodeUnknownToken, symbol+" has no wrapped token")
	}
	return r.wrapped, nil
}

// Tokens returns every ERC20 token sorted by symbol.
func (r *Registry) Tokens() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		if !a.IsNative() {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol() < result[j].Symbol() })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Has returns true if an asset with the given ID is registered.
func (r *Registry) Has(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Label formats an address as its symbol when known, else as a short hex.
func (r *Registry) Label(address common.Address) string {
	if a, ok := r.ByAddress(address); ok {
		return a.Symbol()
	}
	hex := address.Hex()
	return hex[:6] + ".." + hex[len(hex)-4:]
}
