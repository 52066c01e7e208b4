package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrTooManyDecimals = errors.New("asset: more fractional digits than the token supports")
)

// Amount is a non-negative quantity of an asset in base units.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw. It panics on a nil asset or a negative value.
func NewAmount(a *Asset, raw *big.Int) Amount {
	switch {
	case a == nil:
		panic(ErrNilAsset)
	case raw == nil:
		raw = new(big.Int)
	case raw.Sign() < 0:
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// Raw returns a copy of the base-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

// Decimal scales the raw value by the token's decimals.
func (a Amount) Decimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.decimals))
}

func (a Amount) String() string {
	if a.asset == nil {
		return a.Decimal().String()
	}
	return a.Decimal().String() + " " + a.asset.symbol
}

// ParseDecimal converts a human quantity, such as 1.5 for 1.5 WETH, to base
// units. Fractions finer than the token's decimals are rejected rather than
// rounded.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.decimals))
	if !scaled.IsInteger() {
		return Amount{}, fmt.Errorf("%w: %s has %d", ErrTooManyDecimals, a.symbol, a.decimals)
	}
	return NewAmount(a, scaled.BigInt()), nil
}

// ParseString is ParseDecimal for command-line input.
func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: amount %q: %w", s, err)
	}
	return ParseDecimal(a, d)
}

// FormatRaw renders raw base units of a, e.g. "19743.5 USDC". Negative values
// such as balance deltas keep their sign.
func FormatRaw(a *Asset, raw *big.Int) string {
	if raw != nil && raw.Sign() < 0 {
		return "-" + NewAmount(a, new(big.Int).Neg(raw)).String()
	}
	return NewAmount(a, raw).String()
}
