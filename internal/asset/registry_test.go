package asset_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
)

func TestRegistry_Defaults(t *testing.T) {
	r := asset.DefaultRegistry()

	eth, ok := r.Native()
	if !ok || eth.Symbol() != "ETH" {
		t.Fatalf("expected native ETH, got %v", eth)
	}

	usdc, err := r.BySymbol("usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usdc.Decimals() != 6 {
		t.Errorf("expected 6 decimals, got %d", usdc.Decimals())
	}

	dai, ok := r.ByAddress(common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	if !ok || dai.Symbol() != "DAI" {
		t.Errorf("expected DAI by address, got %v", dai)
	}
}

func TestRegistry_ResolveNativeToWrapped(t *testing.T) {
	r := asset.DefaultRegistry()

	got, err := r.Resolve("ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Address() != asset.AddrWETHEthereum {
		t.Errorf("expected WETH, got %s", got.Symbol())
	}

	_, err = r.Resolve("NOPE")
	if !apperror.HasCode(err, apperror.CodeUnknownToken) {
		t.Errorf("expected UNKNOWN_TOKEN, got %v", err)
	}
}

func TestRegistry_RegisterTokens(t *testing.T) {
	r := asset.DefaultRegistry()
	before := r.Count()

	err := r.RegisterTokens([]asset.TokenSpec{
		{Symbol: "USDC", Address: asset.AddrUSDCEthereum.Hex(), Decimals: 6},
		{Symbol: "PEPE", Name: "Pepe", Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Decimals: 18},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Count() != before+1 {
		t.Errorf("expected %d assets, got %d", before+1, r.Count())
	}

	err = r.RegisterTokens([]asset.TokenSpec{{Symbol: "DAI", Address: "0x0000000000000000000000000000000000000001", Decimals: 18}})
	if err == nil {
		t.Error("expected duplicate symbol error")
	}

	err = r.RegisterTokens([]asset.TokenSpec{{Symbol: "BAD", Address: "not-hex"}})
	if err == nil {
		t.Error("expected invalid address error")
	}
}

func TestRegistry_TokensSortedAndLabel(t *testing.T) {
	r := asset.DefaultRegistry()

	tokens := r.Tokens()
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1].Symbol() > tokens[i].Symbol() {
			t.Fatalf("tokens not sorted: %s before %s", tokens[i-1].Symbol(), tokens[i].Symbol())
		}
	}
	for _, tok := range tokens {
		if tok.IsNative() {
			t.Errorf("native coin listed among tokens")
		}
	}

	if got := r.Label(asset.AddrWBTCEthereum); got != "WBTC" {
		t.Errorf("expected WBTC label, got %s", got)
	}
	if got := r.Label(common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")); got != "0x1234..5678" {
		t.Errorf("unexpected label %s", got)
	}
}

func TestRegistry_RejectsOtherChain(t *testing.T) {
	r := asset.NewChainRegistry(asset.ChainIDSepolia)
	if err := r.Register(asset.USDC); err == nil {
		t.Error("expected chain mismatch error")
	}
}
