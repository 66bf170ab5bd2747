package pricing

import (
	"fmt"
	"math/big"

	"github.com/umbra-labs/x402-gateway/internal/config"
)

// TokenKind is the closed set of tokens the gateway accepts payment in.
type TokenKind string

const (
	Native      TokenKind = "Native"
	BridgedBTC  TokenKind = "BridgedBTC"
	BridgedUSD  TokenKind = "BridgedUSD"
)

// AllTokens enumerates every TokenKind, in advertisement order.
var AllTokens = []TokenKind{Native, BridgedBTC, BridgedUSD}

// Contract identifies a SIP-010 fungible-token contract, scoped to a network.
type Contract struct {
	Address string
	Name    string
}

// tokenSpec is the static, compiled-in description of one token kind.
type tokenSpec struct {
	decimals    int32
	usdRate     float64 // fixed USD rate used only for pricing symmetry
	contracts   map[config.Network]Contract
}

var specs = map[TokenKind]tokenSpec{
	Native: {
		decimals: 6,
		usdRate:  1.25,
		// Invariant: Native has no contract.
	},
	BridgedBTC: {
		decimals: 8,
		usdRate:  65000.00,
		contracts: map[config.Network]Contract{
			config.Mainnet: {Address: "SP3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR", Name: "sbtc-token"},
			config.Testnet: {Address: "ST3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR", Name: "sbtc-token"},
		},
	},
	BridgedUSD: {
		decimals: 6,
		usdRate:  1.00,
		contracts: map[config.Network]Contract{
			config.Mainnet: {Address: "SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR", Name: "usda-token"},
			config.Testnet: {Address: "ST2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR", Name: "usda-token"},
		},
	},
}

// Decimals returns the atomic-unit decimal places for t.
func Decimals(t TokenKind) int32 { return specs[t].decimals }

// USDRate returns the fixed USD-per-token rate used for pricing symmetry.
func USDRate(t TokenKind) float64 { return specs[t].usdRate }

// ContractFor returns the SIP-010 contract for t on net, and whether one exists.
// Invariant: Native never has a contract.
func ContractFor(t TokenKind, net config.Network) (Contract, bool) {
	if t == Native {
		return Contract{}, false
	}
	c, ok := specs[t].contracts[net]
	return c, ok
}

// Minimum returns the minimum atomic amount enforced for t, below which the
// pricing engine clamps up.
func Minimum(t TokenKind) *big.Int {
	switch t {
	case Native:
		return big.NewInt(1000)
	case BridgedBTC:
		return big.NewInt(100)
	case BridgedUSD:
		return big.NewInt(1000)
	default:
		return big.NewInt(0)
	}
}

// ParseTokenKind validates a client-supplied token selector string.
func ParseTokenKind(s string) (TokenKind, error) {
	if s == "" {
		return Native, nil
	}
	for _, t := range AllTokens {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown token type: %q", s)
}

// AtomicUnits converts a fractional token amount into atomic units for t.
func AtomicUnits(amount float64, t TokenKind) *big.Int {
	scale := new(big.Float).SetFloat64(amount)
	factor := new(big.Float).SetInt(pow10(Decimals(t)))
	scale.Mul(scale, factor)
	out, _ := scale.Int(nil)
	return out
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
