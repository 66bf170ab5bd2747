// Package pricing implements the Pricing Engine: fixed-tier and dynamic
// (per-token-estimate) price derivation, minimum enforcement, margin, and
// cross-token conversion.
package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FixedEstimate computes the PriceEstimate for a free or standard tier
// priced in token. Free always yields amount zero and bypasses settlement.
func FixedEstimate(tier Tier, token TokenKind) (PriceEstimate, error) {
	if tier == Dynamic {
		return PriceEstimate{}, fmt.Errorf("FixedEstimate called with dynamic tier")
	}
	if tier == Free {
		return PriceEstimate{Amount: NewBigAmount(big.NewInt(0)), Token: token}, nil
	}

	usdPerSTX := decimal.NewFromFloat(USDRate(Native))
	usdPerToken := decimal.NewFromFloat(USDRate(token))
	stxAmount := decimal.NewFromFloat(standardSTX)

	usd := stxAmount.Mul(usdPerSTX)
	tokenAmount := usd.Div(usdPerToken)
	atomic := ToAtomicUnits(tokenAmount, token)

	atomic = clampToMinimum(atomic, token)

	return PriceEstimate{
		Amount:        NewBigAmount(atomic),
		Token:         token,
		USDPreMargin:  usd,
		USDPostMargin: usd,
	}, nil
}

// ToAtomicUnits rounds a fractional token amount (expressed in whole
// tokens) to the nearest atomic unit for token, per its decimals.
func ToAtomicUnits(amount decimal.Decimal, token TokenKind) *big.Int {
	scale := decimal.New(1, Decimals(token))
	atomic := amount.Mul(scale).Round(0)
	return atomic.BigInt()
}

// clampToMinimum raises amount up to token's enforced minimum, per the
// invariant amount >= minimum(token, tier).
func clampToMinimum(amount *big.Int, token TokenKind) *big.Int {
	min := Minimum(token)
	if amount.Cmp(min) < 0 {
		return new(big.Int).Set(min)
	}
	return amount
}

// ConvertUSD converts a USD amount into atomic units of token.
func ConvertUSD(amountUSD decimal.Decimal, token TokenKind) *big.Int {
	usdPerToken := decimal.NewFromFloat(USDRate(token))
	tokenAmount := amountUSD.Div(usdPerToken)
	return clampToMinimum(ToAtomicUnits(tokenAmount, token), token)
}
