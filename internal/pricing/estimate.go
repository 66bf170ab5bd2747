package pricing

import (
	"github.com/shopspring/decimal"
)

// PriceEstimate is the output of both the fixed-tier and dynamic pricing
// surfaces: an atomic amount in Token's units, plus USD figures for
// observability.
type PriceEstimate struct {
	Amount               BigAmount
	Token                TokenKind
	ModelID              string
	EstimatedInputTokens  int
	EstimatedOutputTokens int
	USDPreMargin          decimal.Decimal
	USDPostMargin         decimal.Decimal
}

// HasModel reports whether this estimate carries dynamic-pricing model metadata.
func (e PriceEstimate) HasModel() bool { return e.ModelID != "" }
