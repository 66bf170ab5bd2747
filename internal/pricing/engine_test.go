package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedEstimateFreeTierIsZero(t *testing.T) {
	est, err := FixedEstimate(Free, Native)
	require.NoError(t, err)
	assert.Equal(t, "0", est.Amount.String())
}

func TestFixedEstimateDeterministic(t *testing.T) {
	a, err := FixedEstimate(Standard, Native)
	require.NoError(t, err)
	b, err := FixedEstimate(Standard, Native)
	require.NoError(t, err)
	assert.Equal(t, a.Amount.String(), b.Amount.String())
}

func TestFixedEstimateStandardNativeMatchesDocumentedScenario(t *testing.T) {
	est, err := FixedEstimate(Standard, Native)
	require.NoError(t, err)
	assert.Equal(t, "1000", est.Amount.String())
}

func TestFixedEstimateClampsToMinimum(t *testing.T) {
	est, err := FixedEstimate(Standard, BridgedUSD)
	require.NoError(t, err)
	min := Minimum(BridgedUSD)
	assert.True(t, est.Amount.Cmp(min) >= 0)
}

type stubCatalog struct {
	lookup CatalogLookup
}

func (s stubCatalog) Lookup(string) CatalogLookup { return s.lookup }

func TestChatCompletionEstimatorUsesCatalogPricing(t *testing.T) {
	cat := stubCatalog{lookup: CatalogLookup{Valid: true, Pricing: &ModelPricing{
		PromptPerK:     decimal.NewFromFloat(0.001),
		CompletionPerK: decimal.NewFromFloat(0.002),
	}}}

	req := ChatRequest{Model: "X", Messages: []ChatMessage{{Role: "user", Content: "hi"}}}
	est, err := ChatCompletionEstimator(context.Background(), req, Native, cat)
	require.NoError(t, err)
	assert.Equal(t, 1, est.EstimatedInputTokens)
	assert.Equal(t, 2, est.EstimatedOutputTokens)
	assert.True(t, est.Amount.Cmp(Minimum(Native)) >= 0)
}

func TestChatCompletionEstimatorUnknownModel(t *testing.T) {
	cat := stubCatalog{lookup: CatalogLookup{Valid: false}}
	req := ChatRequest{Model: "does-not-exist", Messages: []ChatMessage{{Role: "user", Content: "hi"}}}
	_, err := ChatCompletionEstimator(context.Background(), req, Native, cat)
	require.Error(t, err)
}

func TestChatCompletionEstimatorFallsBackWhenCacheEmpty(t *testing.T) {
	cat := stubCatalog{lookup: CatalogLookup{Valid: true, Pricing: nil}}
	req := ChatRequest{Model: "openrouter/auto", Messages: []ChatMessage{{Role: "user", Content: "hello there"}}}
	est, err := ChatCompletionEstimator(context.Background(), req, Native, cat)
	require.NoError(t, err)
	assert.Equal(t, "openrouter/auto", est.ModelID)
}
