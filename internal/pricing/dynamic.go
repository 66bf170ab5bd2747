package pricing

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ModelPricing is the per-1k-token USD cost of a chat model.
type ModelPricing struct {
	PromptPerK     decimal.Decimal
	CompletionPerK decimal.Decimal
}

// CatalogLookup is the result of asking the Model Catalog Cache (or its
// compiled-in fallback) for a model's pricing.
type CatalogLookup struct {
	Valid   bool // false only for "model known-bad"; empty cache still reports Valid=true
	Pricing *ModelPricing
}

// Catalog is the dependency the dynamic estimator needs from the Model
// Catalog Cache component. Implemented by *modelcatalog.Cache.
type Catalog interface {
	Lookup(model string) CatalogLookup
}

// ChatMessage is one message of a dynamic-priced chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body shape dynamic inference endpoints price from.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens *int          `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream,omitempty"`
}

const (
	dynamicMargin        = 0.20
	dynamicMinimumUSD     = 0.001
	defaultMaxOutputTokens = 1024
)

// ErrUnknownModel is returned when the catalog is populated and authoritative
// but does not recognize the requested model.
var ErrUnknownModel = fmt.Errorf("unknown model")

// Estimator computes a PriceEstimate from a parsed chat request.
type Estimator func(ctx context.Context, req ChatRequest, token TokenKind, catalog Catalog) (PriceEstimate, error)

// estimatorRegistry is the static registry of dynamic pricing estimators,
// keyed by the estimator id a PriceSpec references. Registration happens at
// package init via RegisterEstimator.
var estimatorRegistry = map[string]Estimator{}

// RegisterEstimator adds id to the static estimator registry.
func RegisterEstimator(id string, fn Estimator) {
	estimatorRegistry[id] = fn
}

// Estimate dispatches to the estimator registered under id.
func Estimate(ctx context.Context, id string, req ChatRequest, token TokenKind, catalog Catalog) (PriceEstimate, error) {
	fn, ok := estimatorRegistry[id]
	if !ok {
		return PriceEstimate{}, fmt.Errorf("no estimator registered for id %q", id)
	}
	return fn(ctx, req, token, catalog)
}

func init() {
	RegisterEstimator("chat-completion", ChatCompletionEstimator)
}

// ChatCompletionEstimator implements the dynamic pricing algorithm from
// spec.md §4.1: resolve model pricing (cache, falling back to a compiled-in
// table), estimate input/output tokens from the request shape, apply margin
// and the USD minimum, then convert to atomic units of token.
func ChatCompletionEstimator(_ context.Context, req ChatRequest, token TokenKind, catalog Catalog) (PriceEstimate, error) {
	modelPricing, err := resolveModelPricing(req.Model, catalog)
	if err != nil {
		return PriceEstimate{}, err
	}

	totalChars := 0
	for _, m := range req.Messages {
		totalChars += len(m.Content)
	}
	inputTokens := int(math.Ceil(float64(totalChars) / 4.0))
	if inputTokens < 1 {
		inputTokens = 1
	}

	maxOut := defaultMaxOutputTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxOut = *req.MaxTokens
	}
	outputTokens := maxOut
	if cap := 2 * inputTokens; cap < outputTokens {
		outputTokens = cap
	}

	costUSD := decimal.NewFromInt(int64(inputTokens)).Mul(modelPricing.PromptPerK).Div(decimal.NewFromInt(1000)).
		Add(decimal.NewFromInt(int64(outputTokens)).Mul(modelPricing.CompletionPerK).Div(decimal.NewFromInt(1000)))

	margined := costUSD.Mul(decimal.NewFromFloat(1 + dynamicMargin))
	minimum := decimal.NewFromFloat(dynamicMinimumUSD)
	finalUSD := margined
	if finalUSD.LessThan(minimum) {
		finalUSD = minimum
	}

	atomic := ConvertUSD(finalUSD, token)

	return PriceEstimate{
		Amount:                NewBigAmount(atomic),
		Token:                 token,
		ModelID:               req.Model,
		EstimatedInputTokens:  inputTokens,
		EstimatedOutputTokens: outputTokens,
		USDPreMargin:          costUSD,
		USDPostMargin:         finalUSD,
	}, nil
}

// resolveModelPricing consults catalog, falling back to the compiled-in
// table when the cache is empty or its refresh has failed.
func resolveModelPricing(model string, catalog Catalog) (ModelPricing, error) {
	if catalog != nil {
		lookup := catalog.Lookup(model)
		if lookup.Pricing != nil {
			return *lookup.Pricing, nil
		}
		if !lookup.Valid {
			return ModelPricing{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
		}
		// lookup.Valid && lookup.Pricing == nil means "cache unavailable,
		// caller must fall back" — fall through to the compiled-in table.
	}

	if p, ok := fallbackModelPrices[model]; ok {
		return p, nil
	}
	return ModelPricing{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
}
