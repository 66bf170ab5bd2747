package pricing

import "github.com/shopspring/decimal"

// fallbackModelPrices is the compiled-in model price table used when the
// Model Catalog Cache is empty or its refresh has failed. Kept intentionally
// small: a handful of well-known models across the providers spec.md names.
var fallbackModelPrices = map[string]ModelPricing{
	"openrouter/auto": {
		PromptPerK:     decimal.NewFromFloat(0.0005),
		CompletionPerK: decimal.NewFromFloat(0.0015),
	},
	"anthropic/claude-3-haiku": {
		PromptPerK:     decimal.NewFromFloat(0.00025),
		CompletionPerK: decimal.NewFromFloat(0.00125),
	},
	"openai/gpt-4o-mini": {
		PromptPerK:     decimal.NewFromFloat(0.00015),
		CompletionPerK: decimal.NewFromFloat(0.0006),
	},
	"@cf/meta/llama-3.1-8b-instruct": {
		PromptPerK:     decimal.NewFromFloat(0.0001),
		CompletionPerK: decimal.NewFromFloat(0.0002),
	},
}
