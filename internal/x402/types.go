// Package x402 implements the payment state machine: the HTTP middleware
// that turns a priced request into a 402 challenge, verifies a signed
// payload, settles through the external relay, classifies failure into a
// retry-aware taxonomy, and binds payer identity for downstream handlers.
//
// Adapted from the teacher gateway's x402.Middleware (kshinn-umbra-gateway),
// generalized from a single fixed USDC/EIP-3009 requirement and batch JWT
// credits to spec.md's per-request, multi-token, settle-and-go design.
package x402

import (
	"encoding/json"

	"github.com/umbra-labs/x402-gateway/internal/pricing"
)

// ProtocolVersion is the x402 protocol version this gateway speaks.
const ProtocolVersion = 2

// PaymentRequirement is one entry of a challenge's "accepts" list: the
// price, token, and recipient a client may satisfy it with.
type PaymentRequirement struct {
	Scheme            string            `json:"scheme"`
	Network           string            `json:"network"`
	Amount            string            `json:"amount"`
	Asset             string            `json:"asset,omitempty"`
	PayTo             string            `json:"payTo"`
	MaxTimeoutSeconds int               `json:"maxTimeoutSeconds"`
	Extra             map[string]any    `json:"extra,omitempty"`
}

// Resource identifies the priced resource a challenge is advertising.
type Resource struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// PaymentRequired is the 402 challenge body, emitted both as JSON and as a
// base64-encoded copy of the same JSON in the Payment-Required header.
type PaymentRequired struct {
	X402Version int                  `json:"x402Version"`
	Resource    Resource             `json:"resource"`
	Accepts     []PaymentRequirement `json:"accepts"`
}

// PaymentPayload is what a client sends back after signing a challenge: the
// accepted requirement it chose, plus an opaque signed transfer blob the
// gateway forwards verbatim to the settlement relay.
type PaymentPayload struct {
	X402Version int             `json:"x402Version"`
	Accepted    PaymentRequirement `json:"accepted"`
	Payload     json.RawMessage `json:"payload"`
}

// SettlementResult is the outcome of handing a signed transfer to the
// external settlement relay. Invariant: Success implies Payer is non-empty.
type SettlementResult struct {
	Success       bool   `json:"success"`
	Transaction   string `json:"transaction,omitempty"`
	Payer         string `json:"payer,omitempty"`
	ErrorReason   string `json:"errorReason,omitempty"`
}

// tokenExtra carries tier/estimate metadata and optional discovery hints
// inside a PaymentRequirement's Extra map.
func tokenExtra(tier pricing.Tier, est pricing.PriceEstimate) map[string]any {
	extra := map[string]any{"tier": tier.String()}
	if est.HasModel() {
		extra["model"] = est.ModelID
		extra["estimatedInputTokens"] = est.EstimatedInputTokens
		extra["estimatedOutputTokens"] = est.EstimatedOutputTokens
	}
	return extra
}
