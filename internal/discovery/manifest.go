// Package discovery builds the gateway's machine-readable documents: the
// versioned x402 payment manifest (GET /x402.json) and the free discovery
// documents (agent card, llms.txt variants, topic index). Both are pure
// functions of the endpoint registry and server configuration — no live
// fetches.
//
// Grounded on the teacher gateway's config-driven startup
// (kshinn-umbra-gateway/gateway/config/config.go): this package takes the
// same "read config, produce a static artifact" shape and applies it to a
// document instead of a process setting.
package discovery

import (
	"context"
	"fmt"

	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/x402"
)

// Item is one priced resource entry in the manifest.
type Item struct {
	Resource    string                   `json:"resource"`
	Type        string                   `json:"type"`
	X402Version int                      `json:"x402Version"`
	Accepts     []x402.PaymentRequirement `json:"accepts"`
	LastUpdated int64                    `json:"lastUpdated"`
	Metadata    map[string]any           `json:"metadata"`
	Extensions  map[string]any           `json:"extensions,omitempty"`
}

// Manifest is the top-level GET /x402.json document.
type Manifest struct {
	X402Version int    `json:"x402Version"`
	Items       []Item `json:"items"`
}

// pathTemplateToRoute converts chi's "{name}" path params (already the
// registry's own syntax) into the manifest's own "{name}" template —
// normalized here so a future routing-syntax change doesn't leak into the
// published manifest.
func pathTemplateToRoute(path string) string {
	return path
}

// Build assembles the manifest from every priced entry in reg. now is the
// unix timestamp stamped on every item as lastUpdated; callers supply it so
// the function stays a pure transform of its inputs.
func Build(reg *registry.Registry, cfg *config.Config, catalog pricing.Catalog, now int64) (Manifest, error) {
	items := make([]Item, 0, len(reg.Priced()))

	for _, entry := range reg.Priced() {
		var accepts []x402.PaymentRequirement
		for _, token := range pricing.AllTokens {
			var asset string
			if token != pricing.Native {
				contract, ok := pricing.ContractFor(token, cfg.Network)
				if !ok {
					continue
				}
				asset = contract.Address + "." + contract.Name
			}

			var est pricing.PriceEstimate
			var err error
			if entry.Tier == pricing.Dynamic {
				est, err = pricing.Estimate(context.Background(), entry.EstimatorID, pricing.ChatRequest{}, token, catalog)
			} else {
				est, err = pricing.FixedEstimate(entry.Tier, token)
			}
			if err != nil {
				continue // unsupported token/tier combination: dropped, per spec.md §4.6
			}
			if est.Amount.Sign() == 0 {
				continue
			}

			accepts = append(accepts, x402.PaymentRequirement{
				Scheme:            "exact",
				Network:           cfg.Network.ChainID(),
				Amount:            est.Amount.String(),
				Asset:             asset,
				PayTo:             cfg.RecipientAddress,
				MaxTimeoutSeconds: entry.Tier.TimeoutSeconds(),
			})
		}
		if len(accepts) == 0 {
			continue
		}

		items = append(items, Item{
			Resource:    resourceURL(cfg.GatewayURL, pathTemplateToRoute(entry.Path)),
			Type:        "http",
			X402Version: x402.ProtocolVersion,
			Accepts:     accepts,
			LastUpdated: now,
			Metadata:    map[string]any{"category": entry.Category, "method": entry.Method, "tier": entry.Tier.String()},
		})
	}

	return Manifest{X402Version: x402.ProtocolVersion, Items: items}, nil
}

func resourceURL(base, path string) string {
	return fmt.Sprintf("%s%s", base, path)
}
