package discovery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/registry"
)

func noop(w http.ResponseWriter, r *http.Request) {}

func testConfig() *config.Config {
	return &config.Config{
		Network:          config.Testnet,
		RecipientAddress: "ST000TESTRECIPIENT",
		GatewayURL:       "https://gateway.example",
	}
}

func TestBuildSkipsFreeEntries(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/free", Tier: pricing.Free, Handler: noop})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/paid", Tier: pricing.Standard, Category: "storage", Handler: noop})

	manifest, err := Build(reg, testConfig(), nil, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
	assert.Equal(t, "https://gateway.example/paid", manifest.Items[0].Resource)
}

func TestBuildNativeAcceptHasNoAssetButBridgedDoes(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/paid", Tier: pricing.Standard, Category: "storage", Handler: noop})

	manifest, err := Build(reg, testConfig(), nil, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)

	// All three tokens (native, sBTC, sUSD) have testnet contracts or are
	// native, so every token should produce an accept entry.
	assert.Len(t, manifest.Items[0].Accepts, len(pricing.AllTokens))

	var sawEmptyAsset, sawNonEmptyAsset bool
	for _, accept := range manifest.Items[0].Accepts {
		if accept.Asset == "" {
			sawEmptyAsset = true
		} else {
			sawNonEmptyAsset = true
		}
	}
	assert.True(t, sawEmptyAsset, "native accept should carry no asset field")
	assert.True(t, sawNonEmptyAsset, "bridged accepts should carry an asset field")
}

func TestBuildDropsItemWithNoAcceptedTokens(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{
		Method: http.MethodPost, Path: "/inference/chat", Tier: pricing.Dynamic,
		EstimatorID: "no-such-estimator", Category: "inference", Handler: noop,
	})

	manifest, err := Build(reg, testConfig(), nil, 100)
	require.NoError(t, err)
	assert.Len(t, manifest.Items, 0)
}

func TestBuildStampsLastUpdated(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/paid", Tier: pricing.Standard, Category: "storage", Handler: noop})

	manifest, err := Build(reg, testConfig(), nil, 12345)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
	assert.Equal(t, int64(12345), manifest.Items[0].LastUpdated)
}
