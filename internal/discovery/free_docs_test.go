package discovery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/registry"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/free", Tier: pricing.Free, Category: "discovery", Handler: noop})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/hashing/sha256", Tier: pricing.Standard, Category: "hashing", Handler: noop})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/kv", Tier: pricing.Standard, Category: "storage", Handler: noop})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/kv/{key}", Tier: pricing.Standard, Category: "storage", Handler: noop})
	return reg
}

func TestBuildAgentCardListsDistinctCategoriesOnce(t *testing.T) {
	card := BuildAgentCard(testRegistry(), testConfig())
	assert.ElementsMatch(t, []string{"hashing", "storage"}, card.Categories)
	assert.Equal(t, "https://gateway.example/x402.json", card.Manifest)
}

func TestTopicsGroupsByCategoryPreservingOrder(t *testing.T) {
	topics := Topics(testRegistry())
	require.Len(t, topics, 2)
	assert.Equal(t, "hashing", topics[0].Name)
	assert.Equal(t, "storage", topics[1].Name)
	assert.ElementsMatch(t, []string{"POST /storage/kv", "GET /storage/kv/{key}"}, topics[1].Endpoints)
}

func TestTopicByNameMissingReportsNotFound(t *testing.T) {
	_, ok := TopicByName(testRegistry(), "does-not-exist")
	assert.False(t, ok)
}

func TestBuildLLMsTxtIncludesManifestLink(t *testing.T) {
	txt := BuildLLMsTxt(testRegistry(), testConfig())
	assert.Contains(t, txt, "https://gateway.example/x402.json")
	assert.Contains(t, txt, "hashing")
}

func TestBuildLLMsFullTxtListsEveryPricedRoute(t *testing.T) {
	txt := BuildLLMsFullTxt(testRegistry(), testConfig())
	assert.Contains(t, txt, "POST /hashing/sha256")
	assert.Contains(t, txt, "GET /storage/kv/{key}")
	assert.NotContains(t, txt, "GET /free")
}
