package discovery

import (
	"strings"

	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/registry"
)

// AgentCard is the GET /.well-known/agent.json document: a minimal
// machine-readable description of the service for agent discovery crawlers.
type AgentCard struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Manifest    string   `json:"x402Manifest"`
	Categories  []string `json:"categories"`
}

// BuildAgentCard assembles the agent card from cfg and the registry's
// distinct categories.
func BuildAgentCard(reg *registry.Registry, cfg *config.Config) AgentCard {
	seen := make(map[string]bool)
	var categories []string
	for _, e := range reg.Priced() {
		if !seen[e.Category] {
			seen[e.Category] = true
			categories = append(categories, e.Category)
		}
	}
	return AgentCard{
		Name:        "x402 gateway",
		Description: "Pay-per-call compute, storage, and blockchain utility endpoints gated by the x402 micropayment protocol.",
		URL:         cfg.GatewayURL,
		Manifest:    cfg.GatewayURL + "/x402.json",
		Categories:  categories,
	}
}

// BuildLLMsTxt produces the terse GET /llms.txt summary: one line per
// category, pointing agents at the full manifest for pricing detail.
func BuildLLMsTxt(reg *registry.Registry, cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("# x402 gateway\n\n")
	b.WriteString("Pay-per-call endpoints behind the x402 micropayment protocol.\n")
	b.WriteString("Full pricing manifest: " + cfg.GatewayURL + "/x402.json\n\n")

	for _, topic := range Topics(reg) {
		b.WriteString("- " + topic.Name + ": " + topic.Description + "\n")
	}
	return b.String()
}

// BuildLLMsFullTxt produces the verbose GET /llms-full.txt document: every
// priced route, its tier, and its category.
func BuildLLMsFullTxt(reg *registry.Registry, cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("# x402 gateway — full endpoint reference\n\n")

	for _, e := range reg.Priced() {
		b.WriteString("## " + e.Method + " " + e.Path + "\n")
		b.WriteString("tier: " + e.Tier.String() + "\n")
		b.WriteString("category: " + e.Category + "\n\n")
	}
	return b.String()
}

// Topic groups priced endpoints by category for the /topics documents.
type Topic struct {
	Name        string
	Description string
	Endpoints   []string
}

// Topics derives the topic index from the registry's categories.
func Topics(reg *registry.Registry) []Topic {
	byCategory := make(map[string][]string)
	var order []string
	for _, e := range reg.Priced() {
		if _, ok := byCategory[e.Category]; !ok {
			order = append(order, e.Category)
		}
		byCategory[e.Category] = append(byCategory[e.Category], e.Method+" "+e.Path)
	}

	topics := make([]Topic, 0, len(order))
	for _, name := range order {
		topics = append(topics, Topic{
			Name:        name,
			Description: "Priced endpoints under the " + name + " category.",
			Endpoints:   byCategory[name],
		})
	}
	return topics
}

// TopicByName finds one topic, or reports found=false.
func TopicByName(reg *registry.Registry, name string) (Topic, bool) {
	for _, t := range Topics(reg) {
		if t.Name == name {
			return t, true
		}
	}
	return Topic{}, false
}
