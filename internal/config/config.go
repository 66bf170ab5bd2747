// Package config loads gateway configuration from the process environment,
// adapted from the teacher gateway's env-var loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Network identifies which Stacks network the gateway settles against.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ChainID returns the standardized chain-identifier string for net, used in
// discovery documents and payment requirements.
func (n Network) ChainID() string {
	switch n {
	case Mainnet:
		return "stacks:1"
	default:
		return "stacks:2147483648"
	}
}

// Config holds all gateway configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// Network selects mainnet or testnet recipient/contract addresses.
	Network Network

	// RecipientAddress is the gateway's receiving Stacks address for Network.
	RecipientAddress string

	// SettlementRelayURL is the external x402 settlement relay base URL.
	SettlementRelayURL string

	// InferenceProviderKey authenticates calls to the inference adapters.
	InferenceProviderKey string

	// BlockchainLookupKey optionally authenticates the Stacks lookup adapter.
	BlockchainLookupKey string

	// EmbeddingProviderKey authenticates calls to the embedding adapter.
	EmbeddingProviderKey string

	// ModerationProviderKey authenticates calls to the safety-scan adapter.
	ModerationProviderKey string

	// LogSinkURL is the external structured-logging sink endpoint. Empty
	// disables the async forwarder (logs stay local only).
	LogSinkURL string

	// GatewayURL is this gateway's own public base URL, used in challenge
	// resource fields and discovery documents.
	GatewayURL string

	// DataDir is the filesystem root under which payer shard databases live.
	DataDir string

	// SettlementTimeout bounds how long the gateway waits for the relay.
	SettlementTimeout time.Duration
}

// Load reads configuration from environment variables, optionally seeded by
// a .env file in the working directory (dev convenience; no-op if absent).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnvInt("PORT", 8080),
		Network:                Network(getEnv("NETWORK", string(Testnet))),
		RecipientAddress:       getEnv("RECIPIENT_ADDRESS", ""),
		SettlementRelayURL:     getEnv("SETTLEMENT_RELAY_URL", ""),
		InferenceProviderKey:   getEnv("INFERENCE_PROVIDER_KEY", ""),
		BlockchainLookupKey:    getEnv("BLOCKCHAIN_LOOKUP_KEY", ""),
		EmbeddingProviderKey:   getEnv("EMBEDDING_PROVIDER_KEY", ""),
		ModerationProviderKey:  getEnv("MODERATION_PROVIDER_KEY", ""),
		LogSinkURL:             getEnv("LOG_SINK_URL", ""),
		GatewayURL:             getEnv("GATEWAY_URL", "http://localhost:8080"),
		DataDir:                getEnv("DATA_DIR", "./data"),
		SettlementTimeout:      time.Duration(getEnvInt("SETTLEMENT_TIMEOUT_SECONDS", 120)) * time.Second,
	}

	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return nil, fmt.Errorf("NETWORK must be %q or %q, got %q", Mainnet, Testnet, cfg.Network)
	}
	if cfg.RecipientAddress == "" {
		return nil, fmt.Errorf("RECIPIENT_ADDRESS env var is required")
	}
	if cfg.SettlementRelayURL == "" {
		return nil, fmt.Errorf("SETTLEMENT_RELAY_URL env var is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
