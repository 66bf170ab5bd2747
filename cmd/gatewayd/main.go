// Command gatewayd runs the x402 gateway HTTP server: it wires the
// configured adapters, the model catalog cache, the endpoint registry, and
// the payment state machine onto one chi.Router and serves it.
//
// Adapted from the teacher gateway's main.go (kshinn-umbra-gateway), which
// wires one RPC proxy behind one middleware; here the same "load config,
// build dependencies, mount, listen" shape wires a whole endpoint registry
// behind the payment state machine instead.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/umbra-labs/x402-gateway/internal/adapters/embeddings"
	"github.com/umbra-labs/x402-gateway/internal/adapters/inference"
	"github.com/umbra-labs/x402-gateway/internal/adapters/moderation"
	"github.com/umbra-labs/x402-gateway/internal/adapters/relay"
	"github.com/umbra-labs/x402-gateway/internal/adapters/stacks"
	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/discovery"
	"github.com/umbra-labs/x402-gateway/internal/handlers/hashing"
	"github.com/umbra-labs/x402-gateway/internal/handlers/inferenceh"
	"github.com/umbra-labs/x402-gateway/internal/handlers/stacksh"
	"github.com/umbra-labs/x402-gateway/internal/handlers/storage"
	"github.com/umbra-labs/x402-gateway/internal/hashutil"
	"github.com/umbra-labs/x402-gateway/internal/logsink"
	"github.com/umbra-labs/x402-gateway/internal/metrics"
	"github.com/umbra-labs/x402-gateway/internal/modelcatalog"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/reqctx"
	"github.com/umbra-labs/x402-gateway/internal/safety"
	"github.com/umbra-labs/x402-gateway/internal/shard"
	"github.com/umbra-labs/x402-gateway/internal/x402"

	"log/slog"
)

const adapterTimeout = 30 * time.Second

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	sink := logsink.New(cfg.LogSinkURL, logger)
	sinkCtx, stopSink := context.WithCancel(context.Background())
	go sink.Run(sinkCtx)
	defer stopSink()

	shards := shard.NewManager(cfg.DataDir, logger)

	relayClient := relay.New(cfg.SettlementRelayURL, cfg.SettlementTimeout, logger)
	openRouter := inference.New("https://openrouter.ai/api/v1", cfg.InferenceProviderKey, adapterTimeout, logger)
	cloudflare := inference.New("https://api.cloudflare.com/client/v4/ai", cfg.InferenceProviderKey, adapterTimeout, logger)
	stacksClient := stacks.New("https://api.hiro.so", cfg.BlockchainLookupKey, adapterTimeout, logger)
	embedClient := embeddings.New("https://api.openai.com/v1", cfg.EmbeddingProviderKey, "text-embedding-3-small", adapterTimeout, logger)
	moderationClient := moderation.New("https://openrouter.ai/api/v1", cfg.ModerationProviderKey, "openai/gpt-4o-mini", adapterTimeout, logger)

	catalog := modelcatalog.New(openRouter, logger)
	scanner := safety.New(moderationClient, logger)
	recorder := metrics.New()

	mw := x402.New(x402.Config{
		Network:   cfg.Network,
		Recipient: cfg.RecipientAddress,
		Relay:     relayClient,
		Catalog:   catalog,
		Logger:    logger,
	})

	reg := registry.New()
	registerRoutes(reg, shards, scanner, stacksClient, openRouter, cloudflare, embedClient)

	router := chi.NewRouter()
	router.Use(reqctx.CorrelationMiddleware)
	router.Use(reqctx.RecoverMiddleware)
	router.Use(middleware.Compress(5))

	reg.Mount(router, mw, recorder)
	mountDiscoveryRoutes(router, reg, cfg, catalog)
	mountOpsRoutes(router, recorder)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
	}

	slog.Info("gateway starting", "addr", addr, "network", cfg.Network, "recipient", cfg.RecipientAddress)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "err", err)
		}
	}
}

// registerRoutes declares every (method, path) this gateway serves, mirroring
// the teacher's hand-wired route registration but through the registry table.
func registerRoutes(
	reg *registry.Registry,
	shards *shard.Manager,
	scanner *safety.Scanner,
	stacksClient *stacks.Client,
	openRouter, cloudflare *inference.Client,
	embedClient *embeddings.Client,
) {
	hashAlgorithms := []hashutil.Algorithm{
		hashutil.SHA256, hashutil.SHA512, hashutil.SHA512_256,
		hashutil.Keccak256, hashutil.Hash160, hashutil.Ripemd160,
	}
	for _, alg := range hashAlgorithms {
		reg.Register(registry.Entry{
			Method: http.MethodPost, Path: "/hashing/" + string(alg),
			Tier: pricing.Standard, Category: "hashing", Handler: hashing.New(alg),
		})
	}

	sh := stacksh.New(stacksClient)
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/stacks/address/{address}", Tier: pricing.Standard, Category: "stacks", Handler: sh.Address})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/stacks/decode/clarity", Tier: pricing.Standard, Category: "stacks", Handler: sh.DecodeClarity})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/stacks/decode/transaction", Tier: pricing.Standard, Category: "stacks", Handler: sh.DecodeTransaction})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/stacks/profile/{address}", Tier: pricing.Standard, Category: "stacks", Handler: sh.Profile})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/stacks/verify/message", Tier: pricing.Standard, Category: "stacks", Handler: sh.VerifyMessage})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/stacks/verify/sip018", Tier: pricing.Standard, Category: "stacks", Handler: sh.VerifySIP018})

	ih := inferenceh.New(openRouter, cloudflare)
	reg.Register(registry.Entry{
		Method: http.MethodPost, Path: "/inference/openrouter/chat", Tier: pricing.Dynamic,
		EstimatorID: "chat-completion", Category: "inference", Handler: ih.OpenRouterChat,
	})
	reg.Register(registry.Entry{
		Method: http.MethodPost, Path: "/inference/cloudflare/chat", Tier: pricing.Standard,
		Category: "inference", Handler: ih.CloudflareChat,
	})
	reg.Register(registry.Entry{
		Method: http.MethodGet, Path: "/{provider}/models", Tier: pricing.Free,
		Category: "inference", Handler: ih.Models,
	})

	st := storage.New(shards)
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/kv", Tier: pricing.Standard, Category: "storage", Handler: st.KVSet})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/kv", Tier: pricing.Standard, Category: "storage", Handler: st.KVList})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/kv/{key}", Tier: pricing.Standard, Category: "storage", Handler: st.KVGet})
	reg.Register(registry.Entry{Method: http.MethodDelete, Path: "/storage/kv/{key}", Tier: pricing.Standard, Category: "storage", Handler: st.KVDelete})

	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/paste", Tier: pricing.Standard, Category: "storage", Handler: st.PasteCreate(scanner)})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/paste/{id}", Tier: pricing.Standard, Category: "storage", Handler: st.PasteGet})
	reg.Register(registry.Entry{Method: http.MethodDelete, Path: "/storage/paste/{id}", Tier: pricing.Standard, Category: "storage", Handler: st.PasteDelete})

	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/db/query", Tier: pricing.Standard, Category: "storage", Handler: st.Query})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/db/execute", Tier: pricing.Standard, Category: "storage", Handler: st.Execute})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/db/schema", Tier: pricing.Standard, Category: "storage", Handler: st.Schema})

	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/sync/lock", Tier: pricing.Standard, Category: "storage", Handler: st.Lock})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/sync/unlock", Tier: pricing.Standard, Category: "storage", Handler: st.Unlock})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/sync/extend", Tier: pricing.Standard, Category: "storage", Handler: st.Extend})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/sync/status/{name}", Tier: pricing.Standard, Category: "storage", Handler: st.LockStatus})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/sync/list", Tier: pricing.Standard, Category: "storage", Handler: st.ListLocks})

	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/queue/push", Tier: pricing.Standard, Category: "storage", Handler: st.QueuePush})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/queue/pop", Tier: pricing.Standard, Category: "storage", Handler: st.QueuePop})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/queue/peek", Tier: pricing.Standard, Category: "storage", Handler: st.QueuePeek})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/queue/status", Tier: pricing.Standard, Category: "storage", Handler: st.QueueStatus})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/queue/clear", Tier: pricing.Standard, Category: "storage", Handler: st.QueueClear})

	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/memory/store", Tier: pricing.Standard, Category: "storage", Handler: st.MemoryStore(embedClient, scanner)})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/memory/search", Tier: pricing.Standard, Category: "storage", Handler: st.MemorySearch})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/memory/delete", Tier: pricing.Standard, Category: "storage", Handler: st.MemoryDelete})
	reg.Register(registry.Entry{Method: http.MethodGet, Path: "/storage/memory/list", Tier: pricing.Standard, Category: "storage", Handler: st.MemoryList})
	reg.Register(registry.Entry{Method: http.MethodPost, Path: "/storage/memory/clear", Tier: pricing.Standard, Category: "storage", Handler: st.MemoryClear})
}

// mountDiscoveryRoutes registers the free discovery documents directly on
// router rather than through the registry, since they describe the
// registry itself and must stay reachable without payment.
func mountDiscoveryRoutes(router chi.Router, reg *registry.Registry, cfg *config.Config, catalog pricing.Catalog) {
	router.Get("/x402.json", func(w http.ResponseWriter, r *http.Request) {
		manifest, err := discovery.Build(reg, cfg, catalog, time.Now().Unix())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, manifest)
	})
	router.Get("/.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, discovery.BuildAgentCard(reg, cfg))
	})
	router.Get("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(discovery.BuildLLMsTxt(reg, cfg)))
	})
	router.Get("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(discovery.BuildLLMsFullTxt(reg, cfg)))
	})
	router.Get("/topics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, discovery.Topics(reg))
	})
	router.Get("/topics/{name}", func(w http.ResponseWriter, r *http.Request) {
		topic, ok := discovery.TopicByName(reg, chi.URLParam(r, "name"))
		if !ok {
			http.Error(w, "topic not found", http.StatusNotFound)
			return
		}
		writeJSON(w, topic)
	})
}

// mountOpsRoutes registers the unpriced liveness and process-metrics
// endpoints, outside the registry since neither is a priced resource.
func mountOpsRoutes(router chi.Router, recorder *metrics.Recorder) {
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"service": "x402-gateway", "status": "ok"})
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok"})
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok"})
	})
	router.Get("/metrics/recent", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, recorder.Recent(100))
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
