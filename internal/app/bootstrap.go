package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"virtualrag/internal/adapter/gemini"
	"virtualrag/internal/adapter/ollama"
	"virtualrag/internal/adapter/reranker"
	"virtualrag/internal/config"
	"virtualrag/internal/index"
	"virtualrag/internal/retrieval"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLM streams completions and answers liveness probes.
type LLM interface {
	retrieval.LLM
	Ping(ctx context.Context) error
}

// Dependencies are the external collaborators the application is wired
// with, constructed once at startup.
type Dependencies struct {
	Index    index.Index
	Embedder Embedder
	LLM      LLM
	Reranker retrieval.Reranker
}

// Bootstrap builds the configured index backend and model adapters. An
// unreachable Ollama is logged but not fatal: the server starts degraded
// and recovers when the model comes up.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	idx, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	llm := ollama.NewLLM(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens)

	var embedder Embedder
	switch cfg.EmbedProvider {
	case "gemini":
		embedder, err = gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("gemini embedder error: %w", err)
		}
	default:
		embedder = ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbedModel)
	}

	if err := llm.Ping(ctx); err != nil {
		logger.Warn("ollama is not reachable, responses will fail until it is up",
			"url", cfg.OllamaURL, "error", err)
	} else {
		logger.Info("ollama reachable", "url", cfg.OllamaURL, "model", cfg.LLMModel)
	}

	deps := &Dependencies{Index: idx, Embedder: embedder, LLM: llm}
	if cfg.RerankProvider != "" {
		deps.Reranker = reranker.NewClient(cfg.RerankProvider, cfg.RerankAPIKey)
	}
	return deps, nil
}

func buildIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (index.Index, error) {
	switch cfg.IndexBackend {
	case "memory":
		logger.Warn("using in-memory index, documents will not survive a restart")
		return index.NewMemory(), nil
	case "weaviate":
		client, err := weaviate.NewClient(weaviate.Config{
			Host:   cfg.WeaviateHost,
			Scheme: cfg.WeaviateScheme,
		})
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}
		idx := index.NewWeaviate(client)
		delay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
		if err := EnsureSchemaWithRetry(ctx, idx, cfg.BootstrapRetryAttempts, delay); err != nil {
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}
		logger.Info("weaviate schema ensured", "host", cfg.WeaviateHost)
		return idx, nil
	default:
		idx, err := index.OpenSQLite(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("sqlite index error: %w", err)
		}
		logger.Info("sqlite index ready", "path", cfg.IndexPath)
		return idx, nil
	}
}

// EnsureSchemaWithRetry keeps trying the schema check until the remote
// store is up or the attempts are spent.
func EnsureSchemaWithRetry(ctx context.Context, idx *index.Weaviate, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = idx.EnsureSchema(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
			time.Sleep(delay)
		}
	}
	return err
}
