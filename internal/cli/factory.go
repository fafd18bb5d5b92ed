package cli

import (
	"fmt"
	"time"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/store"
	"docrag/internal/port"
)

// openStore opens the bolt file under the data directory and builds the
// vector index over it.
func openStore(dir string, cfg *config.Config) (*store.BoltStore, *store.BoltVectorIndex, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index store: %w", err)
	}

	idx, err := store.NewBoltVectorIndex(st.DB(), cfg.Embedding.Dimension, cfg.Retrieve.Metric)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	return st, idx, nil
}

// newEmbedder builds the configured embedding backend.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	opts := embedding.Options{
		BatchSize:  cfg.Embedding.BatchSize,
		MaxRetries: cfg.Embedding.MaxRetries,
		Backoff:    time.Duration(cfg.Embedding.RetryBackoffMS) * time.Millisecond,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	}

	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, opts)
		}
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, opts)
	case "groq":
		return embedding.NewGroqEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, opts)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, opts)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newLLM builds the configured generation backend.
func newLLM(cfg *config.Config) (port.LLM, error) {
	opts := llm.Options{
		MaxRetries: cfg.Generation.MaxRetries,
		Backoff:    time.Duration(cfg.Generation.RetryBackoffMS) * time.Millisecond,
		Timeout:    time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	}

	switch cfg.Generation.Provider {
	case "openai":
		if cfg.Generation.BaseURL != "" {
			return llm.NewOpenAICompatibleClient(cfg.Generation.APIKeyEnv, cfg.Generation.Model, cfg.Generation.BaseURL, opts)
		}
		return llm.NewOpenAIClient(cfg.Generation.APIKeyEnv, cfg.Generation.Model, opts)
	case "groq":
		return llm.NewGroqClient(cfg.Generation.APIKeyEnv, cfg.Generation.Model, opts)
	case "mock":
		return llm.NewMockLLM("mock answer"), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Generation.Provider)
	}
}
