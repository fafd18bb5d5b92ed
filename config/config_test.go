package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("expected ChunkSize=500, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("expected ChunkOverlap=50, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.Metric != "cosine" {
		t.Errorf("expected Metric=cosine, got %s", cfg.Retrieve.Metric)
	}
	if cfg.Retrieve.Reranker != "lexical" {
		t.Errorf("expected Reranker=lexical, got %s", cfg.Retrieve.Reranker)
	}
	if cfg.Retrieve.RerankCandidates != 10 {
		t.Errorf("expected RerankCandidates=10, got %d", cfg.Retrieve.RerankCandidates)
	}
	if cfg.Embedding.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.Embedding.MaxRetries)
	}
	if cfg.Guardrails.MaxQueryLength != 300 {
		t.Errorf("expected MaxQueryLength=300, got %d", cfg.Guardrails.MaxQueryLength)
	}
	if len(cfg.Guardrails.InputStages) != 3 {
		t.Errorf("expected 3 input stages, got %d", len(cfg.Guardrails.InputStages))
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
ingest:
  chunk_size: 256
  chunk_overlap: 32
retrieve:
  top_k: 10
guardrails:
  max_query_length: 120
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.ChunkSize != 256 {
		t.Errorf("expected ChunkSize=256, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 32 {
		t.Errorf("expected ChunkOverlap=32, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Guardrails.MaxQueryLength != 120 {
		t.Errorf("expected MaxQueryLength=120, got %d", cfg.Guardrails.MaxQueryLength)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
generation:
  context_budget: 4000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generation.ContextBudget != 4000 {
		t.Errorf("expected ContextBudget=4000, got %d", cfg.Generation.ContextBudget)
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/docs")
	expected := filepath.Join("/home/user/docs", ".docrag", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
