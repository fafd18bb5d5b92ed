package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docrag pipeline.
type Config struct {
	Ingest     IngestConfig     `yaml:"ingest"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Guardrails GuardrailConfig  `yaml:"guardrails"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IngestConfig holds extraction and chunking configuration.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`     // max chunk length in characters
	ChunkOverlap int `yaml:"chunk_overlap"`  // characters carried between chunks
	MinChunkSize int `yaml:"min_chunk_size"` // shorter tails merge into the previous chunk
	PageWorkers  int `yaml:"page_workers"`   // concurrent page embedding workers
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "groq", "ollama", "mock"
	Model          string `yaml:"model"`    // e.g., "text-embedding-3-small"
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK             int    `yaml:"top_k"`
	Metric           string `yaml:"metric"`   // "cosine" or "dot"
	Reranker         string `yaml:"reranker"` // "lexical" or "none"
	RerankCandidates int    `yaml:"rerank_candidates"`
	RewriteQuery     bool   `yaml:"rewrite_query"` // rewrite questions with the LLM before retrieval
}

// GuardrailConfig holds the stage lists and per-stage thresholds.
type GuardrailConfig struct {
	InputStages        []string `yaml:"input_stages"`
	OutputStages       []string `yaml:"output_stages"`
	MaxQueryLength     int      `yaml:"max_query_length"`
	Languages          []string `yaml:"languages"` // empty = language stage always passes
	GroundingThreshold float64  `yaml:"grounding_threshold"`
}

// GenerationConfig holds language model configuration.
type GenerationConfig struct {
	Provider       string `yaml:"provider"` // "openai", "groq", "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	PromptTemplate string `yaml:"prompt_template"` // empty = built-in template
	ContextBudget  int    `yaml:"context_budget"`  // max characters of retrieved context
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			MinChunkSize: 50,
			PageWorkers:  4,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			MaxRetries:     3,
			RetryBackoffMS: 500,
			TimeoutSeconds: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:             3,
			Metric:           "cosine",
			Reranker:         "lexical",
			RerankCandidates: 10,
		},
		Guardrails: GuardrailConfig{
			InputStages:        []string{"safety", "length", "language"},
			OutputStages:       []string{"grounding", "safety"},
			MaxQueryLength:     300,
			GroundingThreshold: 0.3,
		},
		Generation: GenerationConfig{
			Provider:       "groq",
			Model:          "llama-3.1-8b-instant",
			APIKeyEnv:      "GROQ_API_KEY",
			ContextBudget:  2000,
			MaxRetries:     3,
			RetryBackoffMS: 500,
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".docrag", "index.db")
}

// EnsureDataDir ensures the .docrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docrag"), 0755)
}
