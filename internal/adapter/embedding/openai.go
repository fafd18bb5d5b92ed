package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docrag/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Transient failures are retried with bounded exponential backoff
// before an EmbeddingError surfaces.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	batchSize  int
	maxRetries int
	backoff    time.Duration
	client     *http.Client
}

// Options tune retry and transport behaviour shared by all providers.
type Options struct {
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(apiKeyEnv, model string, opts Options) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, "https://api.openai.com/v1", opts)
}

func NewGroqEmbedder(apiKeyEnv, model string, opts Options) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, "https://api.groq.com/openai/v1", opts)
}

func NewOllamaEmbedder(model, baseURL string, opts Options) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}

	dimension := 768
	switch model {
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}

	opts = opts.withDefaults()
	return &OpenAIEmbedder{
		apiKey:     "ollama",
		model:      model,
		baseURL:    baseURL,
		dimension:  dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string, opts Options) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	dimension := 1536
	switch model {
	case "text-embedding-3-small":
		dimension = 1536
	case "text-embedding-3-large":
		dimension = 3072
	case "text-embedding-ada-002":
		dimension = 1536
	}

	opts = opts.withDefaults()
	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dimension:  dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &domain.EmbeddingError{Attempts: 0, Err: errors.New("no input texts")}
	}
	for i, t := range texts {
		if t == "" {
			return nil, &domain.EmbeddingError{Attempts: 0, Err: fmt.Errorf("empty input at position %d", i)}
		}
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// embedWithRetry applies bounded exponential backoff around one batch
// call. Context cancellation stops the retry loop immediately.
func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		embeddings, err := e.embedBatch(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if attempt == e.maxRetries || ctx.Err() != nil {
			break
		}
		wait := e.backoff * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, &domain.EmbeddingError{Attempts: attempt, Err: ctx.Err()}
		}
	}

	return nil, &domain.EmbeddingError{Attempts: e.maxRetries, Err: lastErr}
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
