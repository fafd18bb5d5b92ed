package embedding

import (
	"context"
	"errors"
	"sync"

	"docrag/internal/domain"
)

var (
	errEmptyInput  = errors.New("no input texts")
	errMockFailure = errors.New("mock embedder failure")
)

// MockEmbedder produces deterministic vectors derived from the input
// text. FailFirst makes the first N calls fail, for exercising the
// retry path; Calls counts every invocation.
type MockEmbedder struct {
	dimension int

	mu        sync.Mutex
	Calls     int
	FailFirst int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.Calls++
	fail := e.Calls <= e.FailFirst
	e.mu.Unlock()

	if len(texts) == 0 {
		return nil, &domain.EmbeddingError{Attempts: 0, Err: errEmptyInput}
	}
	if fail {
		return nil, &domain.EmbeddingError{Attempts: 1, Err: errMockFailure}
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = make([]float32, e.dimension)
		for j, r := range text {
			if j >= e.dimension {
				break
			}
			embeddings[i][j] = float32(r) / 1000.0
		}
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
