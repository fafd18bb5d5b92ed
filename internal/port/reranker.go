package port

import "context"

// RerankedResult points back into the candidate slice handed to Rerank.
type RerankedResult struct {
	Index int
	Score float64
}

// Reranker reorders retrieved candidates by relevance to the query,
// most relevant first.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankedResult, error)

	// ModelName returns the name of the scoring model.
	ModelName() string
}
