package port

import (
	"context"

	"docrag/internal/domain"
)

// Retriever resolves a query to the top-k most similar chunks of one
// document, with their linked images.
type Retriever interface {
	Retrieve(ctx context.Context, docID, query string, k int) (domain.RetrievalResult, error)
}
