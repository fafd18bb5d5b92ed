package usecase

import (
	"context"
	"errors"
	"fmt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var errEmptyIndex = errors.New("document has no indexed content")

// RetrieveUseCase embeds a query and resolves the nearest chunks with
// their linked images. Implements port.Retriever.
type RetrieveUseCase struct {
	embedder port.Embedder
	index    port.VectorIndex
	store    port.DocumentStore
	topK     int
}

func NewRetrieveUseCase(embedder port.Embedder, index port.VectorIndex, store port.DocumentStore, topK int) *RetrieveUseCase {
	if topK <= 0 {
		topK = 3
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		store:    store,
		topK:     topK,
	}
}

// Retrieve returns the top-k chunks for the query within one document.
// An empty index partition is a RetrievalError; a search that matches
// nothing is not, and returns an empty result. Every image on a
// returned chunk is linked to that chunk, so images never appear
// without their supporting text.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, docID, query string, k int) (domain.RetrievalResult, error) {
	result := domain.RetrievalResult{Query: query}

	if k <= 0 {
		k = u.topK
	}

	count, err := u.index.Count(docID)
	if err != nil {
		return result, &domain.RetrievalError{DocID: docID, Err: err}
	}
	if count == 0 {
		return result, &domain.RetrievalError{DocID: docID, Err: errEmptyIndex}
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return result, &domain.RetrievalError{DocID: docID, Err: err}
	}

	hits, err := u.index.Search(docID, vectors[0], k)
	if err != nil {
		return result, &domain.RetrievalError{DocID: docID, Err: err}
	}

	for _, hit := range hits {
		chunk, err := u.store.GetChunk(hit.ChunkID)
		if err != nil {
			return result, &domain.RetrievalError{DocID: docID, Err: fmt.Errorf("resolve chunk %s: %w", hit.ChunkID, err)}
		}

		scored := domain.ScoredChunk{Chunk: chunk, Score: hit.Score}
		for _, imageID := range hit.ImageIDs {
			img, err := u.store.GetImage(imageID)
			if err != nil {
				return result, &domain.RetrievalError{DocID: docID, Err: fmt.Errorf("resolve image %s: %w", imageID, err)}
			}
			scored.Images = append(scored.Images, img)
		}
		result.Chunks = append(result.Chunks, scored)
	}

	return result, nil
}
