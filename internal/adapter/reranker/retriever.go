package reranker

import (
	"context"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Retriever wraps a base retriever and reorders its results with a
// cross-scoring pass over a wider candidate set. A reranker failure
// falls back to the base ordering, so reranking can only change the
// order of an answer, never lose one.
type Retriever struct {
	base       port.Retriever
	reranker   port.Reranker
	candidates int
	topK       int
}

func NewRetriever(base port.Retriever, reranker port.Reranker, candidates, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	if candidates < topK {
		candidates = topK
	}
	return &Retriever{
		base:       base,
		reranker:   reranker,
		candidates: candidates,
		topK:       topK,
	}
}

// Retrieve fetches a candidate set larger than k, rescores it against
// the query, and returns the top k in reranked order. Linked images
// travel with their chunks through the reorder.
func (r *Retriever) Retrieve(ctx context.Context, docID, query string, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = r.topK
	}
	fetch := r.candidates
	if fetch < k {
		fetch = k
	}

	res, err := r.base.Retrieve(ctx, docID, query, fetch)
	if err != nil {
		return res, err
	}
	if r.reranker == nil || len(res.Chunks) <= 1 {
		return truncate(res, k), nil
	}

	texts := make([]string, len(res.Chunks))
	for i, sc := range res.Chunks {
		texts[i] = sc.Chunk.Text
	}

	reranked, err := r.reranker.Rerank(ctx, query, texts)
	if err != nil {
		return truncate(res, k), nil
	}

	reordered := res
	reordered.Chunks = make([]domain.ScoredChunk, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(res.Chunks) {
			continue
		}
		sc := res.Chunks[rr.Index]
		sc.Score = rr.Score
		reordered.Chunks = append(reordered.Chunks, sc)
	}
	if len(reordered.Chunks) == 0 {
		return truncate(res, k), nil
	}

	return truncate(reordered, k), nil
}

func truncate(res domain.RetrievalResult, k int) domain.RetrievalResult {
	if len(res.Chunks) > k {
		res.Chunks = res.Chunks[:k]
	}
	return res
}
