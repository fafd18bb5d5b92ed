package reranker

import (
	"context"
	"errors"
	"testing"

	"docrag/internal/domain"
	"docrag/internal/port"
)

func TestLexicalRerankOrdersByOverlap(t *testing.T) {
	docs := []string{
		"Operating costs stayed flat across the same period.",
		"Quarterly revenue grew to 4.2 million dollars, driven by subscription renewals.",
		"The appendix lists contact addresses for every office.",
	}

	results, err := NewLexical().Rerank(context.Background(), "How did quarterly revenue develop?", docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("revenue document must rank first, got index %d", results[0].Index)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestLexicalRerankTieKeepsCandidateOrder(t *testing.T) {
	docs := []string{"revenue report", "revenue report"}

	results, err := NewLexical().Rerank(context.Background(), "revenue", docs)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Index != 0 || results[1].Index != 1 {
		t.Errorf("equal scores must keep candidate order, got %d, %d", results[0].Index, results[1].Index)
	}
}

func TestLexicalRerankNoUsableTerms(t *testing.T) {
	results, err := NewLexical().Rerank(context.Background(), "? !", []string{"a doc", "b doc"})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Index != 0 || results[1].Index != 1 {
		t.Errorf("term-free query must keep candidate order, got %d, %d", results[0].Index, results[1].Index)
	}
	if results[1].Score >= results[0].Score {
		t.Errorf("fallback scores must still descend: %f, %f", results[0].Score, results[1].Score)
	}
}

// stubBase returns canned chunks and records the requested k.
type stubBase struct {
	result domain.RetrievalResult
	err    error
	lastK  int
}

func (s *stubBase) Retrieve(_ context.Context, _ string, query string, k int) (domain.RetrievalResult, error) {
	s.lastK = k
	if s.err != nil {
		return domain.RetrievalResult{}, s.err
	}
	res := s.result
	res.Query = query
	return res, nil
}

// failingReranker always errors, exercising the fallback path.
type failingReranker struct{}

func (failingReranker) Rerank(context.Context, string, []string) ([]port.RerankedResult, error) {
	return nil, errors.New("scoring backend down")
}

func (failingReranker) ModelName() string { return "failing" }

func candidates() domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunks: []domain.ScoredChunk{
			{
				Chunk: domain.Chunk{ID: "c-costs", Text: "Operating costs stayed flat across the same period."},
				Score: 0.9,
			},
			{
				Chunk: domain.Chunk{ID: "c-revenue", Text: "Quarterly revenue grew to 4.2 million dollars."},
				Score: 0.8,
				Images: []domain.ImageAsset{
					{ID: "img-rev"},
				},
			},
			{
				Chunk: domain.Chunk{ID: "c-appendix", Text: "The appendix lists contact addresses."},
				Score: 0.7,
			},
		},
	}
}

func TestRetrieverReordersByQueryRelevance(t *testing.T) {
	base := &stubBase{result: candidates()}
	r := NewRetriever(base, NewLexical(), 10, 3)

	res, err := r.Retrieve(context.Background(), "doc1", "How did quarterly revenue develop?", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks after truncation, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Chunk.ID != "c-revenue" {
		t.Errorf("revenue chunk must rank first after reranking, got %s", res.Chunks[0].Chunk.ID)
	}
	if len(res.Chunks[0].Images) != 1 || res.Chunks[0].Images[0].ID != "img-rev" {
		t.Errorf("linked images must travel with their chunk, got %+v", res.Chunks[0].Images)
	}
}

func TestRetrieverFetchesWiderCandidateSet(t *testing.T) {
	base := &stubBase{result: candidates()}
	r := NewRetriever(base, NewLexical(), 10, 3)

	if _, err := r.Retrieve(context.Background(), "doc1", "revenue", 2); err != nil {
		t.Fatal(err)
	}
	if base.lastK != 10 {
		t.Errorf("base retriever must be asked for the candidate set, got k=%d", base.lastK)
	}
}

func TestRetrieverFailureKeepsBaseOrder(t *testing.T) {
	base := &stubBase{result: candidates()}
	r := NewRetriever(base, failingReranker{}, 10, 3)

	res, err := r.Retrieve(context.Background(), "doc1", "revenue", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Chunk.ID != "c-costs" || res.Chunks[1].Chunk.ID != "c-revenue" {
		t.Errorf("reranker failure must keep the base order, got %s, %s",
			res.Chunks[0].Chunk.ID, res.Chunks[1].Chunk.ID)
	}
}

func TestRetrieverPropagatesBaseError(t *testing.T) {
	base := &stubBase{err: errors.New("no such document")}
	r := NewRetriever(base, NewLexical(), 10, 3)

	if _, err := r.Retrieve(context.Background(), "doc1", "revenue", 2); err == nil {
		t.Fatal("base retriever errors must propagate")
	}
}

var _ port.Retriever = (*Retriever)(nil)
var _ port.Reranker = Lexical{}
