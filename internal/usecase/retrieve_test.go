package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	"docrag/internal/port"
)

func seededRetriever(t *testing.T) (*RetrieveUseCase, *embedding.MockEmbedder) {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	idx, err := store.NewBoltVectorIndex(st.DB(), mockDimension, store.MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(mockDimension)

	chunks := []domain.Chunk{
		{ID: "c1", DocID: "doc1", Page: 1, Start: 0, End: 10, Text: "first passage"},
		{ID: "c2", DocID: "doc1", Page: 1, Start: 10, End: 20, Text: "second passage"},
	}
	batch := port.IngestedDocument{
		Doc:    domain.Document{ID: "doc1", PageCount: 1},
		Chunks: chunks,
		Images: []domain.ImageAsset{{ID: "img1", DocID: "doc1", Page: 1, Data: []byte("png")}},
		Links:  []domain.ChunkImageLink{{ChunkID: "c1", ImageID: "img1"}},
	}
	if err := st.CommitIngestion(batch); err != nil {
		t.Fatal(err)
	}

	vectors, err := embedder.Embed(context.Background(), []string{chunks[0].Text, chunks[1].Text})
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "c1", Vector: vectors[0], ImageIDs: []string{"img1"}},
		{ChunkID: "c2", Vector: vectors[1]},
	})
	if err != nil {
		t.Fatal(err)
	}

	embedder.Calls = 0
	return NewRetrieveUseCase(embedder, idx, st, 3), embedder
}

func TestRetrieveResolvesChunksAndImages(t *testing.T) {
	r, _ := seededRetriever(t)

	res, err := r.Retrieve(context.Background(), "doc1", "first passage", 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Score < res.Chunks[1].Score {
		t.Error("results must be in descending score order")
	}
	if res.Chunks[0].Chunk.ID != "c1" {
		t.Errorf("query equal to c1's text must rank c1 first, got %s", res.Chunks[0].Chunk.ID)
	}
	if res.Chunks[0].Chunk.Text != "first passage" {
		t.Errorf("chunk text must be resolved from the store, got %q", res.Chunks[0].Chunk.Text)
	}

	// Images only appear on the chunk they are linked to.
	if len(res.Chunks[0].Images) != 1 || res.Chunks[0].Images[0].ID != "img1" {
		t.Errorf("expected img1 on c1, got %+v", res.Chunks[0].Images)
	}
	if len(res.Chunks[1].Images) != 0 {
		t.Errorf("c2 has no linked images, got %+v", res.Chunks[1].Images)
	}
}

func TestRetrieveEmptyIndexIsError(t *testing.T) {
	r, embedder := seededRetriever(t)

	_, err := r.Retrieve(context.Background(), "unknown-doc", "anything", 3)
	var retErr *domain.RetrievalError
	if !errors.As(err, &retErr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if retErr.DocID != "unknown-doc" {
		t.Errorf("error must name the document, got %q", retErr.DocID)
	}
	if embedder.Calls != 0 {
		t.Errorf("empty partition must be detected before embedding, called %d times", embedder.Calls)
	}
}

func TestRetrieveDefaultsTopK(t *testing.T) {
	r, _ := seededRetriever(t)

	res, err := r.Retrieve(context.Background(), "doc1", "first passage", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Chunks) != 2 {
		t.Errorf("k=0 falls back to the configured top-k, got %d chunks", len(res.Chunks))
	}
}
