package store

import (
	"path/filepath"
	"testing"

	"docrag/internal/domain"
	"docrag/internal/port"
)

func testStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleBatch() port.IngestedDocument {
	return port.IngestedDocument{
		Doc: domain.Document{ID: "doc1", Path: "/tmp/report.pdf", PageCount: 2},
		Chunks: []domain.Chunk{
			{ID: "c1", DocID: "doc1", Page: 1, Start: 0, End: 20, Text: "first chunk of text."},
			{ID: "c2", DocID: "doc1", Page: 1, Start: 15, End: 40, Text: "text. second chunk here."},
		},
		Images: []domain.ImageAsset{
			{ID: "i1", DocID: "doc1", Page: 1, Region: domain.Region{Left: 10, Top: 600, Width: 100, Height: 80}, Data: []byte("png")},
		},
		Links: []domain.ChunkImageLink{
			{ChunkID: "c1", ImageID: "i1"},
		},
	}
}

func TestCommitAndGet(t *testing.T) {
	st := testStore(t)

	if err := st.CommitIngestion(sampleBatch()); err != nil {
		t.Fatal(err)
	}

	doc, err := st.GetDocument("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.PageCount != 2 {
		t.Errorf("expected PageCount=2, got %d", doc.PageCount)
	}

	chunk, err := st.GetChunk("c2")
	if err != nil {
		t.Fatal(err)
	}
	if chunk.Page != 1 || chunk.Start != 15 || chunk.End != 40 {
		t.Errorf("chunk metadata mismatch: %+v", chunk)
	}
	if chunk.Text != "text. second chunk here." {
		t.Errorf("chunk text mismatch: %q", chunk.Text)
	}

	img, err := st.GetImage("i1")
	if err != nil {
		t.Fatal(err)
	}
	if img.Region.Top != 600 {
		t.Errorf("image region mismatch: %+v", img.Region)
	}
	if string(img.Data) != "png" {
		t.Errorf("image data mismatch")
	}

	links, err := st.GetLinksByDoc("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].ChunkID != "c1" || links[0].ImageID != "i1" {
		t.Errorf("links mismatch: %+v", links)
	}
}

func TestCommitReplacesPreviousVersion(t *testing.T) {
	st := testStore(t)

	if err := st.CommitIngestion(sampleBatch()); err != nil {
		t.Fatal(err)
	}

	// Re-ingest with different chunks: old ones must be gone.
	second := port.IngestedDocument{
		Doc:    domain.Document{ID: "doc1", Path: "/tmp/report.pdf", PageCount: 1},
		Chunks: []domain.Chunk{{ID: "c3", DocID: "doc1", Page: 1, Start: 0, End: 5, Text: "fresh"}},
	}
	if err := st.CommitIngestion(second); err != nil {
		t.Fatal(err)
	}

	if _, err := st.GetChunk("c1"); err == nil {
		t.Error("expected old chunk c1 to be deleted")
	}
	if _, err := st.GetImage("i1"); err == nil {
		t.Error("expected old image i1 to be deleted")
	}

	chunks, err := st.GetChunksByDoc("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].ID != "c3" {
		t.Errorf("expected only c3, got %+v", chunks)
	}
}

func TestDeleteDocumentCascade(t *testing.T) {
	st := testStore(t)

	if err := st.CommitIngestion(sampleBatch()); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteDocument("doc1"); err != nil {
		t.Fatal(err)
	}

	if _, err := st.GetDocument("doc1"); err == nil {
		t.Error("expected document to be deleted")
	}
	if _, err := st.GetChunk("c1"); err == nil {
		t.Error("expected chunks to be deleted")
	}
	if _, err := st.GetImage("i1"); err == nil {
		t.Error("expected images to be deleted")
	}
	links, _ := st.GetLinksByDoc("doc1")
	if len(links) != 0 {
		t.Error("expected links to be deleted")
	}
}

func TestStats(t *testing.T) {
	st := testStore(t)

	if err := st.CommitIngestion(sampleBatch()); err != nil {
		t.Fatal(err)
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocs != 1 || stats.TotalChunks != 2 || stats.TotalImages != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
