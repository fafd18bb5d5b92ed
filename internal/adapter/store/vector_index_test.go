package store

import (
	"path/filepath"
	"testing"

	"docrag/internal/port"
)

func testIndex(t *testing.T, dimension int, metric string) (*BoltVectorIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	idx, err := NewBoltVectorIndex(st.DB(), dimension, metric)
	if err != nil {
		t.Fatal(err)
	}
	return idx, path
}

func TestSearchOrdering(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "far", Vector: []float32{0, 1}},
		{ChunkID: "near", Vector: []float32{1, 0}},
		{ChunkID: "mid", Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("doc1", []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "near" || hits[1].ChunkID != "mid" || hits[2].ChunkID != "far" {
		t.Errorf("unexpected order: %s, %s, %s", hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestSearchTieBreakByInsertionOrder(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	// Identical vectors score identically; first inserted must win.
	err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "first", Vector: []float32{1, 1}},
		{ChunkID: "second", Vector: []float32{1, 1}},
		{ChunkID: "third", Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("doc1", []float32{1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "first" || hits[1].ChunkID != "second" {
		t.Errorf("tie-break violated: got %s, %s", hits[0].ChunkID, hits[1].ChunkID)
	}
}

func TestSearchPartitionIsolation(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{{ChunkID: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert("doc2", []port.IndexEntry{{ChunkID: "b", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("doc1", []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "a" {
		t.Errorf("expected only doc1 entries, got %+v", hits)
	}
}

func TestSearchEmptyPartition(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	hits, err := idx.Search("missing", []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestUpsertReplacesByChunkID(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "a", Vector: []float32{1, 0}},
		{ChunkID: "b", Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "a", Vector: []float32{0, 1}, ImageIDs: []string{"img1"}},
	}); err != nil {
		t.Fatal(err)
	}

	n, err := idx.Count("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 entries after replace, got %d", n)
	}

	hits, err := idx.Search("doc1", []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Both now match the query equally; "a" kept its original seq.
	if hits[0].ChunkID != "a" {
		t.Errorf("expected replaced entry a first, got %s", hits[0].ChunkID)
	}
	if len(hits[0].ImageIDs) != 1 || hits[0].ImageIDs[0] != "img1" {
		t.Errorf("expected updated image IDs, got %v", hits[0].ImageIDs)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	idx, _ := testIndex(t, 3, MetricCosine)

	err := idx.Upsert("doc1", []port.IndexEntry{{ChunkID: "a", Vector: []float32{1, 0}}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	n, _ := idx.Count("doc1")
	if n != 0 {
		t.Errorf("rejected batch must not be partially applied, got %d entries", n)
	}
}

func TestReplaceRebuildsPartition(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "old-a", Vector: []float32{1, 0}},
		{ChunkID: "old-b", Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}

	if err := idx.Replace("doc1", []port.IndexEntry{
		{ChunkID: "new-a", Vector: []float32{1, 1}, ImageIDs: []string{"img1"}},
		{ChunkID: "new-b", Vector: []float32{1, 1}},
	}); err != nil {
		t.Fatal(err)
	}

	n, err := idx.Count("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected exactly the new entries, got %d", n)
	}

	hits, err := idx.Search("doc1", []float32{1, 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.ChunkID == "old-a" || h.ChunkID == "old-b" {
			t.Errorf("replaced partition must not retain old entry %s", h.ChunkID)
		}
	}
	// Replacement entries start a fresh insertion sequence.
	if hits[0].ChunkID != "new-a" || hits[1].ChunkID != "new-b" {
		t.Errorf("unexpected order after replace: %s, %s", hits[0].ChunkID, hits[1].ChunkID)
	}
	if len(hits[0].ImageIDs) != 1 || hits[0].ImageIDs[0] != "img1" {
		t.Errorf("image IDs lost in replace: %v", hits[0].ImageIDs)
	}
}

func TestReplaceDimensionMismatchKeepsExisting(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{{ChunkID: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}

	err := idx.Replace("doc1", []port.IndexEntry{{ChunkID: "bad", Vector: []float32{1, 0, 0}}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	hits, err := idx.Search("doc1", []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "a" {
		t.Errorf("rejected replace must leave the old partition intact, got %+v", hits)
	}
}

func TestReplaceWithNoEntriesClearsPartition(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{{ChunkID: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Replace("doc1", nil); err != nil {
		t.Fatal(err)
	}

	n, _ := idx.Count("doc1")
	if n != 0 {
		t.Errorf("expected empty partition, got %d entries", n)
	}
}

func TestDeletePartition(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricCosine)

	if err := idx.Upsert("doc1", []port.IndexEntry{{ChunkID: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete("doc1"); err != nil {
		t.Fatal(err)
	}

	n, _ := idx.Count("doc1")
	if n != 0 {
		t.Errorf("expected empty partition after delete, got %d", n)
	}

	// Deleting a missing partition is not an error.
	if err := idx.Delete("doc1"); err != nil {
		t.Errorf("delete of missing partition: %v", err)
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := NewBoltVectorIndex(st.DB(), 2, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "first", Vector: []float32{1, 1}, ImageIDs: []string{"img1"}},
		{ChunkID: "second", Vector: []float32{1, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st2, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	idx2, err := NewBoltVectorIndex(st2.DB(), 2, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}

	hits, err := idx2.Search("doc1", []float32{1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits after reopen, got %d", len(hits))
	}
	// Insertion sequence survives the reload.
	if hits[0].ChunkID != "first" || hits[1].ChunkID != "second" {
		t.Errorf("order not preserved after reopen: %s, %s", hits[0].ChunkID, hits[1].ChunkID)
	}
	if len(hits[0].ImageIDs) != 1 || hits[0].ImageIDs[0] != "img1" {
		t.Errorf("image IDs not preserved: %v", hits[0].ImageIDs)
	}
}

func TestDotMetric(t *testing.T) {
	idx, _ := testIndex(t, 2, MetricDot)

	if err := idx.Upsert("doc1", []port.IndexEntry{
		{ChunkID: "small", Vector: []float32{1, 0}},
		{ChunkID: "large", Vector: []float32{5, 0}},
	}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search("doc1", []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Dot product rewards magnitude, unlike cosine.
	if hits[0].ChunkID != "large" {
		t.Errorf("expected large first under dot metric, got %s", hits[0].ChunkID)
	}
}

func TestUnsupportedMetric(t *testing.T) {
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if _, err := NewBoltVectorIndex(st.DB(), 2, "euclidean"); err == nil {
		t.Fatal("expected error for unsupported metric")
	}
}
