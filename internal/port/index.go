package port

// VectorIndex stores embedding vectors partitioned by document and
// supports nearest-neighbour search within one partition.
type VectorIndex interface {
	// Upsert adds or replaces a document's entries keyed by chunk ID.
	// The whole batch commits atomically: concurrent searches never
	// observe a partially written document.
	Upsert(docID string, entries []IndexEntry) error

	// Replace swaps the document's whole partition for the given
	// entries in one step. Concurrent searches observe either the old
	// partition or the new one, never an empty or mixed state.
	Replace(docID string, entries []IndexEntry) error

	// Search returns up to k nearest entries for the document, strictly
	// descending by score. Equal scores are broken by insertion order,
	// first-inserted wins.
	Search(docID string, query []float32, k int) ([]VectorHit, error)

	// Delete removes every entry belonging to the document.
	Delete(docID string) error

	// Count returns the number of entries stored for the document.
	Count(docID string) (int, error)
}

// IndexEntry is one indexed chunk: its vector plus the IDs of the
// images linked to it at ingestion time.
type IndexEntry struct {
	ChunkID  string
	Vector   []float32
	ImageIDs []string
}

// VectorHit is one search result.
type VectorHit struct {
	ChunkID  string
	Score    float64
	ImageIDs []string
}
