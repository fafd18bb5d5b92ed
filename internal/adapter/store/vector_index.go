package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docrag/internal/port"
)

var bucketVectors = []byte("vectors")

// Similarity metrics supported by the index.
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// BoltVectorIndex implements VectorIndex with one partition per
// document, persisted in bbolt and mirrored in memory for brute-force
// search. An Upsert batch becomes visible to searches only after its
// transaction commits, so readers never observe a partially indexed
// document. Equal scores are broken by insertion sequence,
// first-inserted wins.
type BoltVectorIndex struct {
	db        *bbolt.DB
	dimension int
	metric    string

	mu         sync.RWMutex
	partitions map[string][]ventry
}

type ventry struct {
	chunkID  string
	vector   []float32
	imageIDs []string
	seq      uint64
}

type storedVector struct {
	Vector   []float32 `json:"v"`
	ImageIDs []string  `json:"img,omitempty"`
	Seq      uint64    `json:"seq"`
}

// NewBoltVectorIndex creates a vector index over an open bbolt handle.
func NewBoltVectorIndex(db *bbolt.DB, dimension int, metric string) (*BoltVectorIndex, error) {
	switch metric {
	case MetricCosine, MetricDot:
	case "":
		metric = MetricCosine
	default:
		return nil, fmt.Errorf("unsupported similarity metric: %s", metric)
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	idx := &BoltVectorIndex{
		db:         db,
		dimension:  dimension,
		metric:     metric,
		partitions: make(map[string][]ventry),
	}

	if err := idx.loadPartitions(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return idx, nil
}

// loadPartitions restores all document partitions from bbolt.
func (s *BoltVectorIndex) loadPartitions() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketVectors)
		return root.ForEachBucket(func(docKey []byte) error {
			docBucket := root.Bucket(docKey)
			var entries []ventry
			err := docBucket.ForEach(func(k, v []byte) error {
				var stored storedVector
				if err := json.Unmarshal(v, &stored); err != nil {
					return nil // Skip corrupted entries
				}
				entries = append(entries, ventry{
					chunkID:  string(k),
					vector:   stored.Vector,
					imageIDs: stored.ImageIDs,
					seq:      stored.Seq,
				})
				return nil
			})
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].seq < entries[j].seq
			})
			s.partitions[string(docKey)] = entries
			return nil
		})
	})
}

// Upsert adds or replaces a document's entries keyed by chunk ID. The
// in-memory partition is swapped only after the transaction commits.
func (s *BoltVectorIndex) Upsert(docID string, entries []port.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for chunk %s: expected %d, got %d", e.ChunkID, s.dimension, len(e.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.partitions[docID]
	next := make([]ventry, len(existing))
	copy(next, existing)

	var maxSeq uint64
	byID := make(map[string]int, len(next))
	for i, e := range next {
		byID[e.chunkID] = i
		if e.seq > maxSeq {
			maxSeq = e.seq
		}
	}

	for _, e := range entries {
		if i, ok := byID[e.ChunkID]; ok {
			// Replacement keeps its original insertion position.
			next[i].vector = e.Vector
			next[i].imageIDs = e.ImageIDs
			continue
		}
		maxSeq++
		next = append(next, ventry{
			chunkID:  e.ChunkID,
			vector:   e.Vector,
			imageIDs: e.ImageIDs,
			seq:      maxSeq,
		})
		byID[e.ChunkID] = len(next) - 1
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		docBucket, err := tx.Bucket(bucketVectors).CreateBucketIfNotExists([]byte(docID))
		if err != nil {
			return err
		}
		for _, e := range next {
			stored := storedVector{
				Vector:   e.vector,
				ImageIDs: e.imageIDs,
				Seq:      e.seq,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := docBucket.Put([]byte(e.chunkID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.partitions[docID] = next
	return nil
}

// Replace swaps the document's whole partition for the given entries.
// The old bucket is dropped and the new one written in a single
// transaction, so a reader holding the lock between re-ingestions sees
// either the previous version or the new one, never an empty gap.
func (s *BoltVectorIndex) Replace(docID string, entries []port.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for chunk %s: expected %d, got %d", e.ChunkID, s.dimension, len(e.Vector))
		}
	}

	next := make([]ventry, len(entries))
	for i, e := range entries {
		next[i] = ventry{
			chunkID:  e.ChunkID,
			vector:   e.Vector,
			imageIDs: e.ImageIDs,
			seq:      uint64(i + 1),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketVectors)
		if root.Bucket([]byte(docID)) != nil {
			if err := root.DeleteBucket([]byte(docID)); err != nil {
				return err
			}
		}
		if len(next) == 0 {
			return nil
		}
		docBucket, err := root.CreateBucket([]byte(docID))
		if err != nil {
			return err
		}
		for _, e := range next {
			stored := storedVector{
				Vector:   e.vector,
				ImageIDs: e.imageIDs,
				Seq:      e.seq,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := docBucket.Put([]byte(e.chunkID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(next) == 0 {
		delete(s.partitions, docID)
	} else {
		s.partitions[docID] = next
	}
	return nil
}

// Search finds the k nearest entries within a document partition.
func (s *BoltVectorIndex) Search(docID string, query []float32, k int) ([]port.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.partitions[docID]
	if len(entries) == 0 || k <= 0 {
		return nil, nil
	}

	type scored struct {
		entry ventry
		score float64
	}
	scores := make([]scored, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, scored{entry: e, score: s.similarity(query, e.vector)})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].entry.seq < scores[j].entry.seq
	})

	if k > len(scores) {
		k = len(scores)
	}

	hits := make([]port.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = port.VectorHit{
			ChunkID:  scores[i].entry.chunkID,
			Score:    scores[i].score,
			ImageIDs: scores[i].entry.imageIDs,
		}
	}
	return hits, nil
}

// Delete removes a document's partition.
func (s *BoltVectorIndex) Delete(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketVectors)
		if root.Bucket([]byte(docID)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(docID))
	})
	if err != nil {
		return err
	}

	delete(s.partitions, docID)
	return nil
}

// Count returns the number of entries stored for the document.
func (s *BoltVectorIndex) Count(docID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[docID]), nil
}

func (s *BoltVectorIndex) similarity(a, b []float32) float64 {
	if s.metric == MetricDot {
		return dotProduct(a, b)
	}
	return cosineSimilarity(a, b)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
