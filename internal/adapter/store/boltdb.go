package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	bucketDocs       = []byte("docs")
	bucketChunks     = []byte("chunks")
	bucketBlobs      = []byte("blobs")
	bucketImages     = []byte("images")
	bucketImageBlobs = []byte("image_blobs")
	bucketLinks      = []byte("links")
	bucketDocChunks  = []byte("doc_chunks")
	bucketDocImages  = []byte("doc_images")
)

// BoltStore persists documents, chunks, images and chunk-image links in
// a single bbolt file. Each ingestion commits in one transaction, so a
// document is either fully stored or absent.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketImages, bucketImageBlobs, bucketLinks, bucketDocChunks, bucketDocImages}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type docMeta struct {
	Path      string `json:"path"`
	PageCount int    `json:"page_count"`
}

type chunkMeta struct {
	DocID string `json:"doc_id"`
	Page  int    `json:"page"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type imageMeta struct {
	DocID  string        `json:"doc_id"`
	Page   int           `json:"page"`
	Region domain.Region `json:"region"`
}

// CommitIngestion stores one document's full ingestion output in a
// single transaction, replacing any previous version of the document.
func (s *BoltStore) CommitIngestion(batch port.IngestedDocument) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteDocumentTx(tx, batch.Doc.ID); err != nil {
			return err
		}

		meta := docMeta{
			Path:      batch.Doc.Path,
			PageCount: batch.Doc.PageCount,
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(batch.Doc.ID), data); err != nil {
			return err
		}

		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		chunkIDs := make([]string, 0, len(batch.Chunks))
		for _, chunk := range batch.Chunks {
			meta := chunkMeta{
				DocID: chunk.DocID,
				Page:  chunk.Page,
				Start: chunk.Start,
				End:   chunk.End,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			if err := blobBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
				return err
			}
			chunkIDs = append(chunkIDs, chunk.ID)
		}
		chunkIDsData, err := json.Marshal(chunkIDs)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocChunks).Put([]byte(batch.Doc.ID), chunkIDsData); err != nil {
			return err
		}

		imageBucket := tx.Bucket(bucketImages)
		imageBlobBucket := tx.Bucket(bucketImageBlobs)
		imageIDs := make([]string, 0, len(batch.Images))
		for _, img := range batch.Images {
			meta := imageMeta{
				DocID:  img.DocID,
				Page:   img.Page,
				Region: img.Region,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := imageBucket.Put([]byte(img.ID), data); err != nil {
				return err
			}
			if err := imageBlobBucket.Put([]byte(img.ID), img.Data); err != nil {
				return err
			}
			imageIDs = append(imageIDs, img.ID)
		}
		imageIDsData, err := json.Marshal(imageIDs)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocImages).Put([]byte(batch.Doc.ID), imageIDsData); err != nil {
			return err
		}

		linksData, err := json.Marshal(batch.Links)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketLinks).Put([]byte(batch.Doc.ID), linksData)
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = domain.Document{
			ID:        id,
			Path:      meta.Path,
			PageCount: meta.PageCount,
		}
		return nil
	})
	return doc, err
}

func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, domain.Document{
				ID:        string(k),
				Path:      meta.Path,
				PageCount: meta.PageCount,
			})
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) DeleteDocument(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteDocumentTx(tx, id)
	})
}

// deleteDocumentTx removes a document and everything derived from it
// inside an open transaction.
func deleteDocumentTx(tx *bbolt.Tx, docID string) error {
	key := []byte(docID)

	if data := tx.Bucket(bucketDocChunks).Get(key); data != nil {
		var chunkIDs []string
		if err := json.Unmarshal(data, &chunkIDs); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range chunkIDs {
			if err := chunkBucket.Delete([]byte(id)); err != nil {
				return err
			}
			if err := blobBucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketDocChunks).Delete(key); err != nil {
			return err
		}
	}

	if data := tx.Bucket(bucketDocImages).Get(key); data != nil {
		var imageIDs []string
		if err := json.Unmarshal(data, &imageIDs); err != nil {
			return err
		}
		imageBucket := tx.Bucket(bucketImages)
		imageBlobBucket := tx.Bucket(bucketImageBlobs)
		for _, id := range imageIDs {
			if err := imageBucket.Delete([]byte(id)); err != nil {
				return err
			}
			if err := imageBlobBucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketDocImages).Delete(key); err != nil {
			return err
		}
	}

	if err := tx.Bucket(bucketLinks).Delete(key); err != nil {
		return err
	}
	return tx.Bucket(bucketDocs).Delete(key)
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get([]byte(id))
		chunk = domain.Chunk{
			ID:    id,
			DocID: meta.DocID,
			Page:  meta.Page,
			Start: meta.Start,
			End:   meta.End,
			Text:  string(text),
		}
		return nil
	})
	return chunk, err
}

func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var chunkIDs []string
		if err := json.Unmarshal(data, &chunkIDs); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range chunkIDs {
			data := chunkBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var meta chunkMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				continue
			}
			text := blobBucket.Get([]byte(id))
			chunks = append(chunks, domain.Chunk{
				ID:    id,
				DocID: meta.DocID,
				Page:  meta.Page,
				Start: meta.Start,
				End:   meta.End,
				Text:  string(text),
			})
		}
		return nil
	})
	return chunks, err
}

func (s *BoltStore) GetImage(id string) (domain.ImageAsset, error) {
	var img domain.ImageAsset
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketImages).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("image not found: %s", id)
		}
		var meta imageMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		blob := tx.Bucket(bucketImageBlobs).Get([]byte(id))
		img = domain.ImageAsset{
			ID:     id,
			DocID:  meta.DocID,
			Page:   meta.Page,
			Region: meta.Region,
			Data:   append([]byte(nil), blob...),
		}
		return nil
	})
	return img, err
}

func (s *BoltStore) GetImagesByDoc(docID string) ([]domain.ImageAsset, error) {
	var images []domain.ImageAsset
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocImages).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var imageIDs []string
		if err := json.Unmarshal(data, &imageIDs); err != nil {
			return err
		}
		imageBucket := tx.Bucket(bucketImages)
		imageBlobBucket := tx.Bucket(bucketImageBlobs)
		for _, id := range imageIDs {
			data := imageBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var meta imageMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				continue
			}
			blob := imageBlobBucket.Get([]byte(id))
			images = append(images, domain.ImageAsset{
				ID:     id,
				DocID:  meta.DocID,
				Page:   meta.Page,
				Region: meta.Region,
				Data:   append([]byte(nil), blob...),
			})
		}
		return nil
	})
	return images, err
}

func (s *BoltStore) GetLinksByDoc(docID string) ([]domain.ChunkImageLink, error) {
	var links []domain.ChunkImageLink
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketLinks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &links)
	})
	return links, err
}

func (s *BoltStore) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalDocs = tx.Bucket(bucketDocs).Stats().KeyN
		stats.TotalChunks = tx.Bucket(bucketChunks).Stats().KeyN
		stats.TotalImages = tx.Bucket(bucketImages).Stats().KeyN
		return nil
	})
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
