package port

import "docrag/internal/domain"

// IngestedDocument is one document's full ingestion output, committed
// to the store as a unit.
type IngestedDocument struct {
	Doc    domain.Document
	Chunks []domain.Chunk
	Images []domain.ImageAsset
	Links  []domain.ChunkImageLink
}

// DocumentStore persists documents, chunks, images and chunk-image
// links. Vectors live in the VectorIndex; everything else lives here.
type DocumentStore interface {
	// CommitIngestion stores a document and all derived artifacts in a
	// single transaction, replacing any previous version.
	CommitIngestion(batch IngestedDocument) error

	GetDocument(id string) (domain.Document, error)

	ListDocuments() ([]domain.Document, error)

	// DeleteDocument removes the document and every chunk, image and
	// link derived from it.
	DeleteDocument(id string) error

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	GetImage(id string) (domain.ImageAsset, error)

	GetImagesByDoc(docID string) ([]domain.ImageAsset, error)

	GetLinksByDoc(docID string) ([]domain.ChunkImageLink, error)

	Stats() (domain.Stats, error)

	Close() error
}
