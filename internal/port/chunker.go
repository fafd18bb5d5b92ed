package port

import "docrag/internal/domain"

type Chunker interface {
	Chunk(docID string, page domain.Page) ([]domain.Chunk, error)
}
