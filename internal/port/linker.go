package port

import "docrag/internal/domain"

// Linker associates a page's images with the chunks covering the same
// region of the page. Deterministic given identical inputs.
type Linker interface {
	Link(page domain.Page, chunks []domain.Chunk, images []domain.ImageAsset) []domain.ChunkImageLink
}
