package port

import (
	"context"

	"docrag/internal/domain"
)

// Extractor pulls per-page text and images out of a source document.
type Extractor interface {
	// Extract returns the document's pages in order. It owns any
	// temporary storage it creates and releases it before returning.
	Extract(ctx context.Context, docID string, data []byte) ([]domain.Page, error)
}

// CommandRunner executes an external tool and returns its combined
// output. Kept as a seam so extractors can be tested without the tool
// installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
