package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// IngestUseCase runs the ingestion pipeline for one document: extract
// pages, chunk and embed them, link images to chunks, then commit the
// whole batch. Pages are processed by a bounded worker pool; a failure
// on any page aborts the run before anything is committed, so the store
// and index never hold a partial document.
type IngestUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	embedder  port.Embedder
	linker    port.Linker
	store     port.DocumentStore
	index     port.VectorIndex
	workers   int
}

func NewIngestUseCase(
	extractor port.Extractor,
	chunker port.Chunker,
	embedder port.Embedder,
	linker port.Linker,
	store port.DocumentStore,
	index port.VectorIndex,
	workers int,
) *IngestUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		linker:    linker,
		store:     store,
		index:     index,
		workers:   workers,
	}
}

type pageOutput struct {
	chunks  []domain.Chunk
	vectors [][]float32
	links   []domain.ChunkImageLink
}

// Ingest processes pdfData under docID, replacing any previous version
// of the document. Re-ingesting identical bytes produces identical
// chunk and image IDs and therefore an identical index partition.
func (u *IngestUseCase) Ingest(ctx context.Context, docID string, pdfData []byte) (*domain.IngestionReport, error) {
	return u.ingest(ctx, docID, "", pdfData)
}

// IngestFile reads a PDF from disk and ingests it, recording the source
// path on the document.
func (u *IngestUseCase) IngestFile(ctx context.Context, docID, path string) (*domain.IngestionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}
	return u.ingest(ctx, docID, path, data)
}

func (u *IngestUseCase) ingest(ctx context.Context, docID, path string, pdfData []byte) (*domain.IngestionReport, error) {
	pages, err := u.extractor.Extract(ctx, docID, pdfData)
	if err != nil {
		return nil, err
	}

	outputs, err := u.processPages(ctx, docID, pages)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestionReport{DocID: docID, Pages: len(pages)}

	batch := port.IngestedDocument{
		Doc: domain.Document{ID: docID, Path: path, PageCount: len(pages)},
	}
	var entries []port.IndexEntry
	imagesByChunk := make(map[string][]string)
	linkedImages := make(map[string]struct{})

	for i, page := range pages {
		out := outputs[i]
		batch.Chunks = append(batch.Chunks, out.chunks...)
		batch.Images = append(batch.Images, page.Images...)
		batch.Links = append(batch.Links, out.links...)
		report.ImagesExtracted += len(page.Images)

		for _, link := range out.links {
			if link.Unlinked() {
				continue
			}
			imagesByChunk[link.ChunkID] = append(imagesByChunk[link.ChunkID], link.ImageID)
			linkedImages[link.ImageID] = struct{}{}
		}
		for j, chunk := range out.chunks {
			entries = append(entries, port.IndexEntry{
				ChunkID:  chunk.ID,
				Vector:   out.vectors[j],
				ImageIDs: imagesByChunk[chunk.ID],
			})
		}
	}

	report.ChunksCreated = len(batch.Chunks)
	report.ImagesLinked = len(linkedImages)

	if err := u.store.CommitIngestion(batch); err != nil {
		return nil, fmt.Errorf("failed to commit document: %w", err)
	}
	if err := u.index.Replace(docID, entries); err != nil {
		// A stored but unindexed document would be unreachable, so the
		// commit is rolled back before surfacing the index failure.
		if delErr := u.store.DeleteDocument(docID); delErr != nil {
			return nil, fmt.Errorf("failed to index document: %w (rollback failed: %w)", err, delErr)
		}
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	return report, nil
}

// processPages chunks, embeds and links every page concurrently. The
// first page error cancels the remaining work.
func (u *IngestUseCase) processPages(ctx context.Context, docID string, pages []domain.Page) ([]pageOutput, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs := make([]pageOutput, len(pages))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < u.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out, err := u.processPage(ctx, docID, pages[i])
				if err != nil {
					fail(fmt.Errorf("page %d: %w", pages[i].Number, err))
					continue
				}
				outputs[i] = out
			}
		}()
	}

feed:
	for i := range pages {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (u *IngestUseCase) processPage(ctx context.Context, docID string, page domain.Page) (pageOutput, error) {
	chunks, err := u.chunker.Chunk(docID, page)
	if err != nil {
		return pageOutput{}, err
	}

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = u.embedder.Embed(ctx, texts)
		if err != nil {
			return pageOutput{}, err
		}
		if len(vectors) != len(chunks) {
			return pageOutput{}, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}
	}

	links := u.linker.Link(page, chunks, page.Images)
	return pageOutput{chunks: chunks, vectors: vectors, links: links}, nil
}
