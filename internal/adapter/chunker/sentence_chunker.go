package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"docrag/internal/domain"
)

// SentenceChunker splits page text into overlapping chunks, preferring
// sentence boundaries and falling back to fixed-width windows when a
// single sentence exceeds the maximum size. Offsets are rune positions
// into the page text; the union of spans covers the text exactly, and
// consecutive spans overlap by at most the configured window.
type SentenceChunker struct {
	maxSize int
	overlap int
	minSize int
}

func NewSentenceChunker(maxSize, overlap, minSize int) *SentenceChunker {
	if maxSize <= 0 {
		maxSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	// Overlap must leave room for forward progress.
	if overlap >= maxSize/2 {
		overlap = maxSize / 4
	}
	if minSize < 0 {
		minSize = 0
	}
	return &SentenceChunker{
		maxSize: maxSize,
		overlap: overlap,
		minSize: minSize,
	}
}

func (c *SentenceChunker) Chunk(docID string, page domain.Page) ([]domain.Chunk, error) {
	if strings.TrimSpace(page.Text) == "" {
		return nil, nil
	}

	runes := []rune(page.Text)
	total := len(runes)

	// A page shorter than one chunk yields exactly one chunk holding
	// the whole page.
	if total <= c.maxSize {
		return []domain.Chunk{c.newChunk(docID, page.Number, runes, 0, total)}, nil
	}

	var chunks []domain.Chunk
	start := 0

	for start < total {
		end := start + c.maxSize
		if end >= total {
			chunks = append(chunks, c.newChunk(docID, page.Number, runes, start, total))
			break
		}

		cut := c.sentenceCut(runes, start, end)
		chunks = append(chunks, c.newChunk(docID, page.Number, runes, start, cut))

		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return c.mergeShortTail(runes, chunks), nil
}

// sentenceCut finds the latest sentence boundary in the second half of
// the window, so chunks end on sentence punctuation where possible.
// Without a boundary the full window is used (fixed-width fallback).
func (c *SentenceChunker) sentenceCut(runes []rune, start, end int) int {
	floor := start + c.maxSize/2
	for i := end; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
	}
	return end
}

// mergeShortTail folds a final chunk shorter than the minimum size into
// its predecessor so no fragment stands alone.
func (c *SentenceChunker) mergeShortTail(runes []rune, chunks []domain.Chunk) []domain.Chunk {
	n := len(chunks)
	if n < 2 || c.minSize == 0 {
		return chunks
	}
	last := chunks[n-1]
	if last.End-last.Start >= c.minSize {
		return chunks
	}
	prev := chunks[n-2]
	merged := c.newChunk(last.DocID, last.Page, runes, prev.Start, last.End)
	return append(chunks[:n-2], merged)
}

func (c *SentenceChunker) newChunk(docID string, pageNum int, runes []rune, start, end int) domain.Chunk {
	return domain.Chunk{
		ID:    chunkID(docID, pageNum, start, end),
		DocID: docID,
		Page:  pageNum,
		Start: start,
		End:   end,
		Text:  string(runes[start:end]),
	}
}

// chunkID derives a stable chunk ID from the document, page and span so
// re-ingesting identical bytes reproduces identical IDs.
func chunkID(docID string, page, start, end int) string {
	data := fmt.Sprintf("%s:p%d:%d-%d", docID, page, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
