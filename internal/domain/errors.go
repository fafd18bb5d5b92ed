package domain

import "fmt"

// ExtractionError reports a malformed or unsupported source document.
// Fatal to the enclosing ingestion run; no partial index is committed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports an external embedding model failure after the
// retry budget is exhausted.
type EmbeddingError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports an empty or unavailable index. Not retried.
type RetrievalError struct {
	DocID string
	Err   error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieval failed for document %s: %v", e.DocID, e.Err)
	}
	return fmt.Sprintf("retrieval failed: no index entries for document %s", e.DocID)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GuardrailConfigError reports an invalid guardrail pipeline
// configuration. Only produced at construction time.
type GuardrailConfigError struct {
	Stage  string
	Reason string
}

func (e *GuardrailConfigError) Error() string {
	return fmt.Sprintf("guardrail config: stage %q: %s", e.Stage, e.Reason)
}

// GenerationError reports a language model failure after the retry
// budget is exhausted. Surfaced verbatim to the caller.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
