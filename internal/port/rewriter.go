package port

import "context"

// Rewriter rephrases a user question into a more retrieval-friendly
// form before embedding. Callers fall back to the original question
// when rewriting fails.
type Rewriter interface {
	Rewrite(ctx context.Context, question string) (string, error)
}
