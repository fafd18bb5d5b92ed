package port

import (
	"context"

	"docrag/internal/domain"
)

// CheckInput carries the value under validation. Text is the query for
// input stages and the generated answer for output stages; Query and
// Context are populated for output stages only.
type CheckInput struct {
	Text    string
	Query   string
	Context []string
}

// Guardrail is a single validation stage. Check is a pure function of
// its input; a returned error is a runtime stage failure, which the
// pipeline degrades to Pass with a recorded warning.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, in CheckInput) (domain.Verdict, error)
}
