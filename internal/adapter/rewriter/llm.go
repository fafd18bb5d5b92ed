package rewriter

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/port"
)

const rewriteInstruction = "You rewrite user questions for a document retrieval system."

const rewriteTemplate = `Improve the user question below so it is more specific and
searchable, while keeping it a natural language question.

RULES:
1. ALWAYS return a natural language question, never SQL, code, or database syntax.
2. Make vague questions more specific and detailed.
3. Add context that helps find relevant information in documents.
4. Keep the question format (question words like "what", "who", "where", "how").

EXAMPLES:
- "Show me authors" -> "Who are the authors mentioned in this document?"
- "What's this about?" -> "What is the main topic and purpose of this document?"
- "Tell me more" -> "What are the key details and important information in this document?"

USER QUESTION:
%s

Return only the rewritten question:`

// LLM rephrases questions through a language model. One model call per
// question; callers keep the original question when the call fails or
// returns nothing usable.
type LLM struct {
	model port.LLM
}

func NewLLM(model port.LLM) *LLM {
	return &LLM{model: model}
}

// Rewrite returns a more searchable form of the question.
func (r *LLM) Rewrite(ctx context.Context, question string) (string, error) {
	out, err := r.model.Generate(ctx, rewriteInstruction, fmt.Sprintf(rewriteTemplate, question))
	if err != nil {
		return "", err
	}

	rewritten := strings.TrimSpace(out)
	if rewritten == "" {
		return "", fmt.Errorf("model returned an empty rewrite")
	}
	return rewritten, nil
}

var _ port.Rewriter = (*LLM)(nil)
