package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates a completion for the prompt under the given
	// system instruction.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
