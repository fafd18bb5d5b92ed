package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// NoContextRefusal is returned when retrieval produced nothing to
// ground an answer on. The model is not called in that case.
const NoContextRefusal = "I could not find relevant information in the document to answer your question."

const systemInstruction = "You are an expert assistant that answers questions based only on the provided context."

const defaultTemplate = `CONTEXT:
{context}

USER QUESTION:
{question}

IMAGES LENGTH:
{images_length}

INSTRUCTIONS:
1. Answer only using the provided context.
2. If you cannot answer with the given context, clearly state that you do not have enough information.
3. Be precise, clear, and concise.
4. If there is specific information such as numbers, dates, or names, include them exactly as they appear in the context.
5. Structure your answer logically and make it easy to understand.
6. If the image length is greater than 0, naturally mention that there are related images available for the user to view.

ANSWER:`

// GenerateUseCase assembles the prompt for one query and invokes the
// language model once. Prompt assembly is deterministic: the retrieved
// chunks appear in descending score order, trimmed from the tail when
// they exceed the context budget.
type GenerateUseCase struct {
	llm      port.LLM
	template string
	budget   int
}

func NewGenerateUseCase(llm port.LLM, template string, budget int) *GenerateUseCase {
	if template == "" {
		template = defaultTemplate
	}
	if budget <= 0 {
		budget = 2000
	}
	return &GenerateUseCase{llm: llm, template: template, budget: budget}
}

// Generate produces answer text for the query. The refused return is
// true when retrieval was empty and the fixed refusal was returned
// without a model call.
func (u *GenerateUseCase) Generate(ctx context.Context, query string, res domain.RetrievalResult, history []string) (text string, refused bool, err error) {
	if len(res.Chunks) == 0 {
		return NoContextRefusal, true, nil
	}

	contextText, kept := u.buildContext(res.Chunks)

	imageCount := 0
	for _, sc := range res.Chunks[:kept] {
		imageCount += len(sc.Images)
	}

	prompt := strings.NewReplacer(
		"{context}", contextText,
		"{question}", query,
		"{images_length}", fmt.Sprintf("%d", imageCount),
	).Replace(u.template)

	if len(history) > 0 {
		prompt = renderHistory(history) + "\n" + prompt
	}

	text, err = u.llm.Generate(ctx, systemInstruction, prompt)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(text), false, nil
}

// buildContext joins chunk texts in score order within the character
// budget. Whole chunks are dropped from the tail first; the first chunk
// is always kept, hard-truncated if it alone exceeds the budget.
func (u *GenerateUseCase) buildContext(chunks []domain.ScoredChunk) (string, int) {
	var parts []string
	used := 0

	for i, sc := range chunks {
		cost := len(sc.Chunk.Text)
		if i > 0 && used+cost > u.budget {
			break
		}
		parts = append(parts, sc.Chunk.Text)
		used += cost
	}

	joined := strings.Join(parts, "\n\n")
	if len(joined) > u.budget {
		cut := u.budget
		for cut > 0 && !utf8.RuneStart(joined[cut]) {
			cut--
		}
		joined = joined[:cut] + "..."
	}
	return joined, len(parts)
}

// renderHistory folds prior conversation turns into the prompt, oldest
// first.
func renderHistory(history []string) string {
	var b strings.Builder
	b.WriteString("PREVIOUS CONVERSATION:\n")
	for _, turn := range history {
		b.WriteString(turn)
		b.WriteString("\n")
	}
	return b.String()
}
