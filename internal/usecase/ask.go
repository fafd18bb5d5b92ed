package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"docrag/internal/adapter/guardrail"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// AskUseCase answers one question about one document: input guardrails,
// retrieval, generation, output guardrails. Stateless between calls, so
// concurrent questions are independent.
type AskUseCase struct {
	input     *guardrail.Pipeline
	output    *guardrail.Pipeline
	retriever port.Retriever
	generator *GenerateUseCase
	rewriter  port.Rewriter
}

func NewAskUseCase(input, output *guardrail.Pipeline, retriever port.Retriever, generator *GenerateUseCase) *AskUseCase {
	return &AskUseCase{
		input:     input,
		output:    output,
		retriever: retriever,
		generator: generator,
	}
}

// WithRewriter makes validated questions pass through a rewriting step
// before retrieval. A rewrite failure keeps the original question.
func (u *AskUseCase) WithRewriter(r port.Rewriter) *AskUseCase {
	u.rewriter = r
	return u
}

// Ask runs the full query pipeline. A rejected query never reaches
// retrieval or the model; a rejected answer is replaced with a fixed
// refusal. Every stage verdict is recorded on the Answer.
func (u *AskUseCase) Ask(ctx context.Context, docID, question string, k int, history []string) (domain.Answer, error) {
	answer := domain.Answer{ID: uuid.NewString()}

	query, inVerdicts := u.input.Run(ctx, port.CheckInput{Text: question})
	answer.Verdicts = inVerdicts
	if reason, rejected := guardrail.Rejected(inVerdicts); rejected {
		answer.Text = "Your question was not processed: " + reason
		answer.Refused = true
		return answer, nil
	}

	if u.rewriter != nil {
		if rewritten, err := u.rewriter.Rewrite(ctx, query); err == nil && rewritten != "" {
			query = rewritten
		}
	}

	res, err := u.retriever.Retrieve(ctx, docID, query, k)
	if err != nil {
		var retErr *domain.RetrievalError
		// An empty index is answered with the no-context refusal rather
		// than surfacing an internal error to the user flow.
		if errors.As(err, &retErr) && errors.Is(retErr.Err, errEmptyIndex) {
			answer.Text = NoContextRefusal
			answer.Refused = true
			return answer, nil
		}
		return domain.Answer{}, err
	}

	text, refused, err := u.generator.Generate(ctx, query, res, history)
	if err != nil {
		return domain.Answer{}, err
	}
	if refused {
		answer.Text = text
		answer.Refused = true
		return answer, nil
	}

	chunkTexts := make([]string, 0, len(res.Chunks))
	seenImages := make(map[string]struct{})
	for _, sc := range res.Chunks {
		answer.SupportingChunkIDs = append(answer.SupportingChunkIDs, sc.Chunk.ID)
		chunkTexts = append(chunkTexts, sc.Chunk.Text)
		for _, img := range sc.Images {
			if _, ok := seenImages[img.ID]; ok {
				continue
			}
			seenImages[img.ID] = struct{}{}
			answer.ImageAssetIDs = append(answer.ImageAssetIDs, img.ID)
		}
	}

	final, outVerdicts := u.output.Run(ctx, port.CheckInput{
		Text:    text,
		Query:   query,
		Context: chunkTexts,
	})
	answer.Verdicts = append(answer.Verdicts, outVerdicts...)

	if _, rejected := guardrail.Rejected(outVerdicts); rejected {
		// A refusal carries no retrieval artifacts at all.
		answer.Text = guardrail.RefusalMessage
		answer.Refused = true
		answer.SupportingChunkIDs = nil
		answer.ImageAssetIDs = nil
		return answer, nil
	}

	answer.Text = final
	return answer, nil
}
