package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/guardrail"
	"docrag/internal/adapter/reranker"
	"docrag/internal/adapter/rewriter"
	"docrag/internal/domain"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

var (
	askTopK    int
	askHistory []string
)

var askCmd = &cobra.Command{
	Use:   "ask <doc-id> <question>",
	Short: "Ask a question about an ingested document",
	Long: `Ask runs the full query pipeline against one document: input
guardrails, embedding search, guarded generation.

Examples:
  docrag ask q3-report "How did revenue develop?"
  docrag ask q3-report -k 5 "Which figures show the trend?"`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().StringArrayVar(&askHistory, "history", nil, "prior conversation turns, oldest first (repeatable)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	docID, question := args[0], args[1]
	cfg := GetConfig()

	st, idx, err := openStore(GetRootDir(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create language model: %w", err)
	}

	settings := guardrail.Settings{
		MaxQueryLength:     cfg.Guardrails.MaxQueryLength,
		Languages:          cfg.Guardrails.Languages,
		GroundingThreshold: cfg.Guardrails.GroundingThreshold,
	}
	input, err := guardrail.NewInputPipeline(cfg.Guardrails.InputStages, settings)
	if err != nil {
		return fmt.Errorf("invalid input guardrail config: %w", err)
	}
	output, err := guardrail.NewOutputPipeline(cfg.Guardrails.OutputStages, settings)
	if err != nil {
		return fmt.Errorf("invalid output guardrail config: %w", err)
	}

	var retriever port.Retriever = usecase.NewRetrieveUseCase(embedder, idx, st, cfg.Retrieve.TopK)
	switch cfg.Retrieve.Reranker {
	case "", "none":
	case "lexical":
		retriever = reranker.NewRetriever(retriever, reranker.NewLexical(), cfg.Retrieve.RerankCandidates, cfg.Retrieve.TopK)
	default:
		return fmt.Errorf("unsupported reranker: %s", cfg.Retrieve.Reranker)
	}

	ask := usecase.NewAskUseCase(
		input,
		output,
		retriever,
		usecase.NewGenerateUseCase(model, cfg.Generation.PromptTemplate, cfg.Generation.ContextBudget),
	)
	if cfg.Retrieve.RewriteQuery {
		ask.WithRewriter(rewriter.NewLLM(model))
	}

	answer, err := ask.Ask(cmd.Context(), docID, question, askTopK, askHistory)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)

	if len(answer.SupportingChunkIDs) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(answer.SupportingChunkIDs, ", "))
	}
	if len(answer.ImageAssetIDs) > 0 {
		fmt.Printf("Related images: %s\n", strings.Join(answer.ImageAssetIDs, ", "))
	}
	for _, v := range answer.Verdicts {
		if v.Status != domain.VerdictPass || v.Warning != "" {
			fmt.Printf("Guardrail %s: %s", v.Stage, v.Status)
			if v.Reason != "" {
				fmt.Printf(" (%s)", v.Reason)
			}
			if v.Warning != "" {
				fmt.Printf(" [warning: %s]", v.Warning)
			}
			fmt.Println()
		}
	}

	return nil
}
