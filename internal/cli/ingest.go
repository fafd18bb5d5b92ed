package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/linker"
	"docrag/internal/usecase"
)

var ingestDocID string

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf-or-glob>...",
	Short: "Ingest PDF documents into the index",
	Long: `Ingest one or more PDF documents: extract per-page text and images,
chunk and embed the text, link images to their chunks, and store
everything in .docrag/index.db. Re-ingesting a document replaces its
previous version.

Examples:
  docrag ingest report.pdf
  docrag ingest --id q3-report report.pdf
  docrag ingest "docs/**/*.pdf"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "id", "", "document ID (single file only, default is the file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := extractor.CheckAvailable(); err != nil {
		return fmt.Errorf("%w\n\n%s", err, extractor.InstallInstructions())
	}

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF files matched")
	}
	if ingestDocID != "" && len(files) > 1 {
		return fmt.Errorf("--id applies to a single file, matched %d", len(files))
	}

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

	ingest := usecase.NewIngestUseCase(
		extractor.New(),
		chunker.NewSentenceChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, cfg.Ingest.MinChunkSize),
		embedder,
		linker.New(),
		st,
		idx,
		cfg.Ingest.PageWorkers,
	)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	var totalChunks, totalImages int
	var failures []string

	for _, file := range files {
		docID := ingestDocID
		if docID == "" {
			docID = documentID(file)
		}

		report, err := ingest.IngestFile(cmd.Context(), docID, file)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", file, err))
			bar.Add(1)
			continue
		}

		totalChunks += report.ChunksCreated
		totalImages += report.ImagesExtracted
		debugf("%s: %d pages, %d chunks, %d of %d images linked",
			docID, report.Pages, report.ChunksCreated, report.ImagesLinked, report.ImagesExtracted)
		bar.Add(1)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Documents:        %d\n", len(files)-len(failures))
	fmt.Printf("  Chunks created:   %d\n", totalChunks)
	fmt.Printf("  Images extracted: %d\n", totalImages)

	if len(failures) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
		return fmt.Errorf("%d of %d documents failed", len(failures), len(files))
	}

	return nil
}

// expandPatterns resolves arguments that may be literal paths or
// doublestar glob patterns.
func expandPatterns(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if matches == nil && !strings.ContainsAny(arg, "*?[") {
			// Literal path, let ingestion report the open error.
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	return files, nil
}

// documentID derives the default document ID from a file path.
func documentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
