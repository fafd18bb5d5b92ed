package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index contents",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, idx, err := openStore(GetRootDir(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	docs, err := st.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		n, err := idx.Count(doc.ID)
		if err != nil {
			return err
		}
		stats.TotalVectors += n
	}

	fmt.Printf("Documents: %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("Images:    %d\n", stats.TotalImages)
	fmt.Printf("Vectors:   %d\n", stats.TotalVectors)

	if len(docs) > 0 {
		fmt.Println()
		for _, doc := range docs {
			n, _ := idx.Count(doc.ID)
			fmt.Printf("  %-24s %3d pages  %4d vectors", doc.ID, doc.PageCount, n)
			if doc.Path != "" {
				fmt.Printf("  %s", doc.Path)
			}
			fmt.Println()
		}
	}

	return nil
}
