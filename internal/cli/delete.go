package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Remove a document and its index partition",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	docID := args[0]
	cfg := GetConfig()

	st, idx, err := openStore(GetRootDir(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetDocument(docID); err != nil {
		return fmt.Errorf("document not found: %s", docID)
	}

	if err := idx.Delete(docID); err != nil {
		return fmt.Errorf("failed to delete index partition: %w", err)
	}
	if err := st.DeleteDocument(docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted %s\n", docID)
	return nil
}
