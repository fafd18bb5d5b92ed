package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about PDF documents with text and images",
	Long: `docrag ingests PDF documents, extracting per-page text and images,
and answers natural-language questions about them using embedding
search and a guarded language model.

Example usage:
  docrag ingest report.pdf             # Ingest one document
  docrag ingest "docs/**/*.pdf"        # Ingest every PDF under docs/
  docrag ask report "What changed?"    # Ask about a document
  docrag stats                         # Show index contents`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

// debugf prints to stderr when the configured log level is debug.
func debugf(format string, args ...any) {
	if cfg != nil && cfg.Logging.Level == "debug" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func GetRootDir() string {
	return rootDir
}
