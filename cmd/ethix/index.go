package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ethix/internal/logging"
	"ethix/internal/rag"
)

func newIndexCommand(opts *cliOptions) *cobra.Command {
	var (
		sourceDir string
		rebuild   bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or rebuild the guideline vector index",
		Long: `Chunks the guideline documents (.txt, .md, .pdf) in the source
directory, embeds them and persists the vector index. The audit command
reuses the index on subsequent runs; use --rebuild to re-index after
the source documents change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Embedding.APIKey == "" {
				return fmt.Errorf("embedding.api_key is required (set ETHIX_LLM_API_KEY)")
			}
			if sourceDir != "" {
				cfg.Store.SourceDir = sourceDir
			}

			logger := logging.NewComponentLogger("index")
			storeCfg := cfg.GuidelineStoreConfig()

			if rebuild {
				store, stats, err := rag.RebuildGuidelineStore(cmd.Context(), storeCfg, logger)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				fmt.Printf("%s indexed %d documents (%d chunks, %d errors)\n",
					green("Done:"), stats.IndexedDocuments, stats.TotalChunks, stats.ErrorDocuments)
				return nil
			}

			store, built, err := rag.OpenGuidelineStore(cmd.Context(), storeCfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if built {
				fmt.Printf("%s built index with %d chunks at %s\n",
					green("Done:"), store.Count(), cfg.Store.PersistPath)
			} else {
				fmt.Printf("%s index already present with %d chunks (use --rebuild to re-index)\n",
					yellow("Skipped:"), store.Count())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceDir, "source", "s", "", "Guideline source directory (overrides config)")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard the existing index and re-index")

	return cmd
}
