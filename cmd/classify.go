package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/classify"
	"github.com/sells-group/iapd-pipeline/internal/textextract"
)

var classifyFile string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run the pattern battery over a single brochure PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}

		extractor, err := textextract.NewExtractor(cfg.Extract)
		if err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}
		patterns := classify.DefaultCatalog()
		if cfg.Patterns.File != "" {
			if err := patterns.LoadOverlay(cfg.Patterns.File); err != nil {
				return err
			}
		}

		classifier := classify.New(extractor, patterns)
		analysis, skipped := classifier.Classify(cmd.Context(), classifyFile)
		if skipped {
			fmt.Fprintln(os.Stderr, "classification skipped: extraction failed or empty text")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "brochure PDF to classify (required)")
	_ = classifyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(classifyCmd)
}
