package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/classify"
	"github.com/sells-group/iapd-pipeline/internal/merge"
	"github.com/sells-group/iapd-pipeline/internal/model"
	"github.com/sells-group/iapd-pipeline/internal/textextract"
)

var mergeDate string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Classify downloaded brochures and fold them into the output files",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := stageSetup()
		if err != nil {
			return err
		}
		day, err := stageDay(mergeDate)
		if err != nil {
			return err
		}
		paths := stagePaths(layout, day)

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
		merger := merge.New(classifier, layout.Downloads)
		stats, err := merger.Merge(cmd.Context(), paths.Stage1, paths.Stage3,
			paths.Dated, paths.Master, model.DateStamp(day))
		if err != nil {
			return err
		}

		fmt.Printf("%d rows (%d appended to master) -> %s\n",
			stats.RowsProduced, stats.MasterAppended, paths.Dated)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeDate, "date", "", "run day YYYY-MM-DD for file stamps (default today)")
	rootCmd.AddCommand(mergeCmd)
}
