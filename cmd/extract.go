package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/feed"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

var (
	extractFeedPath string
	extractDate     string
	extractLimit    int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract firm records from an acquired feed XML",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := stageSetup()
		if err != nil {
			return err
		}
		day, err := stageDay(extractDate)
		if err != nil {
			return err
		}
		paths := stagePaths(layout, day)

		extractor := &feed.Extractor{IndexLimit: extractLimit}
		n, err := extractor.Extract(cmd.Context(), extractFeedPath, paths.Stage1, model.DateStamp(day))
		if err != nil {
			return err
		}

		fmt.Printf("%d firms -> %s\n", n, paths.Stage1)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFeedPath, "feed", "", "path to the decompressed feed XML (required)")
	extractCmd.Flags().StringVar(&extractDate, "date", "", "run day YYYY-MM-DD for file stamps (default today)")
	extractCmd.Flags().IntVar(&extractLimit, "index-limit", 0, "cap on firms extracted (0 = all)")
	_ = extractCmd.MarkFlagRequired("feed")
	rootCmd.AddCommand(extractCmd)
}
