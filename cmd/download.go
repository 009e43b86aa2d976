package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/download"
	"github.com/sells-group/iapd-pipeline/internal/pipeline"
)

var downloadDate string

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download brochure PDFs listed by the catalog stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := stageSetup()
		if err != nil {
			return err
		}
		day, err := stageDay(downloadDate)
		if err != nil {
			return err
		}
		paths := stagePaths(layout, day)

		client := pipeline.NewClient(cfg)
		dl := download.New(client, layout.Downloads, cfg.Pipeline.Workers)
		stats, err := dl.Run(cmd.Context(), paths.Stage2, paths.Stage3)
		if err != nil {
			return err
		}

		fmt.Printf("%d succeeded, %d failed, %d invalid, %d no-url -> %s\n",
			stats.Succeeded.Load(), stats.Failed.Load(), stats.InvalidURL.Load(),
			stats.NoURL.Load(), paths.Stage3)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadDate, "date", "", "run day YYYY-MM-DD for file stamps (default today)")
	rootCmd.AddCommand(downloadCmd)
}
