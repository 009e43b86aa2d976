package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/catalog"
	"github.com/sells-group/iapd-pipeline/internal/incremental"
	"github.com/sells-group/iapd-pipeline/internal/pipeline"
)

var catalogDate string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the firm-info API for published brochures",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		layout, err := stageSetup()
		if err != nil {
			return err
		}
		day, err := stageDay(catalogDate)
		if err != nil {
			return err
		}
		paths := stagePaths(layout, day)

		known := map[string]struct{}{}
		if cfg.Pipeline.Incremental {
			baselinePath := cfg.Pipeline.BaselineFile
			if baselinePath == "" {
				baselinePath = layout.MasterPath()
			}
			baseline, err := incremental.Load(ctx, baselinePath)
			if err != nil {
				return err
			}
			known = baseline.Known
		}

		client := pipeline.NewClient(cfg)
		c := catalog.New(client, "", cfg.Pipeline.Workers, known)
		stats, err := c.Run(ctx, paths.Stage1, paths.Stage2)
		if err != nil {
			return err
		}

		fmt.Printf("%d brochures (%d filtered) -> %s\n",
			stats.BrochuresEmitted.Load(), stats.BrochuresFiltered.Load(), paths.Stage2)
		return nil
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogDate, "date", "", "run day YYYY-MM-DD for file stamps (default today)")
	rootCmd.AddCommand(catalogCmd)
}
