package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/feed"
	"github.com/sells-group/iapd-pipeline/internal/pipeline"
)

var acquireDate string

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Download and decompress the daily firm feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := stageSetup()
		if err != nil {
			return err
		}
		day, err := stageDay(acquireDate)
		if err != nil {
			return err
		}

		client := pipeline.NewClient(cfg)
		acquirer := feed.NewAcquirer(client, "", layout.FirmFiles)
		xmlPath, err := acquirer.Acquire(cmd.Context(), day)
		if err != nil {
			return err
		}

		fmt.Println(xmlPath)
		return nil
	},
}

func init() {
	acquireCmd.Flags().StringVar(&acquireDate, "date", "", "feed day YYYY-MM-DD (default today; walks back up to 7 days)")
	rootCmd.AddCommand(acquireCmd)
}
