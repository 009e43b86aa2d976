package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/pipeline"
)

var (
	runIndexLimit        int
	runWorkers           int
	runAPIRateLimit      float64
	runDownloadRateLimit float64
	runIncremental       bool
	runBaselineFile      string
	runForceRestart      bool
)

// runReport is the summary printed to stdout after a full run.
type runReport struct {
	RunID              string  `json:"run_id"`
	FeedFile           string  `json:"feed_file"`
	FirmsExtracted     int     `json:"firms_extracted"`
	FirmsFailed        int64   `json:"firms_failed"`
	BrochuresEmitted   int64   `json:"brochures_emitted"`
	BrochuresFiltered  int64   `json:"brochures_filtered"`
	DownloadsSucceeded int64   `json:"downloads_succeeded"`
	DownloadsFailed    int64   `json:"downloads_failed"`
	DownloadsInvalid   int64   `json:"downloads_invalid"`
	DownloadsNoURL     int64   `json:"downloads_no_url"`
	Classified         int     `json:"classified"`
	ClassifySkipped    int     `json:"classify_skipped"`
	RowsProduced       int     `json:"rows_produced"`
	MasterAppended     int     `json:"master_appended"`
	DatedFile          string  `json:"dated_file"`
	MasterFile         string  `json:"master_file"`
	ElapsedSecs        float64 `json:"elapsed_secs"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full daily pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyRunFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}

		p, err := pipeline.New(cfg, pipeline.Options{})
		if err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}

		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		report := runReport{
			RunID:              summary.RunID,
			FeedFile:           summary.FeedPath,
			FirmsExtracted:     summary.FirmsExtracted,
			FirmsFailed:        summary.Catalog.FirmsFailed.Load(),
			BrochuresEmitted:   summary.Catalog.BrochuresEmitted.Load(),
			BrochuresFiltered:  summary.Catalog.BrochuresFiltered.Load(),
			DownloadsSucceeded: summary.Download.Succeeded.Load(),
			DownloadsFailed:    summary.Download.Failed.Load(),
			DownloadsInvalid:   summary.Download.InvalidURL.Load(),
			DownloadsNoURL:     summary.Download.NoURL.Load(),
			Classified:         summary.Merge.Classified,
			ClassifySkipped:    summary.Merge.Skipped,
			RowsProduced:       summary.Merge.RowsProduced,
			MasterAppended:     summary.Merge.MasterAppended,
			DatedFile:          summary.Paths.Dated,
			MasterFile:         summary.Paths.Master,
			ElapsedSecs:        summary.Finished.Sub(summary.Started).Seconds(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// applyRunFlags folds explicit flag values over the loaded configuration.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("index-limit") {
		cfg.Pipeline.IndexLimit = runIndexLimit
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = runWorkers
	}
	if flags.Changed("api-rate-limit") {
		cfg.Pipeline.APIRateLimit = runAPIRateLimit
	}
	if flags.Changed("download-rate-limit") {
		cfg.Pipeline.DownloadRateLimit = runDownloadRateLimit
	}
	if flags.Changed("incremental") {
		cfg.Pipeline.Incremental = runIncremental
	}
	if flags.Changed("baseline-file") {
		cfg.Pipeline.BaselineFile = runBaselineFile
	}
	if flags.Changed("force-restart") {
		cfg.Pipeline.ForceRestart = runForceRestart
	}
}

func init() {
	runCmd.Flags().IntVar(&runIndexLimit, "index-limit", 0, "cap on firms extracted from the feed (0 = all)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "worker pool size for catalog and download stages")
	runCmd.Flags().Float64Var(&runAPIRateLimit, "api-rate-limit", 2, "firm-info API requests per second")
	runCmd.Flags().Float64Var(&runDownloadRateLimit, "download-rate-limit", 5, "brochure downloads per second")
	runCmd.Flags().BoolVar(&runIncremental, "incremental", true, "skip brochures already present in the master file")
	runCmd.Flags().StringVar(&runBaselineFile, "baseline-file", "", "alternate baseline CSV for incremental filtering")
	runCmd.Flags().BoolVar(&runForceRestart, "force-restart", false, "archive the data directory and start fresh")
	rootCmd.AddCommand(runCmd)
}
