package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sells-group/iapd-pipeline/internal/incremental"
)

// statusReport summarizes the data directory for operators.
type statusReport struct {
	DataDir        string `json:"data_dir"`
	MasterFile     string `json:"master_file"`
	MasterExists   bool   `json:"master_exists"`
	KnownBrochures int    `json:"known_brochures"`
	MaxFilingDate  string `json:"max_filing_date,omitempty"`
	LatestDated    string `json:"latest_dated_file,omitempty"`
	DownloadedPDFs int    `json:"downloaded_pdfs"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := stageSetup()
		if err != nil {
			return err
		}

		report := statusReport{
			DataDir:    layout.Root,
			MasterFile: layout.MasterPath(),
		}

		if _, err := os.Stat(layout.MasterPath()); err == nil {
			report.MasterExists = true
		}
		baseline, err := incremental.Load(context.Background(), layout.MasterPath())
		if err != nil {
			return err
		}
		report.KnownBrochures = len(baseline.Known)
		if !baseline.MaxFilingDate.IsZero() {
			report.MaxFilingDate = baseline.MaxFilingDate.Format("01/02/2006")
		}

		dated, err := filepath.Glob(filepath.Join(layout.Output, "IAPD_Data_*.csv"))
		if err == nil && len(dated) > 0 {
			sort.Strings(dated)
			report.LatestDated = dated[len(dated)-1]
		}

		pdfs, err := filepath.Glob(filepath.Join(layout.Downloads, "*.pdf"))
		if err == nil {
			report.DownloadedPDFs = len(pdfs)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
