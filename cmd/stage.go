package main

import (
	"fmt"
	"time"

	"github.com/sells-group/iapd-pipeline/internal/config"
	"github.com/sells-group/iapd-pipeline/internal/pipeline"
)

// stageDay parses the shared --date flag (YYYY-MM-DD), defaulting to today.
func stageDay(date string) (time.Time, error) {
	if date == "" {
		return time.Now(), nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid --date %q", errConfig, date)
	}
	return day, nil
}

// stageSetup validates config and prepares the data directory for a
// stage-at-a-time invocation.
func stageSetup() (config.Layout, error) {
	if err := cfg.Validate(); err != nil {
		return config.Layout{}, fmt.Errorf("%w: %v", errConfig, err)
	}
	layout := config.NewLayout(cfg.Pipeline.DataDir)
	if err := layout.Ensure(); err != nil {
		return config.Layout{}, err
	}
	return layout, nil
}

// stagePaths resolves the handoff files for the given day.
func stagePaths(layout config.Layout, day time.Time) pipeline.RunPaths {
	return pipeline.PathsFor(layout, day)
}
