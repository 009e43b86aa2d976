// Package pipeline orchestrates the daily run: feed acquisition, firm
// extraction, brochure cataloging, PDF downloads, classification, and the
// merge into the dated and master output files.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/iapd-pipeline/internal/catalog"
	"github.com/sells-group/iapd-pipeline/internal/classify"
	"github.com/sells-group/iapd-pipeline/internal/config"
	"github.com/sells-group/iapd-pipeline/internal/download"
	"github.com/sells-group/iapd-pipeline/internal/feed"
	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/incremental"
	"github.com/sells-group/iapd-pipeline/internal/merge"
	"github.com/sells-group/iapd-pipeline/internal/model"
	"github.com/sells-group/iapd-pipeline/internal/textextract"
)

// RunPaths are the stage handoff files of one run, stamped with the run day.
type RunPaths struct {
	Stage1 string // extracted firms
	Stage2 string // brochures to download
	Stage3 string // download outcomes
	Dated  string // this run's output rows
	Master string // cumulative output
}

// PathsFor composes the stage file names for a run on the given day.
func PathsFor(layout config.Layout, day time.Time) RunPaths {
	stamp := model.FileStamp(day)
	return RunPaths{
		Stage1: filepath.Join(layout.Output, fmt.Sprintf("IA_FIRM_SEC_DATA_%s.csv", stamp)),
		Stage2: filepath.Join(layout.Output, fmt.Sprintf("FilesToDownload_%s.csv", stamp)),
		Stage3: filepath.Join(layout.Output, fmt.Sprintf("FilesToDownload_%s_with_status.csv", stamp)),
		Dated:  filepath.Join(layout.Output, fmt.Sprintf("IAPD_Data_%s.csv", stamp)),
		Master: layout.MasterPath(),
	}
}

// Options override pipeline collaborators, mainly for tests. Zero values
// use production defaults.
type Options struct {
	Client      fetcher.Client
	FeedBaseURL string
	APIBaseURL  string
	Extractor   textextract.Extractor
	Now         func() time.Time
}

// Summary is the run report logged and returned after a full pipeline run.
type Summary struct {
	RunID          string
	Started        time.Time
	Finished       time.Time
	ArchivedDir    string
	FeedPath       string
	FirmsExtracted int
	Catalog        *catalog.Stats
	Download       *download.Stats
	Merge          *merge.Stats
	Paths          RunPaths
}

// Pipeline wires the stages together under one configuration.
type Pipeline struct {
	cfg    *config.Config
	layout config.Layout
	opts   Options
}

// New builds a Pipeline from validated configuration.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Client == nil {
		opts.Client = NewClient(cfg)
	}
	if opts.Extractor == nil {
		ext, err := textextract.NewExtractor(cfg.Extract)
		if err != nil {
			return nil, err
		}
		opts.Extractor = ext
	}
	return &Pipeline{
		cfg:    cfg,
		layout: config.NewLayout(cfg.Pipeline.DataDir),
		opts:   opts,
	}, nil
}

// NewClient builds the shared HTTP fetcher with the configured per-host
// rate limits.
func NewClient(cfg *config.Config) fetcher.Client {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
		MaxRetries: cfg.HTTP.MaxRetries,
		RateLimiters: map[string]*rate.Limiter{
			fetcher.FeedHost:     fetcher.NewLimiter(5),
			fetcher.APIHost:      fetcher.NewLimiter(cfg.Pipeline.APIRateLimit),
			fetcher.DownloadHost: fetcher.NewLimiter(cfg.Pipeline.DownloadRateLimit),
		},
	})
}

// PatternCatalog builds the classification catalog, applying the configured
// overlay when present.
func (p *Pipeline) PatternCatalog() (*classify.Catalog, error) {
	patterns := classify.DefaultCatalog()
	if p.cfg.Patterns.File != "" {
		if err := patterns.LoadOverlay(p.cfg.Patterns.File); err != nil {
			return nil, err
		}
	}
	return patterns, nil
}

// Layout returns the resolved data directory layout.
func (p *Pipeline) Layout() config.Layout {
	return p.layout
}

// Run executes the full pipeline once. Stage boundaries are synchronous:
// each stage reads only files the previous stage has fully written.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	now := p.opts.Now()
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: now,
		Paths:   PathsFor(p.layout, now),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID))
	log.Info("pipeline run starting", zap.String("data_dir", p.layout.Root))

	if p.cfg.Pipeline.ForceRestart {
		archived, err := p.layout.Archive(now)
		if err != nil {
			return summary, err
		}
		summary.ArchivedDir = archived
		if archived != "" {
			log.Info("archived previous data directory", zap.String("dest", archived))
		}
	}
	if err := p.layout.Ensure(); err != nil {
		return summary, err
	}

	baseline, err := p.loadBaseline(ctx)
	if err != nil {
		return summary, err
	}

	acquirer := feed.NewAcquirer(p.opts.Client, p.opts.FeedBaseURL, p.layout.FirmFiles)
	feedPath, err := acquirer.Acquire(ctx, now)
	if err != nil {
		return summary, err
	}
	summary.FeedPath = feedPath

	dateAdded := model.DateStamp(now)
	extractor := &feed.Extractor{IndexLimit: p.cfg.Pipeline.IndexLimit}
	firms, err := extractor.Extract(ctx, feedPath, summary.Paths.Stage1, dateAdded)
	if err != nil {
		return summary, err
	}
	summary.FirmsExtracted = firms

	cat := catalog.New(p.opts.Client, p.opts.APIBaseURL, p.cfg.Pipeline.Workers, baseline.Known)
	summary.Catalog, err = cat.Run(ctx, summary.Paths.Stage1, summary.Paths.Stage2)
	if err != nil {
		return summary, err
	}

	dl := download.New(p.opts.Client, p.layout.Downloads, p.cfg.Pipeline.Workers)
	summary.Download, err = dl.Run(ctx, summary.Paths.Stage2, summary.Paths.Stage3)
	if err != nil {
		return summary, err
	}

	patterns, err := p.PatternCatalog()
	if err != nil {
		return summary, err
	}
	classifier := classify.New(p.opts.Extractor, patterns)
	merger := merge.New(classifier, p.layout.Downloads)
	summary.Merge, err = merger.Merge(ctx, summary.Paths.Stage1, summary.Paths.Stage3,
		summary.Paths.Dated, summary.Paths.Master, dateAdded)
	if err != nil {
		return summary, err
	}

	summary.Finished = p.opts.Now()
	log.Info("pipeline run complete",
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)),
		zap.Int("firms_extracted", summary.FirmsExtracted),
		zap.Int64("brochures_emitted", summary.Catalog.BrochuresEmitted.Load()),
		zap.Int64("brochures_filtered", summary.Catalog.BrochuresFiltered.Load()),
		zap.Int64("downloads_succeeded", summary.Download.Succeeded.Load()),
		zap.Int64("downloads_failed", summary.Download.Failed.Load()),
		zap.Int("rows_produced", summary.Merge.RowsProduced),
		zap.Int("master_appended", summary.Merge.MasterAppended),
		zap.String("dated_file", summary.Paths.Dated),
	)
	return summary, nil
}

// loadBaseline loads the incremental deny-list. With incremental mode off
// the baseline is empty and every discovered brochure flows through.
func (p *Pipeline) loadBaseline(ctx context.Context) (*incremental.Baseline, error) {
	if !p.cfg.Pipeline.Incremental {
		return &incremental.Baseline{Known: map[string]struct{}{}}, nil
	}
	path := p.cfg.Pipeline.BaselineFile
	if path == "" {
		path = p.layout.MasterPath()
	}
	return incremental.Load(ctx, path)
}
