// Package download retrieves brochure PDFs for the catalog stage's output
// and records a per-item download status: stage four of the pipeline.
package download

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

// pdfMagic is the required prefix of a saved brochure body.
var pdfMagic = []byte("%PDF-")

// minPDFSize is the minimum body size accepted as a complete brochure.
const minPDFSize = 1024

// Stats are the per-run download counters, logged at stage end.
type Stats struct {
	Attempted  atomic.Int64
	Succeeded  atomic.Int64
	Failed     atomic.Int64
	NoURL      atomic.Int64
	InvalidURL atomic.Int64
	Skipped    atomic.Int64
}

// Fetcher downloads each stage-2 brochure and writes the stage-3 CSV with
// downloadStatus and fileName appended.
type Fetcher struct {
	client  fetcher.Client
	destDir string
	workers int

	// Skip marks every row SKIPPED without touching the network.
	Skip bool
}

// New creates a Fetcher saving PDFs under destDir. Workers below one run
// sequentially.
func New(client fetcher.Client, destDir string, workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{client: client, destDir: destDir, workers: workers}
}

// Run streams the stage-2 CSV and writes exactly one stage-3 row per input
// row to outPath. Single-item failures never abort the stage. Row order
// follows completion order across workers.
func (f *Fetcher) Run(ctx context.Context, stage2Path, outPath string) (*Stats, error) {
	log := zap.L().With(zap.String("stage", "download"))
	stats := &Stats{}

	in, err := os.Open(stage2Path)
	if err != nil {
		return nil, eris.Wrapf(err, "download: open %s", stage2Path)
	}
	defer in.Close() //nolint:errcheck

	out, err := model.CreateCSV(outPath, model.Stage3Columns)
	if err != nil {
		return nil, err
	}

	var outMu sync.Mutex

	rowCh, errCh := fetcher.StreamCSV(ctx, in, fetcher.CSVOptions{HasHeader: true})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for row := range rowCh {
		ref := model.BrochureFromStage2Row(row)
		g.Go(func() error {
			f.fetchOne(gctx, ref, stats, log)
			outMu.Lock()
			defer outMu.Unlock()
			return out.Write(ref.Stage3Row())
		})
	}

	groupErr := g.Wait()
	if streamErr := <-errCh; streamErr != nil {
		_ = out.Close()
		return stats, eris.Wrap(streamErr, "download: read stage-2")
	}
	if groupErr != nil {
		_ = out.Close()
		return stats, eris.Wrap(groupErr, "download: worker pool")
	}

	if err := out.Close(); err != nil {
		return stats, err
	}

	log.Info("brochure downloads complete",
		zap.Int64("attempted", stats.Attempted.Load()),
		zap.Int64("succeeded", stats.Succeeded.Load()),
		zap.Int64("failed", stats.Failed.Load()),
		zap.Int64("no_url", stats.NoURL.Load()),
		zap.Int64("invalid_url", stats.InvalidURL.Load()),
		zap.Int64("skipped", stats.Skipped.Load()),
	)
	return stats, nil
}

// fetchOne downloads a single brochure and resolves its status in place.
// SUCCESS requires HTTP 200, a body of at least one KiB, and the PDF magic
// prefix; only then is the file written and fileName set.
func (f *Fetcher) fetchOne(ctx context.Context, ref *model.BrochureRef, stats *Stats, log *zap.Logger) {
	stats.Attempted.Add(1)

	if ref.VersionID == "" {
		ref.Status = model.StatusNoURL
		stats.NoURL.Add(1)
		return
	}
	if f.Skip {
		ref.Status = model.StatusSkipped
		stats.Skipped.Add(1)
		return
	}

	res, err := f.client.Get(ctx, ref.SourceURL())
	if err != nil {
		ref.Status = model.StatusFailed
		stats.Failed.Add(1)
		log.Warn("brochure download failed",
			zap.String("crd", ref.FirmCRD),
			zap.String("version_id", ref.VersionID),
			zap.Error(err),
		)
		return
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		ref.Status = model.StatusInvalidURL
		stats.InvalidURL.Add(1)
		return
	case res.StatusCode != http.StatusOK:
		ref.Status = model.StatusFailed
		stats.Failed.Add(1)
		log.Warn("brochure download returned non-200",
			zap.String("crd", ref.FirmCRD),
			zap.String("version_id", ref.VersionID),
			zap.Int("status", res.StatusCode),
		)
		return
	}

	if !bytes.HasPrefix(res.Body, pdfMagic) {
		ref.Status = model.StatusInvalidURL
		stats.InvalidURL.Add(1)
		log.Warn("brochure body is not a PDF",
			zap.String("crd", ref.FirmCRD),
			zap.String("version_id", ref.VersionID),
		)
		return
	}
	if len(res.Body) < minPDFSize {
		// Valid magic but truncated body: retryable on the next run.
		ref.Status = model.StatusFailed
		stats.Failed.Add(1)
		log.Warn("brochure body truncated",
			zap.String("crd", ref.FirmCRD),
			zap.String("version_id", ref.VersionID),
			zap.Int("bytes", len(res.Body)),
		)
		return
	}

	name := ref.LocalFileName()
	if err := os.WriteFile(filepath.Join(f.destDir, name), res.Body, 0o644); err != nil {
		ref.Status = model.StatusFailed
		stats.Failed.Add(1)
		log.Warn("brochure save failed",
			zap.String("crd", ref.FirmCRD),
			zap.String("version_id", ref.VersionID),
			zap.Error(err),
		)
		return
	}

	ref.Status = model.StatusSuccess
	ref.FileName = name
	stats.Succeeded.Add(1)
}
