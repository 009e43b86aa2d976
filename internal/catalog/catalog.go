// Package catalog discovers published brochure versions for each extracted
// firm through the IAPD firm-info JSON API: stage three of the pipeline.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

// DefaultAPIBaseURL is the IAPD firm search API.
const DefaultAPIBaseURL = "https://api.adviserinfo.sec.gov"

// firmSearchResponse is the outer envelope of the firm-info API. The firm
// document itself arrives JSON-encoded inside the iacontent string.
type firmSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Content string `json:"iacontent"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// iaContent is the slice of the inner firm document the catalog reads:
// the published brochure versions.
type iaContent struct {
	Brochures struct {
		Details []struct {
			VersionID     json.Number `json:"brochureVersionID"`
			Name          string      `json:"brochureName"`
			DateSubmitted string      `json:"dateSubmitted"`
			LastConfirmed string      `json:"lastConfirmed"`
		} `json:"brochuredetails"`
	} `json:"brochures"`
}

// Stats are the per-run catalog counters, logged at stage end.
type Stats struct {
	FirmsProcessed     atomic.Int64
	FirmsFailed        atomic.Int64
	FirmsWithBrochures atomic.Int64
	BrochuresEmitted   atomic.Int64
	BrochuresFiltered  atomic.Int64
}

// Catalog queries the firm-info API for each stage-1 firm and writes the
// surviving brochure references to the stage-2 CSV.
type Catalog struct {
	client  fetcher.Client
	baseURL string
	workers int

	// known is the incremental deny-list of already-processed brochure
	// version ids. Entries found here are dropped before stage-2.
	known map[string]struct{}
}

// New creates a Catalog. An empty baseURL uses the IAPD endpoint; workers
// below one run sequentially; known may be nil when incremental filtering
// is off.
func New(client fetcher.Client, baseURL string, workers int, known map[string]struct{}) *Catalog {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if workers < 1 {
		workers = 1
	}
	return &Catalog{client: client, baseURL: baseURL, workers: workers, known: known}
}

// FirmURL composes the firm-info API URL for a CRD number.
func (c *Catalog) FirmURL(crd string) string {
	return fmt.Sprintf("%s/search/firm/%s?hl=true&nrows=12&query=&start=0&wt=json", c.baseURL, crd)
}

// Run streams the stage-1 CSV and writes one stage-2 row per surviving
// brochure to outPath. Per-firm API or parse failures are logged and
// contribute zero brochures; they never abort the stage. Row order follows
// completion order across workers.
func (c *Catalog) Run(ctx context.Context, stage1Path, outPath string) (*Stats, error) {
	log := zap.L().With(zap.String("stage", "catalog"))
	stats := &Stats{}

	in, err := os.Open(stage1Path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", stage1Path)
	}
	defer in.Close() //nolint:errcheck

	out, err := model.CreateCSV(outPath, model.Stage2Columns)
	if err != nil {
		return nil, err
	}

	var outMu sync.Mutex

	rowCh, errCh := fetcher.StreamCSV(ctx, in, fetcher.CSVOptions{HasHeader: true})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for row := range rowCh {
		firm := model.FirmFromStage1Row(row)
		if firm.CRDNumber == "" {
			continue
		}
		g.Go(func() error {
			refs := c.catalogFirm(gctx, firm, stats, log)
			if len(refs) == 0 {
				return nil
			}
			stats.FirmsWithBrochures.Add(1)
			outMu.Lock()
			defer outMu.Unlock()
			for _, ref := range refs {
				if err := out.Write(ref.Stage2Row()); err != nil {
					return err
				}
				stats.BrochuresEmitted.Add(1)
			}
			return nil
		})
	}

	groupErr := g.Wait()
	if streamErr := <-errCh; streamErr != nil {
		_ = out.Close()
		return stats, eris.Wrap(streamErr, "catalog: read stage-1")
	}
	if groupErr != nil {
		_ = out.Close()
		return stats, eris.Wrap(groupErr, "catalog: worker pool")
	}

	if err := out.Close(); err != nil {
		return stats, err
	}

	processed := stats.FirmsProcessed.Load()
	emitted := stats.BrochuresEmitted.Load()
	avg := 0.0
	if processed > 0 {
		avg = float64(emitted) / float64(processed)
	}
	log.Info("brochure catalog complete",
		zap.Int64("firms_processed", processed),
		zap.Int64("firms_failed", stats.FirmsFailed.Load()),
		zap.Int64("firms_with_brochures", stats.FirmsWithBrochures.Load()),
		zap.Int64("brochures_emitted", emitted),
		zap.Int64("brochures_filtered", stats.BrochuresFiltered.Load()),
		zap.Float64("avg_brochures_per_firm", avg),
	)

	return stats, nil
}

// catalogFirm fetches and parses one firm's brochure versions, applying the
// incremental filter. Failures are logged and yield nil.
func (c *Catalog) catalogFirm(ctx context.Context, firm *model.FirmRecord, stats *Stats, log *zap.Logger) []*model.BrochureRef {
	stats.FirmsProcessed.Add(1)

	res, err := c.client.Get(ctx, c.FirmURL(firm.CRDNumber))
	if err != nil {
		stats.FirmsFailed.Add(1)
		log.Warn("firm-info API call failed",
			zap.String("crd", firm.CRDNumber),
			zap.Error(err),
		)
		return nil
	}
	if res.StatusCode != http.StatusOK {
		stats.FirmsFailed.Add(1)
		log.Warn("firm-info API returned non-200",
			zap.String("crd", firm.CRDNumber),
			zap.Int("status", res.StatusCode),
		)
		return nil
	}

	content, err := parseBrochures(res.Body)
	if err != nil {
		stats.FirmsFailed.Add(1)
		log.Warn("firm-info response unparseable",
			zap.String("crd", firm.CRDNumber),
			zap.Error(err),
		)
		return nil
	}

	var refs []*model.BrochureRef
	for _, d := range content.Brochures.Details {
		versionID := d.VersionID.String()
		if _, seen := c.known[versionID]; seen && versionID != "" {
			stats.BrochuresFiltered.Add(1)
			continue
		}
		refs = append(refs, &model.BrochureRef{
			FirmCRD:       firm.CRDNumber,
			FirmName:      firm.BusinessName,
			VersionID:     versionID,
			BrochureName:  d.Name,
			DateSubmitted: model.NormalizeDate(d.DateSubmitted),
			DateConfirmed: model.NormalizeDate(d.LastConfirmed),
			Status:        model.StatusPending,
		})
	}
	return refs
}

// parseBrochures unwraps the double-encoded firm document and returns the
// brochure section.
func parseBrochures(body []byte) (*iaContent, error) {
	outer, err := fetcher.DecodeJSONBytes[firmSearchResponse](body)
	if err != nil {
		return nil, err
	}
	if len(outer.Hits.Hits) == 0 {
		return nil, eris.New("catalog: no firm hit in response")
	}
	return fetcher.DecodeJSONBytes[iaContent]([]byte(outer.Hits.Hits[0].Source.Content))
}
