// Package feed acquires the IAPD daily firm feed and extracts firm records
// from it: stages one and two of the pipeline.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/fetcher"
)

// DefaultFeedBaseURL is where the SEC publishes the daily compilation.
const DefaultFeedBaseURL = "https://reports.adviserinfo.sec.gov/reports/CompilationReports"

// feedLookbackDays is how many calendar days to walk back from today when
// the current day's feed is not yet published.
const feedLookbackDays = 7

// ErrFeedUnavailable reports that no candidate day within the lookback
// window served the feed. The run aborts with no output.
var ErrFeedUnavailable = eris.New("feed: no daily feed available within lookback window")

// Acquirer locates, downloads, and decompresses the newest daily XML feed.
type Acquirer struct {
	client  fetcher.Client
	baseURL string
	destDir string
}

// NewAcquirer creates an Acquirer saving feeds under destDir. An empty
// baseURL uses the SEC endpoint.
func NewAcquirer(client fetcher.Client, baseURL, destDir string) *Acquirer {
	if baseURL == "" {
		baseURL = DefaultFeedBaseURL
	}
	return &Acquirer{client: client, baseURL: baseURL, destDir: destDir}
}

// FeedURL composes the candidate URL for a given day.
func (a *Acquirer) FeedURL(day time.Time) string {
	return fmt.Sprintf("%s/IA_FIRM_SEC_Feed_%s.xml.gz", a.baseURL, day.Format("01_02_2006"))
}

// Acquire walks back from now up to seven days, downloading the first feed
// that answers 200 with a nonempty body, and returns the path to the
// decompressed XML. Transport faults retry per candidate inside the client;
// a 404 is terminal for that candidate only.
func (a *Acquirer) Acquire(ctx context.Context, now time.Time) (string, error) {
	log := zap.L().With(zap.String("stage", "acquire"))

	for back := 0; back <= feedLookbackDays; back++ {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "feed: acquire cancelled")
		}

		day := now.AddDate(0, 0, -back)
		url := a.FeedURL(day)

		res, err := a.client.Get(ctx, url)
		if err != nil {
			log.Warn("feed candidate failed", zap.String("url", url), zap.Error(err))
			continue
		}
		if res.StatusCode != http.StatusOK || len(res.Body) == 0 {
			log.Debug("feed candidate unavailable",
				zap.String("url", url),
				zap.Int("status", res.StatusCode),
			)
			continue
		}

		stamp := day.Format("01_02_2006")
		gzPath := filepath.Join(a.destDir, fmt.Sprintf("IA_FIRM_SEC_Feed_%s.xml.gz", stamp))
		xmlPath := filepath.Join(a.destDir, fmt.Sprintf("IA_FIRM_SEC_Feed_%s.xml", stamp))

		if err := os.WriteFile(gzPath, res.Body, 0o644); err != nil {
			return "", eris.Wrapf(err, "feed: save %s", gzPath)
		}
		if _, err := fetcher.GunzipFile(gzPath, xmlPath); err != nil {
			return "", eris.Wrapf(err, "feed: decompress %s", gzPath)
		}

		log.Info("acquired daily feed",
			zap.String("url", url),
			zap.String("xml", xmlPath),
			zap.Int("compressed_bytes", len(res.Body)),
		)
		return xmlPath, nil
	}

	return "", ErrFeedUnavailable
}
