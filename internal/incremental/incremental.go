// Package incremental loads the replay fingerprints of previous runs from
// the master output file so the catalog stage can skip known brochures.
package incremental

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/model"
)

// versionIDColumn is the uniqueness key of the master file.
const versionIDColumn = "brochureVersionId"

// filingDateColumn feeds the advisory MaxFilingDate.
const filingDateColumn = "Filing Date"

// Baseline is the incremental state recovered from a master CSV: the set of
// already-processed brochure version ids, plus the advisory newest filing
// date seen. The date never gates processing.
type Baseline struct {
	Known         map[string]struct{}
	MaxFilingDate time.Time
}

// Has reports whether the version id was processed by an earlier run.
func (b *Baseline) Has(versionID string) bool {
	_, ok := b.Known[versionID]
	return ok
}

// Load streams the master file once and collects brochure version ids. A
// missing file yields an empty baseline; so does a master without the
// version id column, with a warning.
func Load(ctx context.Context, masterPath string) (*Baseline, error) {
	log := zap.L().With(zap.String("stage", "incremental"))
	baseline := &Baseline{Known: make(map[string]struct{})}

	f, err := os.Open(masterPath)
	if os.IsNotExist(err) {
		log.Info("no baseline file, starting fresh", zap.String("path", masterPath))
		return baseline, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "incremental: open %s", masterPath)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return baseline, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "incremental: read header of %s", masterPath)
	}

	idCol, dateCol := -1, -1
	for i, name := range header {
		switch name {
		case versionIDColumn:
			idCol = i
		case filingDateColumn:
			dateCol = i
		}
	}
	if idCol == -1 {
		log.Warn("baseline missing version id column, treating as empty",
			zap.String("path", masterPath),
		)
		return baseline, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "incremental: cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "incremental: read %s", masterPath)
		}
		if idCol < len(row) && row[idCol] != "" {
			baseline.Known[row[idCol]] = struct{}{}
		}
		if dateCol != -1 && dateCol < len(row) {
			if d, err := time.Parse(model.DateLayout, row[dateCol]); err == nil && d.After(baseline.MaxFilingDate) {
				baseline.MaxFilingDate = d
			}
		}
	}

	log.Info("baseline loaded",
		zap.String("path", masterPath),
		zap.Int("known_brochures", len(baseline.Known)),
	)
	return baseline, nil
}
