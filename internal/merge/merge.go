// Package merge joins firm, brochure, and classification data into the
// dated output file and appends new rows to the cumulative master: the
// final stage of the pipeline.
package merge

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/classify"
	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

// Stats are the per-run merge counters, logged at stage end.
type Stats struct {
	RowsProduced     int
	Classified       int
	Skipped          int
	FirmsMissing     int
	MasterAppended   int
	MasterDuplicates int
}

// Merger produces the dated 38-column output and keeps the master file
// cumulative with brochureVersionId as the uniqueness key.
type Merger struct {
	classifier   *classify.Classifier
	downloadsDir string
}

// New creates a Merger classifying PDFs under downloadsDir.
func New(classifier *classify.Classifier, downloadsDir string) *Merger {
	return &Merger{classifier: classifier, downloadsDir: downloadsDir}
}

// Merge writes the dated output from this run's stage files, then folds it
// into the master. dateAdded stamps every produced row. Rows whose download
// did not succeed are dropped; rows whose classification fails are kept
// with empty analysis fields.
func (m *Merger) Merge(ctx context.Context, stage1Path, stage3Path, datedPath, masterPath, dateAdded string) (*Stats, error) {
	log := zap.L().With(zap.String("stage", "merge"))
	stats := &Stats{}

	firms, err := loadFirms(ctx, stage1Path)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(stage3Path)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: open %s", stage3Path)
	}
	defer in.Close() //nolint:errcheck

	out, err := model.CreateCSV(datedPath, model.OutputColumns)
	if err != nil {
		return nil, err
	}

	rowCh, errCh := fetcher.StreamCSV(ctx, in, fetcher.CSVOptions{HasHeader: true})
	for row := range rowCh {
		ref := model.BrochureFromStage3Row(row)
		if ref.Status != model.StatusSuccess || ref.FileName == "" {
			continue
		}

		firm, ok := firms[ref.FirmCRD]
		if !ok {
			stats.FirmsMissing++
			log.Warn("brochure firm missing from firm file, dropping row",
				zap.String("crd", ref.FirmCRD),
				zap.String("version_id", ref.VersionID),
			)
			continue
		}

		analysis, skipped := m.classifier.Classify(ctx, filepath.Join(m.downloadsDir, ref.FileName))
		if skipped {
			stats.Skipped++
		} else {
			stats.Classified++
		}

		if err := out.Write(model.OutputRow(firm, ref, analysis, dateAdded)); err != nil {
			_ = out.Close()
			return stats, err
		}
		stats.RowsProduced++
	}
	if streamErr := <-errCh; streamErr != nil {
		_ = out.Close()
		return stats, eris.Wrap(streamErr, "merge: read stage-3")
	}
	if err := out.Close(); err != nil {
		return stats, err
	}

	if err := m.updateMaster(ctx, datedPath, masterPath, stats); err != nil {
		return stats, err
	}

	log.Info("merge complete",
		zap.Int("rows_produced", stats.RowsProduced),
		zap.Int("classified", stats.Classified),
		zap.Int("classification_skipped", stats.Skipped),
		zap.Int("firms_missing", stats.FirmsMissing),
		zap.Int("master_appended", stats.MasterAppended),
		zap.Int("master_duplicates", stats.MasterDuplicates),
	)
	return stats, nil
}

// loadFirms indexes the stage-1 file by CRD number.
func loadFirms(ctx context.Context, stage1Path string) (map[string]*model.FirmRecord, error) {
	f, err := os.Open(stage1Path)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: open %s", stage1Path)
	}
	defer f.Close() //nolint:errcheck

	firms := make(map[string]*model.FirmRecord)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{HasHeader: true})
	for row := range rowCh {
		firm := model.FirmFromStage1Row(row)
		if firm.CRDNumber != "" {
			firms[firm.CRDNumber] = firm
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "merge: read stage-1")
	}
	return firms, nil
}

// updateMaster folds the dated file into the master. A missing master is a
// verbatim copy of the dated file; otherwise the master is scanned once for
// existing version ids and only unseen rows are appended. The master header
// is never rewritten, so a crash mid-append leaves a master a later run can
// repair by re-appending the rows still missing.
func (m *Merger) updateMaster(ctx context.Context, datedPath, masterPath string, stats *Stats) error {
	existing, err := masterVersionIDs(ctx, masterPath)
	if err != nil {
		return err
	}
	if existing == nil {
		stats.MasterAppended = stats.RowsProduced
		return copyFile(datedPath, masterPath)
	}

	master, err := os.OpenFile(masterPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrapf(err, "merge: open master %s", masterPath)
	}
	w := csv.NewWriter(master)

	dated, err := os.Open(datedPath)
	if err != nil {
		_ = master.Close()
		return eris.Wrapf(err, "merge: open %s", datedPath)
	}
	defer dated.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, dated, fetcher.CSVOptions{HasHeader: true})
	for row := range rowCh {
		id := model.OutputVersionID(row)
		if _, dup := existing[id]; dup {
			stats.MasterDuplicates++
			continue
		}
		existing[id] = struct{}{}
		if err := w.Write(row); err != nil {
			_ = master.Close()
			return eris.Wrap(err, "merge: append master row")
		}
		stats.MasterAppended++
	}
	if streamErr := <-errCh; streamErr != nil {
		_ = master.Close()
		return eris.Wrap(streamErr, "merge: read dated file")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = master.Close()
		return eris.Wrap(err, "merge: flush master")
	}
	if err := master.Sync(); err != nil {
		_ = master.Close()
		return eris.Wrap(err, "merge: sync master")
	}
	return eris.Wrap(master.Close(), "merge: close master")
}

// masterVersionIDs returns the ids already present, or (nil, nil) when the
// master does not exist.
func masterVersionIDs(ctx context.Context, masterPath string) (map[string]struct{}, error) {
	f, err := os.Open(masterPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "merge: open master %s", masterPath)
	}
	defer f.Close() //nolint:errcheck

	ids := make(map[string]struct{})
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{HasHeader: true})
	for row := range rowCh {
		if id := model.OutputVersionID(row); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "merge: scan master")
	}
	return ids, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "merge: open %s", src)
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "merge: create %s", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "merge: copy to %s", dest)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "merge: sync %s", dest)
	}
	return eris.Wrapf(out.Close(), "merge: close %s", dest)
}
