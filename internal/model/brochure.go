package model

import "fmt"

// DownloadStatus tracks the outcome of a brochure PDF fetch. Transitions
// within a run only move forward from Pending; a later run re-evaluates
// Failed entries from scratch.
type DownloadStatus string

const (
	StatusPending    DownloadStatus = "PENDING"
	StatusSuccess    DownloadStatus = "SUCCESS"
	StatusFailed     DownloadStatus = "FAILED"
	StatusNoURL      DownloadStatus = "NO_URL"
	StatusInvalidURL DownloadStatus = "INVALID_URL"
	StatusSkipped    DownloadStatus = "SKIPPED"
)

// Stage2Columns is the header of the brochure catalog CSV
// (FilesToDownload_YYYYMMDD.csv).
var Stage2Columns = []string{
	"firmId",
	"firmName",
	"brochureVersionId",
	"brochureName",
	"dateSubmitted",
	"dateConfirmed",
}

// Stage3Columns extends stage-2 with per-item download outcome
// (FilesToDownload_YYYYMMDD_with_status.csv).
var Stage3Columns = append(append([]string{}, Stage2Columns...),
	"downloadStatus",
	"fileName",
)

// BrochureRef identifies one published brochure version of a firm. The
// composite key (FirmCRD, VersionID) is the contract; VersionID is unique in
// practice. Created by the catalog stage; the download stage fills Status
// and FileName.
type BrochureRef struct {
	FirmCRD       string
	FirmName      string
	VersionID     string
	BrochureName  string
	DateSubmitted string
	DateConfirmed string
	Status        DownloadStatus
	FileName      string
}

// SourceURL derives the brochure PDF location from the version id.
func (b *BrochureRef) SourceURL() string {
	return fmt.Sprintf("https://files.adviserinfo.sec.gov/IAPD/Content/Common/crd_iapd_Brochure.aspx?BRCHR_VRSN_ID=%s", b.VersionID)
}

// LocalFileName is the canonical on-disk name {firm_crd}_{version_id}.pdf.
func (b *BrochureRef) LocalFileName() string {
	return fmt.Sprintf("%s_%s.pdf", b.FirmCRD, b.VersionID)
}

// Stage2Row serializes the catalog fields in Stage2Columns order.
func (b *BrochureRef) Stage2Row() []string {
	return []string{
		b.FirmCRD,
		b.FirmName,
		b.VersionID,
		b.BrochureName,
		b.DateSubmitted,
		b.DateConfirmed,
	}
}

// Stage3Row serializes the record in Stage3Columns order.
func (b *BrochureRef) Stage3Row() []string {
	return append(b.Stage2Row(), string(b.Status), b.FileName)
}

// BrochureFromStage2Row rebuilds a BrochureRef from a stage-2 CSV row with
// status Pending.
func BrochureFromStage2Row(row []string) *BrochureRef {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return &BrochureRef{
		FirmCRD:       get(0),
		FirmName:      get(1),
		VersionID:     get(2),
		BrochureName:  get(3),
		DateSubmitted: get(4),
		DateConfirmed: get(5),
		Status:        StatusPending,
	}
}

// BrochureFromStage3Row rebuilds a BrochureRef from a stage-3 CSV row.
func BrochureFromStage3Row(row []string) *BrochureRef {
	b := BrochureFromStage2Row(row)
	if len(row) > 6 {
		b.Status = DownloadStatus(row[6])
	}
	if len(row) > 7 {
		b.FileName = row[7]
	}
	return b
}
