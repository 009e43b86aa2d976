package model

import "time"

// Date layouts used by the output contract.
const (
	// DateLayout is the MM/DD/YYYY zero-padded form used by dateAdded,
	// Filing Date, dateSubmitted, and dateConfirmed.
	DateLayout = "01/02/2006"
	// FileStampLayout names dated files (IAPD_Data_YYYYMMDD.csv).
	FileStampLayout = "20060102"
	// isoLayout is the feed's Registration Date form, passed through
	// unchanged but accepted when normalizing filing dates.
	isoLayout = "2006-01-02"
)

// DateStamp formats t as MM/DD/YYYY.
func DateStamp(t time.Time) string {
	return t.Format(DateLayout)
}

// FileStamp formats t as YYYYMMDD.
func FileStamp(t time.Time) string {
	return t.Format(FileStampLayout)
}

// NormalizeDate returns s rendered as MM/DD/YYYY when it parses as
// MM/DD/YYYY or ISO YYYY-MM-DD, and the empty string otherwise. The output
// contract requires dates to be well-formed or empty, never malformed.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout)
	}
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t.Format(DateLayout)
	}
	return ""
}
