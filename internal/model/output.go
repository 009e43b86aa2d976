package model

import "strings"

// SetSeparator joins members of set-valued output fields.
const SetSeparator = "|"

// OutputColumns is the 38-column header of the dated output and master CSVs.
// The first 23 columns mirror Stage1Columns with BrochureURL filled.
var OutputColumns = append(append([]string{}, Stage1Columns...),
	"brochureVersionId",
	"brochureName",
	"dateSubmitted",
	"dateConfirmed",
	"File Name",
	"Proxy Provider",
	"Class Action Provider",
	"ESG Provider",
	"ESG Investment Language",
	"Email -- Compliance",
	"Email -- Proxy",
	"Email -- Brochure",
	"Email -- Item 17",
	"Email -- All",
	"Does Not Vote String",
)

// outputVersionIDIndex is the position of brochureVersionId, the master
// uniqueness key.
var outputVersionIDIndex = len(Stage1Columns)

// OutputVersionID returns the brochureVersionId of an output row, or "" if
// the row is too short.
func OutputVersionID(row []string) string {
	if outputVersionIDIndex < len(row) {
		return row[outputVersionIDIndex]
	}
	return ""
}

// OutputRow denormalizes firm, brochure, and analysis into one 38-column
// row. DateAdded is the MM/DD/YYYY stamp of the run that produced the row.
func OutputRow(firm *FirmRecord, ref *BrochureRef, analysis *BrochureAnalysis, dateAdded string) []string {
	row := firm.Stage1Row()
	row[0] = dateAdded
	row[len(row)-1] = ref.SourceURL() // BrochureURL

	row = append(row,
		ref.VersionID,
		ref.BrochureName,
		ref.DateSubmitted,
		ref.DateConfirmed,
		ref.FileName,
		joinSet(analysis.ProxyProviders),
		joinSet(analysis.ClassActionProviders),
		joinSet(analysis.ESGProviders),
		analysis.ESGLanguageExcerpt,
		joinSet(analysis.EmailCompliance),
		joinSet(analysis.EmailProxy),
		joinSet(analysis.EmailBrochure),
		joinSet(analysis.EmailItem17),
		joinSet(analysis.EmailAll),
		analysis.DoesNotVoteMarker,
	)
	return row
}

func joinSet(members []string) string {
	return strings.Join(members, SetSeparator)
}
