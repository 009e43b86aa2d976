// Package model declares the typed records that flow between pipeline
// stages and the CSV column contracts that persist them. Column order is
// contract: the constants here drive both writers and readers.
package model

// Stage1Columns is the header of the firm extract CSV
// (IA_FIRM_SEC_DATA_YYYYMMDD.csv). The BrochureURL column is empty at this
// stage and filled in the final output.
var Stage1Columns = []string{
	"dateAdded",
	"SECRgmCD",
	"FirmCrdNb",
	"SECMb",
	"Business Name",
	"Legal Name",
	"Street 1",
	"Street 2",
	"City",
	"State",
	"Country",
	"Postal Code",
	"Telephone #",
	"Fax #",
	"Registration Firm Type",
	"Registration State",
	"Registration Date",
	"Filing Date",
	"Filing Version",
	"Total Employees",
	"AUM",
	"Total Accounts",
	"BrochureURL",
}

// FirmRecord is one registered advisory firm projected from a <Firm>
// subtree of the daily feed. All fields are strings; absence is the empty
// string, which is what the output contract requires. Immutable after
// construction.
type FirmRecord struct {
	DateAdded         string
	SECRegionCode     string
	CRDNumber         string
	SECNumber         string
	BusinessName      string
	LegalName         string
	Street1           string
	Street2           string
	City              string
	State             string
	Country           string
	PostalCode        string
	Phone             string
	Fax               string
	FirmType          string
	RegistrationState string
	RegistrationDate  string
	FilingDate        string
	FilingVersion     string
	TotalEmployees    string
	AUM               string
	TotalAccounts     string
}

// Stage1Row serializes the record in Stage1Columns order.
func (f *FirmRecord) Stage1Row() []string {
	return []string{
		f.DateAdded,
		f.SECRegionCode,
		f.CRDNumber,
		f.SECNumber,
		f.BusinessName,
		f.LegalName,
		f.Street1,
		f.Street2,
		f.City,
		f.State,
		f.Country,
		f.PostalCode,
		f.Phone,
		f.Fax,
		f.FirmType,
		f.RegistrationState,
		f.RegistrationDate,
		f.FilingDate,
		f.FilingVersion,
		f.TotalEmployees,
		f.AUM,
		f.TotalAccounts,
		"", // BrochureURL
	}
}

// FirmFromStage1Row rebuilds a FirmRecord from a stage-1 CSV row. Short rows
// are tolerated; missing trailing fields stay empty.
func FirmFromStage1Row(row []string) *FirmRecord {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return &FirmRecord{
		DateAdded:         get(0),
		SECRegionCode:     get(1),
		CRDNumber:         get(2),
		SECNumber:         get(3),
		BusinessName:      get(4),
		LegalName:         get(5),
		Street1:           get(6),
		Street2:           get(7),
		City:              get(8),
		State:             get(9),
		Country:           get(10),
		PostalCode:        get(11),
		Phone:             get(12),
		Fax:               get(13),
		FirmType:          get(14),
		RegistrationState: get(15),
		RegistrationDate:  get(16),
		FilingDate:        get(17),
		FilingVersion:     get(18),
		TotalEmployees:    get(19),
		AUM:               get(20),
		TotalAccounts:     get(21),
	}
}
