package feed

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

// ErrXMLFatal reports structural XML corruption that aborts the extract
// stage.
var ErrXMLFatal = eris.New("feed: fatal XML structure error")

// firmXML is the projection of one <Firm> subtree of the daily feed.
type firmXML struct {
	Info struct {
		SECRgnCD  string `xml:"SECRgnCD,attr"`
		FirmCrdNb string `xml:"FirmCrdNb,attr"`
		SECNb     string `xml:"SECNb,attr"`
		BusNm     string `xml:"BusNm,attr"`
		LegalNm   string `xml:"LegalNm,attr"`
	} `xml:"Info"`
	Rgstn struct {
		FirmType string `xml:"FirmType,attr"`
		St       string `xml:"St,attr"`
		Dt       string `xml:"Dt,attr"`
	} `xml:"Rgstn"`
	Filing struct {
		Dt       string `xml:"Dt,attr"`
		FormVrsn string `xml:"FormVrsn,attr"`
	} `xml:"Filing"`
	MainAddr struct {
		Strt1   string `xml:"Strt1,attr"`
		Strt2   string `xml:"Strt2,attr"`
		City    string `xml:"City,attr"`
		State   string `xml:"State,attr"`
		Cntry   string `xml:"Cntry,attr"`
		PostlCd string `xml:"PostlCd,attr"`
		PhNb    string `xml:"PhNb,attr"`
		FaxNb   string `xml:"FaxNb,attr"`
	} `xml:"MainAddr"`
	Item5A struct {
		TtlEmp string `xml:"TtlEmp,attr"`
	} `xml:"Item5A"`
	Item5F struct {
		Q5F2C string `xml:"Q5F2C,attr"`
		Q5F2F string `xml:"Q5F2F,attr"`
	} `xml:"Item5F"`
}

// record projects the XML subtree into the flat firm record. Dates are
// normalized to the output contract or blanked; Registration Date passes
// through unchanged.
func (x *firmXML) record(dateAdded string) *model.FirmRecord {
	return &model.FirmRecord{
		DateAdded:         dateAdded,
		SECRegionCode:     x.Info.SECRgnCD,
		CRDNumber:         x.Info.FirmCrdNb,
		SECNumber:         x.Info.SECNb,
		BusinessName:      x.Info.BusNm,
		LegalName:         x.Info.LegalNm,
		Street1:           x.MainAddr.Strt1,
		Street2:           x.MainAddr.Strt2,
		City:              x.MainAddr.City,
		State:             x.MainAddr.State,
		Country:           x.MainAddr.Cntry,
		PostalCode:        x.MainAddr.PostlCd,
		Phone:             x.MainAddr.PhNb,
		Fax:               x.MainAddr.FaxNb,
		FirmType:          x.Rgstn.FirmType,
		RegistrationState: x.Rgstn.St,
		RegistrationDate:  x.Rgstn.Dt,
		FilingDate:        model.NormalizeDate(x.Filing.Dt),
		FilingVersion:     x.Filing.FormVrsn,
		TotalEmployees:    x.Item5A.TtlEmp,
		AUM:               x.Item5F.Q5F2C,
		TotalAccounts:     x.Item5F.Q5F2F,
	}
}

// Extractor streams <Firm> elements out of the daily feed XML and writes
// the stage-1 CSV.
type Extractor struct {
	// IndexLimit caps emitted firms when positive.
	IndexLimit int
}

// Extract parses xmlPath and writes one stage-1 row per firm to outPath.
// Returns the number of firms emitted. Firms without a CRD number are
// skipped; malformed elements are skipped inside the stream; a structural
// error aborts with ErrXMLFatal.
func (e *Extractor) Extract(ctx context.Context, xmlPath, outPath, dateAdded string) (int, error) {
	log := zap.L().With(zap.String("stage", "extract"))

	in, err := os.Open(xmlPath)
	if err != nil {
		return 0, eris.Wrapf(err, "feed: open %s", xmlPath)
	}
	defer in.Close() //nolint:errcheck

	out, err := model.CreateCSV(outPath, model.Stage1Columns)
	if err != nil {
		return 0, err
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	firmCh, errCh := fetcher.StreamXML[firmXML](streamCtx, in, "Firm")

	emitted := 0
	limited := false
	for firm := range firmCh {
		if firm.Info.FirmCrdNb == "" {
			log.Warn("skipping firm without CRD number", zap.String("name", firm.Info.BusNm))
			continue
		}

		if err := out.Write(firm.record(dateAdded).Stage1Row()); err != nil {
			_ = out.Close()
			return emitted, err
		}
		emitted++

		if e.IndexLimit > 0 && emitted >= e.IndexLimit {
			limited = true
			cancelStream()
			break
		}
	}
	// Drain so the stream goroutine can finish.
	for range firmCh {
	}

	streamErr := <-errCh
	if streamErr != nil && !limited {
		_ = out.Close()
		if ctx.Err() != nil {
			return emitted, eris.Wrap(ctx.Err(), "feed: extract cancelled")
		}
		return emitted, eris.Wrap(ErrXMLFatal, streamErr.Error())
	}

	if err := out.Close(); err != nil {
		return emitted, err
	}

	log.Info("firm extract complete",
		zap.Int("firms", emitted),
		zap.Bool("index_limited", limited),
		zap.String("out", outPath),
	)
	return emitted, nil
}
