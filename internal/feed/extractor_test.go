package feed

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/iapd-pipeline/internal/model"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<IAPDFirmSECReport>
  <Firms>
    <Firm>
      <Info SECRgnCD="NYRO" FirmCrdNb="100" SECNb="801-12345" BusNm="Alpha Advisors" LegalNm="Alpha Advisors LLC"/>
      <MainAddr Strt1="1 Main St" Strt2="Suite 4" City="New York" State="NY" Cntry="United States" PostlCd="10001" PhNb="212-555-0100" FaxNb="212-555-0101"/>
      <Rgstn FirmType="Registered" St="APPROVED" Dt="2001-03-15"/>
      <Filing Dt="01/15/2024" FormVrsn="9"/>
      <Item5A TtlEmp="25"/>
      <Item5F Q5F2C="1200000000" Q5F2F="340"/>
    </Firm>
    <Firm>
      <Info SECRgnCD="CHRO" FirmCrdNb="200" BusNm="Beta Capital"/>
      <Filing Dt="2024-01-10" FormVrsn="3"/>
    </Firm>
    <Firm>
      <Info BusNm="No CRD Partners"/>
    </Firm>
  </Firms>
</IAPDFirmSECReport>`

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExtract(t *testing.T) {
	xmlPath := writeFeed(t, sampleFeed)
	outPath := filepath.Join(t.TempDir(), "stage1.csv")

	e := &Extractor{}
	n, err := e.Extract(context.Background(), xmlPath, outPath, "02/01/2024")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "firm without CRD is skipped")

	rows := readRows(t, outPath)
	require.Len(t, rows, 3)
	assert.Equal(t, model.Stage1Columns, rows[0])

	alpha := model.FirmFromStage1Row(rows[1])
	assert.Equal(t, "02/01/2024", alpha.DateAdded)
	assert.Equal(t, "100", alpha.CRDNumber)
	assert.Equal(t, "801-12345", alpha.SECNumber)
	assert.Equal(t, "Alpha Advisors", alpha.BusinessName)
	assert.Equal(t, "Suite 4", alpha.Street2)
	assert.Equal(t, "2001-03-15", alpha.RegistrationDate, "registration date passes through")
	assert.Equal(t, "01/15/2024", alpha.FilingDate)
	assert.Equal(t, "25", alpha.TotalEmployees)
	assert.Equal(t, "1200000000", alpha.AUM)
	assert.Equal(t, "340", alpha.TotalAccounts)

	beta := model.FirmFromStage1Row(rows[2])
	assert.Equal(t, "200", beta.CRDNumber)
	assert.Equal(t, "01/10/2024", beta.FilingDate, "ISO filing date normalized")
	assert.Empty(t, beta.Street1)
}

func TestExtractIndexLimit(t *testing.T) {
	xmlPath := writeFeed(t, sampleFeed)
	outPath := filepath.Join(t.TempDir(), "stage1.csv")

	e := &Extractor{IndexLimit: 1}
	n, err := e.Extract(context.Background(), xmlPath, outPath, "02/01/2024")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readRows(t, outPath)
	assert.Len(t, rows, 2)
}

func TestExtractFatalXML(t *testing.T) {
	xmlPath := writeFeed(t, `<Firms><Firm><Info FirmCrdNb="100"/></Firm><Firm><Info`)
	outPath := filepath.Join(t.TempDir(), "stage1.csv")

	e := &Extractor{}
	_, err := e.Extract(context.Background(), xmlPath, outPath, "02/01/2024")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrXMLFatal)
}

func TestExtractMissingFile(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.xml"), filepath.Join(t.TempDir(), "out.csv"), "02/01/2024")
	assert.Error(t, err)
}

func TestExtractEmptyFeed(t *testing.T) {
	xmlPath := writeFeed(t, `<?xml version="1.0"?><IAPDFirmSECReport><Firms/></IAPDFirmSECReport>`)
	outPath := filepath.Join(t.TempDir(), "stage1.csv")

	e := &Extractor{}
	n, err := e.Extract(context.Background(), xmlPath, outPath, "02/01/2024")
	require.NoError(t, err)
	assert.Zero(t, n)

	rows := readRows(t, outPath)
	assert.Len(t, rows, 1, "header only")
}
