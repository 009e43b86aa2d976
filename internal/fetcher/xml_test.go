package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFirm struct {
	Info struct {
		CRD  string `xml:"FirmCrdNb,attr"`
		Name string `xml:"BusNm,attr"`
	} `xml:"Info"`
}

func collectXML[T any](t *testing.T, doc string, element string) ([]T, error) {
	t.Helper()
	ch, errCh := StreamXML[T](context.Background(), strings.NewReader(doc), element)
	var items []T
	for item := range ch {
		items = append(items, item)
	}
	return items, <-errCh
}

func TestStreamXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Firms>
  <Firm><Info FirmCrdNb="100" BusNm="Alpha Advisors"/></Firm>
  <Firm><Info FirmCrdNb="200" BusNm="Beta Capital"/></Firm>
</Firms>`

	firms, err := collectXML[testFirm](t, doc, "Firm")
	require.NoError(t, err)
	require.Len(t, firms, 2)
	assert.Equal(t, "100", firms[0].Info.CRD)
	assert.Equal(t, "Beta Capital", firms[1].Info.Name)
}

func TestStreamXMLEmptyDocument(t *testing.T) {
	firms, err := collectXML[testFirm](t, `<?xml version="1.0"?><Firms></Firms>`, "Firm")
	require.NoError(t, err)
	assert.Empty(t, firms)
}

func TestStreamXMLStructuralError(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Firms>
  <Firm><Info FirmCrdNb="100"/></Firm>
  <Firm><Info FirmCrdNb="200"`

	firms, err := collectXML[testFirm](t, doc, "Firm")
	assert.Error(t, err)
	// The well-formed element before the corruption still came through.
	assert.Len(t, firms, 1)
}

func TestStreamXMLCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := `<Firms><Firm><Info FirmCrdNb="100"/></Firm></Firms>`
	ch, errCh := StreamXML[testFirm](ctx, strings.NewReader(doc), "Firm")
	for range ch {
	}
	assert.Error(t, <-errCh)
}

func TestStreamXMLIgnoresOtherElements(t *testing.T) {
	doc := `<Root><Other x="1"/><Firm><Info FirmCrdNb="7"/></Firm><Trailer/></Root>`
	firms, err := collectXML[testFirm](t, doc, "Firm")
	require.NoError(t, err)
	require.Len(t, firms, 1)
	assert.Equal(t, "7", firms[0].Info.CRD)
}
