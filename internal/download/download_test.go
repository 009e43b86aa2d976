package download

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/iapd-pipeline/internal/fetcher"
	"github.com/sells-group/iapd-pipeline/internal/model"
)

// pdfBody is a minimal body passing both the magic and size checks.
func pdfBody() []byte {
	body := make([]byte, 2048)
	copy(body, "%PDF-1.4\n")
	return body
}

func writeStage2(t *testing.T, refs ...*model.BrochureRef) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stage2.csv")
	f, err := model.CreateCSV(path, model.Stage2Columns)
	require.NoError(t, err)
	for _, ref := range refs {
		require.NoError(t, f.Write(ref.Stage2Row()))
	}
	require.NoError(t, f.Close())
	return path
}

func readRefs(t *testing.T, path string) map[string]*model.BrochureRef {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, model.Stage3Columns, rows[0])
	refs := make(map[string]*model.BrochureRef)
	for _, row := range rows[1:] {
		ref := model.BrochureFromStage3Row(row)
		refs[ref.VersionID] = ref
	}
	return refs
}

// testServer serves the brochure endpoint keyed on BRCHR_VRSN_ID.
func testServer(t *testing.T, bodies map[string][]byte, statuses map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("BRCHR_VRSN_ID")
		if status, ok := statuses[id]; ok {
			w.WriteHeader(status)
			return
		}
		if body, ok := bodies[id]; ok {
			w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
}

func testFetcher(t *testing.T, srv *httptest.Server, workers int) (*Fetcher, string) {
	t.Helper()
	destDir := t.TempDir()
	client := &rewriteClient{
		inner: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 2, RetryBackoff: time.Millisecond}),
		base:  srv.URL,
	}
	return New(client, destDir, workers), destDir
}

// rewriteClient redirects the production brochure host to the test server.
type rewriteClient struct {
	inner fetcher.Client
	base  string
}

func (c *rewriteClient) Get(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	i := len("https://files.adviserinfo.sec.gov")
	return c.inner.Get(ctx, c.base+rawURL[i:])
}

func TestRunStatuses(t *testing.T) {
	srv := testServer(t,
		map[string][]byte{
			"11": pdfBody(),
			"12": []byte("NOT A PDF\n"),
		},
		map[string]int{
			"14": http.StatusInternalServerError,
		})
	defer srv.Close()

	f, destDir := testFetcher(t, srv, 1)
	stage2 := writeStage2(t,
		&model.BrochureRef{FirmCRD: "100", VersionID: "11", BrochureName: "Good"},
		&model.BrochureRef{FirmCRD: "100", VersionID: "12", BrochureName: "Corrupt"},
		&model.BrochureRef{FirmCRD: "100", VersionID: "13", BrochureName: "Missing"},
		&model.BrochureRef{FirmCRD: "100", VersionID: "14", BrochureName: "Broken"},
		&model.BrochureRef{FirmCRD: "200", VersionID: "", BrochureName: "No version"},
	)
	outPath := filepath.Join(t.TempDir(), "stage3.csv")

	stats, err := f.Run(context.Background(), stage2, outPath)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Attempted.Load())
	assert.Equal(t, int64(1), stats.Succeeded.Load())
	assert.Equal(t, int64(1), stats.Failed.Load())
	assert.Equal(t, int64(2), stats.InvalidURL.Load())
	assert.Equal(t, int64(1), stats.NoURL.Load())

	refs := readRefs(t, outPath)
	require.Len(t, refs, 5)
	assert.Equal(t, model.StatusSuccess, refs["11"].Status)
	assert.Equal(t, "100_11.pdf", refs["11"].FileName)
	assert.Equal(t, model.StatusInvalidURL, refs["12"].Status)
	assert.Empty(t, refs["12"].FileName)
	assert.Equal(t, model.StatusInvalidURL, refs["13"].Status, "404 is a bad URL")
	assert.Equal(t, model.StatusFailed, refs["14"].Status)
	assert.Equal(t, model.StatusNoURL, refs[""].Status)

	data, err := os.ReadFile(filepath.Join(destDir, "100_11.pdf"))
	require.NoError(t, err)
	assert.Equal(t, pdfBody(), data)

	_, err = os.Stat(filepath.Join(destDir, "100_12.pdf"))
	assert.True(t, os.IsNotExist(err), "corrupt body is never saved")
}

func TestRunTruncatedBody(t *testing.T) {
	srv := testServer(t, map[string][]byte{"11": []byte("%PDF-1.4\n")}, nil)
	defer srv.Close()

	f, destDir := testFetcher(t, srv, 1)
	stage2 := writeStage2(t, &model.BrochureRef{FirmCRD: "100", VersionID: "11"})
	outPath := filepath.Join(t.TempDir(), "stage3.csv")

	stats, err := f.Run(context.Background(), stage2, outPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed.Load())

	refs := readRefs(t, outPath)
	assert.Equal(t, model.StatusFailed, refs["11"].Status)
	_, err = os.Stat(filepath.Join(destDir, "100_11.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSkip(t *testing.T) {
	srv := testServer(t, nil, nil)
	defer srv.Close()

	f, _ := testFetcher(t, srv, 1)
	f.Skip = true
	stage2 := writeStage2(t,
		&model.BrochureRef{FirmCRD: "100", VersionID: "11"},
		&model.BrochureRef{FirmCRD: "100", VersionID: ""},
	)
	outPath := filepath.Join(t.TempDir(), "stage3.csv")

	stats, err := f.Run(context.Background(), stage2, outPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Skipped.Load())
	assert.Equal(t, int64(1), stats.NoURL.Load())

	refs := readRefs(t, outPath)
	assert.Equal(t, model.StatusSkipped, refs["11"].Status)
	assert.Equal(t, model.StatusNoURL, refs[""].Status)
}

func TestRunWorkers(t *testing.T) {
	bodies := map[string][]byte{}
	var want []*model.BrochureRef
	for _, id := range []string{"11", "12", "13", "14", "15", "16"} {
		bodies[id] = pdfBody()
		want = append(want, &model.BrochureRef{FirmCRD: "100", VersionID: id})
	}
	srv := testServer(t, bodies, nil)
	defer srv.Close()

	f, _ := testFetcher(t, srv, 4)
	stage2 := writeStage2(t, want...)
	outPath := filepath.Join(t.TempDir(), "stage3.csv")

	stats, err := f.Run(context.Background(), stage2, outPath)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Succeeded.Load())

	refs := readRefs(t, outPath)
	require.Len(t, refs, 6)
	for _, ref := range refs {
		assert.Equal(t, model.StatusSuccess, ref.Status)
	}
}

func TestRunMissingStage2(t *testing.T) {
	f := New(nil, t.TempDir(), 1)
	_, err := f.Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "out.csv"))
	assert.Error(t, err)
}
