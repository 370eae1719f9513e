package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagora/openhours/internal/profile"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db/sqlite"
)

func sampleRun() *store.Run {
	return &store.Run{
		ID:            "run-1",
		StartedTs:     time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC).Unix(),
		FinishedTs:    time.Date(2026, 3, 2, 8, 12, 0, 0, time.UTC).Unix(),
		Total:         4,
		Identical:     2,
		Different:     1,
		NotComparable: 1,
	}
}

func sampleRecords() []*store.ComparisonRecord {
	now := time.Now().Unix()
	return []*store.ComparisonRecord{
		{
			UID: "c1", RunID: "run-1", FacilityID: "S1433",
			Name: "Mairie du 3e", FacilityType: "mairie",
			URL:          "https://example.org/mairie3",
			FetchStatus:  "ok",
			EncodedOSM:   "Mo-Fr 08:45-16:45",
			ReferenceOSM: "Mo-Fr 08:45-16:45",
			Verdict:      "identical",
			CreatedTs:    now,
		},
		{
			UID: "c2", RunID: "run-1", FacilityID: "M104",
			Name: "Mediatheque", FacilityType: "mediatheque",
			URL:          "https://example.org/mediatheque",
			FetchStatus:  "ok",
			EncodedOSM:   "Tu-Sa 10:00-18:00",
			ReferenceOSM: "Tu-Sa 10:00-19:00",
			Verdict:      "different",
			DiffJSON:     `[{"period":"default","day":"tuesday","kind":"slot_added"}]`,
			CreatedTs:    now,
		},
		{
			UID: "c3", RunID: "run-1", FacilityID: "P77",
			Name:        "Piscine",
			FetchStatus: "unreachable",
			Error:       "fetch: host unreachable",
			CreatedTs:   now,
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleRun(), sampleRecords()))
	html := buf.String()

	assert.Contains(t, html, "run-1")
	assert.Contains(t, html, "4 facilities")
	assert.Contains(t, html, "2 identical")
	assert.Contains(t, html, "Mairie du 3e")
	assert.Contains(t, html, "Mo-Fr 08:45-16:45")
	assert.Contains(t, html, "2026-03-02 08:00 UTC")
	assert.Contains(t, html, "host unreachable")
}

func TestWriteSummaryNoRun(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteSummary(&buf, nil, nil))
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, sampleRun()))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "identical")
	assert.Contains(t, html, "not comparable")
}

func TestDivergenceFeed(t *testing.T) {
	feed := DivergenceFeed("http://localhost:8080", sampleRun(), sampleRecords())
	// Only the diverging facility makes it into the feed.
	require.Len(t, feed.Items, 1)
	assert.Contains(t, feed.Items[0].Title, "Mediatheque")
	assert.Equal(t, "https://example.org/mediatheque", feed.Items[0].Link.Href)

	atom, err := feed.ToAtom()
	require.NoError(t, err)
	assert.Contains(t, atom, "<feed")
	assert.Contains(t, atom, "Mediatheque")
	assert.NotContains(t, atom, "Mairie du 3e")
}

func testServer(t *testing.T) *Server {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "openhours_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	ctx := context.Background()
	require.NoError(t, driver.Migrate(ctx))
	st := store.New(driver, p)

	_, err = st.CreateRun(ctx, sampleRun())
	require.NoError(t, err)
	for _, r := range sampleRecords() {
		_, err := st.CreateComparison(ctx, r)
		require.NoError(t, err)
	}
	return NewServer(st)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerReport(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")
	assert.Contains(t, rec.Body.String(), "Mediatheque")

	rec = get(t, s, "/report?run=run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/report?run=missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerChart(t *testing.T) {
	s := testServer(t)
	rec := get(t, s, "/report/chart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestServerFeed(t *testing.T) {
	s := testServer(t)
	rec := get(t, s, "/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echoContentType), "atom")
	assert.Contains(t, rec.Body.String(), "Mediatheque")
	assert.NotContains(t, rec.Body.String(), "Piscine")
}

func TestServerAPI(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)

	rec = get(t, s, "/api/comparisons?verdict=identical")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "S1433", records[0]["FacilityID"])

	rec = get(t, s, "/api/comparisons?limit=bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const echoContentType = "Content-Type"
