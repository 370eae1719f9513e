package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagora/openhours/internal/profile"
	"github.com/datagora/openhours/internal/schedule"
	"github.com/datagora/openhours/plugin/fetch"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db/sqlite"
)

type fakeFetcher struct {
	results map[string]*fetch.Result
	err     error
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (*fetch.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[url]; ok {
		return res, nil
	}
	return &fetch.Result{URL: url, Status: fetch.StatusNotFound, Code: 404}, nil
}

type fakeExtractor struct {
	schedules map[string]*schedule.Schedule
	err       error
	calls     int
	lastText  string
}

func (f *fakeExtractor) Extract(ctx context.Context, meta schedule.Metadata, pageText string) (*schedule.Schedule, error) {
	f.calls++
	f.lastText = pageText
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.schedules[meta.ID]; ok {
		return s, nil
	}
	return nil, errors.Errorf("no schedule prepared for %s", meta.ID)
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "openhours_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return store.New(driver, p)
}

// weekSchedule builds a schedule open Mo-Fr with the given span and closed
// on the weekend.
func weekSchedule(meta schedule.Metadata, start, end string) *schedule.Schedule {
	s := schedule.New(meta)
	s.Extraction.Found = true
	week := s.Period(schedule.PeriodDefault).Weekly
	for d := schedule.Monday; d <= schedule.Friday; d++ {
		*week.Day(d) = schedule.DaySchedule{
			Found: true,
			Open:  true,
			Slots: []schedule.TimeSlot{{Start: schedule.MustClock(start), End: schedule.MustClock(end)}},
		}
	}
	for d := schedule.Saturday; d <= schedule.Sunday; d++ {
		*week.Day(d) = schedule.DaySchedule{Found: true}
	}
	return s
}

func okPage(url string) *fetch.Result {
	return &fetch.Result{
		URL:    url,
		Status: fetch.StatusOK,
		Code:   200,
		Body: []byte(`<html><body>
			<h1>Mairie</h1>
			<h2>Horaires d'ouverture</h2>
			<p>Du lundi au vendredi de 9h a 17h.</p>
		</body></html>`),
	}
}

func TestRunVerdicts(t *testing.T) {
	st := testStore(t)
	meta := func(id string) schedule.Metadata { return schedule.Metadata{ID: id} }

	facilities := []Facility{
		{ID: "F1", Name: "Mairie du 3e", URL: "https://example.org/f1", ReferenceHours: "Mo-Fr 09:00-17:00; Sa-Su off"},
		{ID: "F2", Name: "Mediatheque", URL: "https://example.org/f2", ReferenceHours: "Mo-Fr 09:00-17:00; Sa-Su off"},
		{ID: "F3", Name: "Piscine", URL: "https://example.org/f3"},
	}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		"https://example.org/f1": okPage("https://example.org/f1"),
		"https://example.org/f2": okPage("https://example.org/f2"),
		"https://example.org/f3": okPage("https://example.org/f3"),
	}}
	extractor := &fakeExtractor{schedules: map[string]*schedule.Schedule{
		"F1": weekSchedule(meta("F1"), "09:00", "17:00"),
		"F2": weekSchedule(meta("F2"), "08:30", "17:00"),
		"F3": weekSchedule(meta("F3"), "09:00", "17:00"),
	}}

	proc := New(fetcher, extractor, st, slog.Default(), Options{Workers: 2})
	run, err := proc.Run(context.Background(), facilities)
	require.NoError(t, err)

	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 1, run.Identical)
	assert.Equal(t, 1, run.Different)
	assert.Equal(t, 1, run.NotComparable)
	assert.Equal(t, 0, run.Failed)
	assert.NotZero(t, run.FinishedTs)

	records, err := st.ListComparisons(context.Background(), &store.FindComparison{RunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, records, 3)

	byFacility := map[string]*store.ComparisonRecord{}
	for _, r := range records {
		byFacility[r.FacilityID] = r
	}
	assert.Equal(t, "identical", byFacility["F1"].Verdict)
	assert.Empty(t, byFacility["F1"].DiffJSON)
	assert.Equal(t, "Mo-Fr 09:00-17:00", byFacility["F1"].EncodedOSM)
	assert.Contains(t, byFacility["F1"].Markdown, "Horaires")

	assert.Equal(t, "different", byFacility["F2"].Verdict)
	assert.Contains(t, byFacility["F2"].DiffJSON, "slot_added")

	assert.Equal(t, "not_comparable", byFacility["F3"].Verdict)
	assert.Empty(t, byFacility["F3"].ReferenceOSM)
}

func TestRunFailureIsolation(t *testing.T) {
	st := testStore(t)
	facilities := []Facility{
		{ID: "F1", URL: "https://example.org/f1", ReferenceHours: "Mo-Fr 09:00-17:00"},
		{ID: "F2", URL: "https://example.org/down", ReferenceHours: "Mo-Fr 09:00-17:00"},
	}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		"https://example.org/f1": okPage("https://example.org/f1"),
		"https://example.org/down": {
			URL:    "https://example.org/down",
			Status: fetch.StatusServerError,
			Code:   502,
		},
	}}
	extractor := &fakeExtractor{schedules: map[string]*schedule.Schedule{
		"F1": weekSchedule(schedule.Metadata{ID: "F1"}, "09:00", "17:00"),
	}}

	proc := New(fetcher, extractor, st, nil, Options{Workers: 1})
	run, err := proc.Run(context.Background(), facilities)
	require.NoError(t, err)

	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.Identical)
	assert.Equal(t, 1, run.Failed)

	records, err := st.ListComparisons(context.Background(), &store.FindComparison{RunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		if r.FacilityID == "F2" {
			assert.Equal(t, "server_error", r.FetchStatus)
			assert.Contains(t, r.Error, "fetch")
			assert.Empty(t, r.Verdict)
		}
	}
}

func TestRunExtractionFailure(t *testing.T) {
	st := testStore(t)
	facilities := []Facility{{ID: "F1", URL: "https://example.org/f1"}}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		"https://example.org/f1": okPage("https://example.org/f1"),
	}}
	extractor := &fakeExtractor{err: errors.New("model unavailable")}

	proc := New(fetcher, extractor, st, nil, Options{})
	run, err := proc.Run(context.Background(), facilities)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)

	records, err := st.ListComparisons(context.Background(), &store.FindComparison{RunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "extract")
	assert.Contains(t, records[0].Error, "model unavailable")
	// The converted page is kept even when extraction fails.
	assert.Contains(t, records[0].Markdown, "Horaires")
}

func TestRunFilter(t *testing.T) {
	st := testStore(t)
	facilities := []Facility{
		{ID: "F1", FacilityType: "mairie", URL: "https://example.org/f1"},
		{ID: "F2", FacilityType: "mediatheque", URL: "https://example.org/f2"},
	}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		"https://example.org/f1": okPage("https://example.org/f1"),
	}}
	extractor := &fakeExtractor{schedules: map[string]*schedule.Schedule{
		"F1": weekSchedule(schedule.Metadata{ID: "F1"}, "09:00", "17:00"),
	}}

	filter, err := NewFilter(`facility_type == "mairie"`)
	require.NoError(t, err)

	proc := New(fetcher, extractor, st, nil, Options{Filter: filter})
	run, err := proc.Run(context.Background(), facilities)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Total)
	records, err := st.ListComparisons(context.Background(), &store.FindComparison{RunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "F1", records[0].FacilityID)
	assert.Equal(t, 1, extractor.calls)
}

func TestRunPersistsRunRow(t *testing.T) {
	st := testStore(t)
	proc := New(&fakeFetcher{}, &fakeExtractor{}, st, nil, Options{})
	run, err := proc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Total)

	latest, err := st.GetLatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
	assert.NotZero(t, latest.FinishedTs)
}
