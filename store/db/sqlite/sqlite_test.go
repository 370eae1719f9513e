package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagora/openhours/internal/profile"
	"github.com/datagora/openhours/store"
)

func testDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "openhours_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func TestRunLifecycle(t *testing.T) {
	driver := testDriver(t)
	ctx := context.Background()

	started := time.Now().Unix()
	_, err := driver.CreateRun(ctx, &store.Run{ID: "run-1", StartedTs: started})
	require.NoError(t, err)
	_, err = driver.CreateRun(ctx, &store.Run{ID: "run-2", StartedTs: started + 10})
	require.NoError(t, err)

	finished := started + 60
	total, identical, failed := 10, 7, 1
	require.NoError(t, driver.UpdateRun(ctx, &store.UpdateRun{
		ID:         "run-2",
		FinishedTs: &finished,
		Total:      &total,
		Identical:  &identical,
		Failed:     &failed,
	}))

	runs, err := driver.ListRuns(ctx, &store.FindRun{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 10, runs[0].Total)
	assert.Equal(t, 7, runs[0].Identical)
	assert.Equal(t, finished, runs[0].FinishedTs)

	id := "run-1"
	runs, err = driver.ListRuns(ctx, &store.FindRun{ID: &id})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(0), runs[0].FinishedTs)
}

func TestComparisonLifecycle(t *testing.T) {
	driver := testDriver(t)
	ctx := context.Background()

	now := time.Now().Unix()
	records := []*store.ComparisonRecord{
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
			FetchStatus: "ok",
			Verdict:     "different",
			DiffJSON:    `[{"period":"default","day":"wednesday","kind":"slot_added"}]`,
			CreatedTs:   now + 1,
		},
		{
			UID: "c3", RunID: "run-2", FacilityID: "S1433",
			FetchStatus: "unreachable",
			Error:       "fetch: host unreachable",
			CreatedTs:   now + 2,
		},
	}
	for _, r := range records {
		_, err := driver.CreateComparison(ctx, r)
		require.NoError(t, err)
	}

	runID := "run-1"
	list, err := driver.ListComparisons(ctx, &store.FindComparison{RunID: &runID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].UID, "newest first")
	assert.Equal(t, "different", list[0].Verdict)
	assert.Contains(t, list[0].DiffJSON, "slot_added")

	verdict := "identical"
	list, err = driver.ListComparisons(ctx, &store.FindComparison{Verdict: &verdict})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S1433", list[0].FacilityID)

	facility := "S1433"
	list, err = driver.ListComparisons(ctx, &store.FindComparison{FacilityID: &facility})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, driver.DeleteComparisons(ctx, &store.DeleteComparison{RunID: &runID}))
	list, err = driver.ListComparisons(ctx, &store.FindComparison{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c3", list[0].UID)
}

func TestNewDBRequiresDSN(t *testing.T) {
	_, err := NewDB(&profile.Profile{})
	assert.Error(t, err)
	_, err = NewDB(nil)
	assert.Error(t, err)
}
