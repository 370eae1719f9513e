package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/datagora/openhours/internal/osm"
	"github.com/datagora/openhours/internal/schedule"
	"github.com/datagora/openhours/plugin/calendar"
	"github.com/datagora/openhours/plugin/fetch"
	"github.com/datagora/openhours/plugin/htmltext"
	"github.com/datagora/openhours/store"
)

// Fetcher retrieves a page.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Extractor turns page text into a schedule.
type Extractor interface {
	Extract(ctx context.Context, meta schedule.Metadata, pageText string) (*schedule.Schedule, error)
}

// Options configures a run.
type Options struct {
	Workers int
	Filter  *Filter
	// Keywords passed to section filtering; nil uses the defaults.
	Keywords []string
	// Holidays seed the public-holiday period with explicit dates.
	Holidays []calendar.Holiday
	Encode   osm.Options
}

// Processor executes runs.
type Processor struct {
	fetcher   Fetcher
	extractor Extractor
	store     *store.Store
	logger    *slog.Logger
	opts      Options
}

// New creates a Processor.
func New(fetcher Fetcher, extractor Extractor, st *store.Store, logger *slog.Logger, opts Options) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		logger:    logger,
		opts:      opts,
	}
}

// Run processes the facility list and returns the finished run row. A
// facility failure is recorded and counted, never propagated; only store
// bookkeeping failures and context cancellation abort the run.
func (p *Processor) Run(ctx context.Context, facilities []Facility) (*store.Run, error) {
	run := &store.Run{
		ID:        uuid.NewString(),
		StartedTs: time.Now().Unix(),
	}
	if _, err := p.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	logger := p.logger.With("run_id", run.ID)

	stats := &Stats{}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Workers)

	for _, facility := range facilities {
		matched, err := p.opts.Filter.Match(facility)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		facility := facility
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			record := p.process(groupCtx, logger, run.ID, facility, stats)
			if _, err := p.store.CreateComparison(groupCtx, record); err != nil {
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	snap := stats.Snapshot()
	finished := time.Now().Unix()
	if err := p.store.UpdateRun(ctx, &store.UpdateRun{
		ID:            run.ID,
		FinishedTs:    &finished,
		Total:         &snap.Total,
		Identical:     &snap.Identical,
		Different:     &snap.Different,
		NotComparable: &snap.NotComparable,
		Failed:        &snap.Failed,
	}); err != nil {
		return nil, err
	}

	run.FinishedTs = finished
	run.Total = snap.Total
	run.Identical = snap.Identical
	run.Different = snap.Different
	run.NotComparable = snap.NotComparable
	run.Failed = snap.Failed
	logger.Info("run finished",
		"total", snap.Total,
		"identical", snap.Identical,
		"different", snap.Different,
		"not_comparable", snap.NotComparable,
		"failed", snap.Failed)
	return run, nil
}

// process walks one facility through the pipeline. Every stage failure ends
// in a record carrying the error and whatever earlier stages produced.
func (p *Processor) process(ctx context.Context, logger *slog.Logger, runID string, facility Facility, stats *Stats) *store.ComparisonRecord {
	logger = logger.With("facility", facility.ID)
	record := &store.ComparisonRecord{
		UID:          shortuuid.New(),
		RunID:        runID,
		FacilityID:   facility.ID,
		Name:         facility.Name,
		FacilityType: facility.FacilityType,
		URL:          facility.URL,
		CreatedTs:    time.Now().Unix(),
	}
	fail := func(stage string, err error) *store.ComparisonRecord {
		logger.Warn("facility failed", "stage", stage, "error", err)
		record.Error = stage + ": " + err.Error()
		stats.RecordFailure()
		return record
	}

	res, err := p.fetcher.Get(ctx, facility.URL)
	if err != nil {
		return fail("fetch", err)
	}
	record.FetchStatus = string(res.Status)
	if res.Status != fetch.StatusOK {
		return fail("fetch", errors.Errorf("page not retrieved: %s", res.Status))
	}

	markdown, err := htmltext.Convert(res.Body)
	if err != nil {
		return fail("convert", err)
	}
	filtered := htmltext.Filter(markdown, p.opts.Keywords)
	record.Markdown = filtered.Text

	extracted, err := p.extractor.Extract(ctx, facility.Metadata(), filtered.Text)
	if err != nil {
		return fail("extract", err)
	}
	if extractedJSON, err := json.Marshal(extracted); err == nil {
		record.ExtractedJSON = string(extractedJSON)
	}

	calendar.SeedPublicHolidays(extracted, p.opts.Holidays)

	encoded, err := osm.Encode(extracted, p.opts.Encode)
	if err != nil {
		return fail("encode", err)
	}
	record.EncodedOSM = encoded.Text

	record.ReferenceOSM = facility.ReferenceHours
	if facility.ReferenceHours == "" {
		// Nothing on record to verify against.
		record.Verdict = string(schedule.StatusNotComparable)
		stats.RecordVerdict(schedule.StatusNotComparable)
		return record
	}
	decoded, err := osm.Decode(facility.ReferenceHours, facility.Metadata())
	if err != nil {
		return fail("decode reference", err)
	}

	result := schedule.Compare(extracted, decoded.Schedule)
	record.Verdict = string(result.Status)
	if len(result.Differences) > 0 {
		if diffJSON, err := json.Marshal(result.Differences); err == nil {
			record.DiffJSON = string(diffJSON)
		}
	}
	stats.RecordVerdict(result.Status)
	logger.Debug("facility compared", "verdict", record.Verdict)
	return record
}
