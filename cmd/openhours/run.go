package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/datagora/openhours/internal/osm"
	"github.com/datagora/openhours/internal/pipeline"
	"github.com/datagora/openhours/internal/report"
	"github.com/datagora/openhours/plugin/ai"
	"github.com/datagora/openhours/plugin/calendar"
	"github.com/datagora/openhours/plugin/fetch"
	"github.com/datagora/openhours/plugin/mail"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db"
)

var (
	runFacilitiesPath string
	runFilterExpr     string
	runExplicitClosed bool
	runHolidayZone    string
	runVacationZone   string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Verify a facility list and store the results",
		Long: `Run fetches every facility page, extracts its opening hours with the
configured LLM, encodes them to opening_hours syntax and compares the
result against the reference string of the dataset. Verdicts are stored
and summarized; with mail enabled the summary is also sent by SMTP.`,
		RunE: executeRun,
	}
)

func init() {
	runCmd.Flags().StringVar(&runFacilitiesPath, "facilities", "", "path to the facility list, JSON or CSV (required)")
	runCmd.Flags().StringVar(&runFilterExpr, "filter", "", `CEL facility filter, e.g. 'facility_type == "mairie"'`)
	runCmd.Flags().BoolVar(&runExplicitClosed, "explicit-closed", false, "emit off rules for days known to be closed")
	runCmd.Flags().StringVar(&runHolidayZone, "holiday-zone", calendar.DefaultZone, "public holiday zone")
	runCmd.Flags().StringVar(&runVacationZone, "vacation-zone", "Zone A", "school vacation zone (Zone A, Zone B or Zone C)")
	_ = runCmd.MarkFlagRequired("facilities")
	rootCmd.AddCommand(runCmd)
}

func executeRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	facilities, err := pipeline.LoadFacilities(runFacilitiesPath)
	if err != nil {
		return err
	}

	filterExpr := runFilterExpr
	if filterExpr == "" {
		filterExpr = instanceProfile.Filter
	}
	filter, err := pipeline.NewFilter(filterExpr)
	if err != nil {
		return err
	}

	client := calendar.New(calendar.Options{
		HolidaysBaseURL:  instanceProfile.HolidaysBaseURL,
		VacationsBaseURL: instanceProfile.VacationsBaseURL,
	})
	holidays := fetchHolidays(ctx, client)

	extractor, err := ai.New(&ai.Config{
		BaseURL:         instanceProfile.LLMBaseURL,
		APIKey:          instanceProfile.LLMAPIKey,
		Model:           instanceProfile.LLMModel,
		MaxRetries:      instanceProfile.LLMMaxRetries,
		Timeout:         instanceProfile.LLMTimeout,
		CalendarContext: fetchVacationContext(ctx, client),
	})
	if err != nil {
		return err
	}

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return err
	}
	defer driver.Close()
	if err := driver.Migrate(ctx); err != nil {
		return err
	}
	st := store.New(driver, instanceProfile)

	fetcher := fetch.New(fetch.Options{
		UserAgent:  instanceProfile.FetchUserAgent,
		PerHostRPS: instanceProfile.FetchRPS,
	})

	processor := pipeline.New(fetcher, extractor, st, slog.Default(), pipeline.Options{
		Workers:  instanceProfile.Workers,
		Filter:   filter,
		Holidays: holidays,
		Encode:   osm.Options{ExplicitClosedDays: runExplicitClosed},
	})
	run, err := processor.Run(ctx, facilities)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"run %s: %d facilities, %d identical, %d different, %d not comparable, %d failed\n",
		run.ID, run.Total, run.Identical, run.Different, run.NotComparable, run.Failed)

	if instanceProfile.MailEnabled {
		if err := mailReport(ctx, st, run); err != nil {
			slog.Warn("report mail not sent", "error", err)
		}
	}
	return nil
}

// fetchHolidays pulls the public holidays around the current year. The
// pipeline degrades gracefully without them, so failures only warn.
func fetchHolidays(ctx context.Context, client *calendar.Client) []calendar.Holiday {
	year := time.Now().Year()
	var holidays []calendar.Holiday
	for _, y := range []int{year, year + 1} {
		hs, err := client.PublicHolidays(ctx, runHolidayZone, y)
		if err != nil {
			slog.Warn("public holidays unavailable", "year", y, "error", err)
			continue
		}
		holidays = append(holidays, hs...)
	}
	return holidays
}

// fetchVacationContext pulls the current school year's vacation spans for
// the prompt. Like the holidays, a failure only costs context.
func fetchVacationContext(ctx context.Context, client *calendar.Client) string {
	vacations, err := client.SchoolVacations(ctx, runVacationZone, currentSchoolYear(time.Now()))
	if err != nil {
		slog.Warn("school vacations unavailable", "zone", runVacationZone, "error", err)
		return ""
	}
	return calendar.SpanSummary(vacations)
}

// currentSchoolYear maps a date to the French school year label, which rolls
// over in August.
func currentSchoolYear(now time.Time) string {
	year := now.Year()
	if now.Month() < time.August {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

func mailReport(ctx context.Context, st *store.Store, run *store.Run) error {
	mailer, err := mail.New(mail.Config{
		Host:     instanceProfile.MailHost,
		Port:     instanceProfile.MailPort,
		Username: instanceProfile.MailUser,
		Password: instanceProfile.MailPass,
		From:     instanceProfile.MailFrom,
		To:       instanceProfile.MailRecipients(),
	})
	if err != nil {
		return err
	}
	records, err := st.ListComparisons(ctx, &store.FindComparison{RunID: &run.ID})
	if err != nil {
		return err
	}
	var html bytes.Buffer
	if err := report.WriteSummary(&html, run, records); err != nil {
		return err
	}
	subject := fmt.Sprintf("openhours run: %d/%d facilities diverge", run.Different, run.Total)
	text := fmt.Sprintf(
		"Run %s finished: %d facilities, %d identical, %d different, %d not comparable, %d failed.",
		run.ID, run.Total, run.Identical, run.Different, run.NotComparable, run.Failed)
	return mailer.SendReport(subject, text, html.String())
}
