package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/datagora/openhours/internal/report"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db"
)

var (
	reportRunID  string
	reportOutDir string

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Regenerate the HTML report from stored results",
		Long:  "Report writes report.html and chart.html for a stored run (the latest by default) without re-running the pipeline.",
		RunE:  runReport,
	}
)

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run id to report on (default: latest)")
	reportCmd.Flags().StringVar(&reportOutDir, "out", ".", "output directory")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
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

	var run *store.Run
	if reportRunID != "" {
		runs, err := st.ListRuns(ctx, &store.FindRun{ID: &reportRunID})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return errors.Errorf("run %s not found", reportRunID)
		}
		run = runs[0]
	} else {
		if run, err = st.GetLatestRun(ctx); err != nil {
			return err
		}
		if run == nil {
			return errors.New("no stored runs")
		}
	}

	records, err := st.ListComparisons(ctx, &store.FindComparison{RunID: &run.ID})
	if err != nil {
		return err
	}

	reportPath := filepath.Join(reportOutDir, "report.html")
	f, err := os.Create(reportPath)
	if err != nil {
		return errors.Wrap(err, "failed to create report file")
	}
	defer f.Close()
	if err := report.WriteSummary(f, run, records); err != nil {
		return err
	}

	chartPath := filepath.Join(reportOutDir, "chart.html")
	cf, err := os.Create(chartPath)
	if err != nil {
		return errors.Wrap(err, "failed to create chart file")
	}
	defer cf.Close()
	if err := report.WriteChart(cf, run); err != nil {
		return err
	}

	cmd.Printf("wrote %s and %s for run %s\n", reportPath, chartPath, run.ID)
	return nil
}
