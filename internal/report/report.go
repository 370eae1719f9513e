// Package report renders run results: an HTML summary page, a verdict
// chart and an Atom feed of facilities whose published hours diverge.
package report

import (
	_ "embed"
	"html/template"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/datagora/openhours/store"
)

//go:embed template.html
var pageTemplate string

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"ts": func(ts int64) string {
		if ts == 0 {
			return "-"
		}
		return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04 MST")
	},
}).Parse(pageTemplate))

// PageData feeds the summary template.
type PageData struct {
	Run     *store.Run
	Records []*store.ComparisonRecord
}

// WriteSummary renders the HTML summary of one run.
func WriteSummary(w io.Writer, run *store.Run, records []*store.ComparisonRecord) error {
	if run == nil {
		return errors.New("no run to report on")
	}
	return errors.Wrap(page.Execute(w, PageData{Run: run, Records: records}), "failed to render report")
}

// VerdictChart builds a pie chart of the run's verdict counts.
func VerdictChart(run *store.Run) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Opening hours verification",
			Width:     "700px",
			Height:    "450px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Run " + run.ID,
			Subtitle: "verdicts per facility",
		}),
	)
	pie.AddSeries("verdicts", []opts.PieData{
		{Name: "identical", Value: run.Identical},
		{Name: "different", Value: run.Different},
		{Name: "not comparable", Value: run.NotComparable},
		{Name: "failed", Value: run.Failed},
	}, charts.WithLabelOpts(opts.Label{
		Show:      opts.Bool(true),
		Formatter: "{b}: {c}",
	}))
	return pie
}

// WriteChart renders the verdict chart as a standalone HTML page.
func WriteChart(w io.Writer, run *store.Run) error {
	if run == nil {
		return errors.New("no run to chart")
	}
	return errors.Wrap(VerdictChart(run).Render(w), "failed to render chart")
}
