// Package report renders per-ROI activity charts from the result database.
package report

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/arenalab/ethotrack/internal/storage"
)

// maxPointsPerSeries bounds chart payload size; longer series are strided.
const maxPointsPerSeries = 4000

// WriteActivityReport renders an HTML line chart of the decoded displacement
// metric over time, one series per ROI, for the given run. An empty runID
// selects the latest run.
func WriteActivityReport(db *sql.DB, runID string, w io.Writer) error {
	if runID == "" {
		latest, err := storage.LatestRunID(db)
		if err != nil {
			return err
		}
		if latest == "" {
			return fmt.Errorf("report: no runs recorded")
		}
		runID = latest
	}

	indices, err := storage.ROIIndices(db, runID)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return fmt.Errorf("report: run %s has no rois", runID)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "ROI activity",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Activity per ROI",
			Subtitle: fmt.Sprintf("run=%s", runID),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "displacement (normalised)", Type: "log"}),
	)

	for _, idx := range indices {
		series, err := storage.ActivitySeries(db, runID, idx)
		if err != nil {
			return err
		}
		stride := 1
		if len(series) > maxPointsPerSeries {
			stride = len(series) / maxPointsPerSeries
		}
		data := make([]opts.LineData, 0, len(series)/stride+1)
		var xs []string
		for i := 0; i < len(series); i += stride {
			p := series[i]
			xs = append(xs, fmt.Sprintf("%.1f", float64(p.TimeMs)/1e3))
			data = append(data, opts.LineData{Value: p.Dist})
		}
		line.SetXAxis(xs)
		line.AddSeries(fmt.Sprintf("roi %d", idx), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	return line.Render(w)
}
