package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gaitlab/stride.report/internal/gait"
	storage "github.com/gaitlab/stride.report/internal/gait/storage/sqlite"
)

// RenderCandidateChart writes an HTML line chart of the three candidate step
// signals with the selected mode highlighted. This is a debugging view for
// inspecting why a particular mode won the reliability vote.
func RenderCandidateChart(w io.Writer, det *gait.StepDetection) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Step Candidates", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Candidate Step Signals", Subtitle: fmt.Sprintf("selected mode=%s", det.Mode)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	frames := 0
	for _, cand := range det.Candidates {
		if len(cand.Signal) > frames {
			frames = len(cand.Signal)
		}
	}
	xAxis := make([]string, frames)
	for i := range xAxis {
		xAxis[i] = fmt.Sprintf("%d", i)
	}
	line.SetXAxis(xAxis)

	for _, cand := range det.Candidates {
		data := make([]opts.LineData, len(cand.Signal))
		for i, v := range cand.Signal {
			if math.IsNaN(v) {
				data[i] = opts.LineData{Value: nil}
			} else {
				data[i] = opts.LineData{Value: v}
			}
		}
		name := string(cand.Mode)
		if cand.Mode == det.Mode {
			name += " (selected)"
		}
		line.AddSeries(name, data)
	}

	return line.Render(w)
}

// RenderScoreChart writes an HTML bar chart of the health scores of recent
// runs, newest on the right.
func RenderScoreChart(w io.Writer, runs []*storage.AnalysisRun) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gait Scores", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Health Scores by Run", Subtitle: fmt.Sprintf("runs=%d", len(runs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "Score"}),
	)

	// Oldest first so time reads left to right.
	labels := make([]string, 0, len(runs))
	recon := make([]opts.BarData, 0, len(runs))
	linear := make([]opts.BarData, 0, len(runs))
	projection := make([]opts.BarData, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		labels = append(labels, fmt.Sprintf("%s %s", r.VideoID, time.Unix(0, r.CreatedAt).Format("01-02 15:04")))

		var scores gait.ScoringResult
		if len(r.ScoresJSON) > 0 {
			if err := json.Unmarshal(r.ScoresJSON, &scores); err != nil {
				return fmt.Errorf("decode scores for run %s: %w", r.RunID, err)
			}
		}
		recon = append(recon, barValue(scores.Reconstruction))
		linear = append(linear, barValue(scores.Linear))
		projection = append(projection, barValue(scores.Projection))
	}

	bar.SetXAxis(labels)
	bar.AddSeries("reconstruction", recon)
	bar.AddSeries("linear", linear)
	bar.AddSeries("projection", projection)

	return bar.Render(w)
}

func barValue(v float64) opts.BarData {
	if math.IsNaN(v) {
		return opts.BarData{Value: nil}
	}
	return opts.BarData{Value: v}
}
