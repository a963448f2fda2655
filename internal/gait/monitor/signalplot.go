package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gaitlab/stride.report/internal/gait"
)

// SignalPlotter renders diagnostic PNG plots for one analysis run: the
// candidate step signals with detected events, the per-leg knee angles, and
// the trunk lean. Plots land in a per-run output directory.
type SignalPlotter struct {
	outputDir string
}

// NewSignalPlotter creates a plotter writing into outputDir, creating the
// directory if needed.
func NewSignalPlotter(outputDir string) (*SignalPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &SignalPlotter{outputDir: outputDir}, nil
}

// GeneratePlots writes the diagnostic plots for a finished analysis. The
// signals are recomputed from the sequence with the same parameters the
// analyzer used, so the plots show exactly what detection saw.
func (sp *SignalPlotter) GeneratePlots(seq *gait.PoseSequence, res *gait.AnalysisResult, params gait.AnalysisParams) error {
	if seq.Direction == gait.DirectionRightToLeft {
		seq = seq.Mirrored()
	}
	sig := gait.BuildSignals(seq, params.Signal)

	if res.Detection != nil {
		if err := sp.plotCandidates(res.Detection); err != nil {
			return err
		}
	}
	if err := sp.plotKneeAngles(sig); err != nil {
		return err
	}
	return sp.plotTrunkLean(sig)
}

// plotCandidates draws each candidate step signal on its own plot with the
// picked peaks marked, plus the selected mode in the file name.
func (sp *SignalPlotter) plotCandidates(det *gait.StepDetection) error {
	for _, cand := range det.Candidates {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Step Candidate %s (score %.2f)", cand.Mode, cand.Score)
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = "Signal"

		line, err := plotter.NewLine(finitePoints(cand.Signal))
		if err != nil {
			return err
		}
		line.Width = vg.Points(1)
		line.Color = color.RGBA{R: 70, G: 110, B: 200, A: 255}
		p.Add(line)
		p.Legend.Add(string(cand.Mode), line)

		peaks := make(plotter.XYs, 0, len(cand.PeakFrames))
		for _, f := range cand.PeakFrames {
			if f >= 0 && f < len(cand.Signal) && !math.IsNaN(cand.Signal[f]) {
				peaks = append(peaks, plotter.XY{X: float64(f), Y: cand.Signal[f]})
			}
		}
		if len(peaks) > 0 {
			scatter, err := plotter.NewScatter(peaks)
			if err != nil {
				return err
			}
			scatter.GlyphStyle.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
			scatter.GlyphStyle.Radius = vg.Points(3)
			p.Add(scatter)
			p.Legend.Add("peaks", scatter)
		}

		p.Legend.Top = true
		p.Legend.Left = false

		suffix := ""
		if cand.Mode == det.Mode {
			suffix = "_selected"
		}
		file := filepath.Join(sp.outputDir, fmt.Sprintf("candidate_%s%s.png", cand.Mode, suffix))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return fmt.Errorf("save candidate plot: %w", err)
		}
	}
	return nil
}

// plotKneeAngles draws both knee angle traces on one plot.
func (sp *SignalPlotter) plotKneeAngles(sig *gait.Signals) error {
	p := plot.New()
	p.Title.Text = "Knee Angles"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (deg)"

	left, err := plotter.NewLine(finitePoints(sig.KneeAngleLeft))
	if err != nil {
		return err
	}
	left.Width = vg.Points(1)
	left.Color = color.RGBA{R: 70, G: 110, B: 200, A: 255}
	p.Add(left)
	p.Legend.Add("left", left)

	right, err := plotter.NewLine(finitePoints(sig.KneeAngleRight))
	if err != nil {
		return err
	}
	right.Width = vg.Points(1)
	right.Color = color.RGBA{R: 200, G: 120, B: 40, A: 255}
	p.Add(right)
	p.Legend.Add("right", right)

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(sp.outputDir, "knee_angles.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save knee angle plot: %w", err)
	}
	return nil
}

// plotTrunkLean draws the trunk lean trace.
func (sp *SignalPlotter) plotTrunkLean(sig *gait.Signals) error {
	p := plot.New()
	p.Title.Text = "Trunk Lean"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Lean (deg)"

	line, err := plotter.NewLine(finitePoints(sig.TrunkLean))
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 60, G: 150, B: 90, A: 255}
	p.Add(line)

	file := filepath.Join(sp.outputDir, "trunk_lean.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save trunk lean plot: %w", err)
	}
	return nil
}

// finitePoints converts a sampled series into XY pairs, skipping sentinel
// gaps so lines break cleanly rather than dropping to zero.
func finitePoints(series []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: v})
	}
	return pts
}
