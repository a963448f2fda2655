package gait

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gaitlab/stride.report/internal/monitoring"
)

// Analyzer runs one batch extraction pass over a complete pose sequence. It
// is a per-analysis context: create one per video, discard it afterward, and
// never share it across concurrent analyses. The core is single-threaded and
// deterministic; data-quality shortfalls surface as the quality flag, never
// as errors.
type Analyzer struct {
	Params AnalysisParams
	Scorer *Scorer // optional; nil leaves every score at the sentinel
}

// NewAnalyzer creates an analyzer with the given parameters.
func NewAnalyzer(params AnalysisParams) *Analyzer {
	return &Analyzer{Params: params}
}

// Analyze extracts gait features and scores from a pose sequence. The input
// sequence is treated as immutable; direction normalization works on a
// mirrored copy.
func (a *Analyzer) Analyze(seq *PoseSequence) *AnalysisResult {
	res := &AnalysisResult{
		RunID:     uuid.New().String(),
		VideoID:   seq.VideoID,
		Direction: seq.Direction,
		Flipped:   seq.Flipped,
		FPS:       seq.FPS,
		Features:  EmptyGaitFeatures(),
		Scores:    EmptyScoringResult(),
		StepMode:  StepModeNone,
	}
	if seq.FPS > 0 {
		res.DurationSecs = float64(seq.FrameCount) / seq.FPS
	}
	res.TotalFrames = seq.FrameCount

	if seq.FrameCount < a.Params.MinFrames {
		res.Quality = QualityUnprocessable
		res.Reason = fmt.Sprintf("sequence too short: %d frames (min %d)", seq.FrameCount, a.Params.MinFrames)
		return res
	}

	// Normalize direction so left/right semantics are stable downstream.
	if seq.Direction == DirectionRightToLeft {
		seq = seq.Mirrored()
		res.Direction = seq.Direction
		res.Flipped = seq.Flipped
	}

	sig := BuildSignals(seq, a.Params.Signal)
	res.ValidFrames = sig.ValidFrames()
	if res.TotalFrames > 0 {
		res.DetectionRate = float64(res.ValidFrames) / float64(res.TotalFrames)
	}
	if res.DetectionRate < a.Params.MinDetectionRate {
		res.Quality = QualityLowDetection
		res.Reason = fmt.Sprintf("detection rate %.2f below minimum %.2f", res.DetectionRate, a.Params.MinDetectionRate)
		return res
	}

	det := DetectSteps(sig, a.Params.Step)
	res.Detection = &det
	res.StepMode = det.Mode
	res.Steps = det.Events
	if len(det.Events) < a.Params.MinStepEvents {
		res.Quality = QualityNoCycles
		res.Reason = fmt.Sprintf("too few step events: %d (min %d)", len(det.Events), a.Params.MinStepEvents)
		return res
	}
	monitoring.Logf("gait: video %s selected step mode %s with %d events", seq.VideoID, det.Mode, len(det.Events))

	strides := SegmentStrides(det.Events, sig, a.Params.Stride)
	strides = ValidateStrides(strides, sig, a.Params.Stride)
	res.Strides = strides

	first, second, ok := SelectCycles(strides)
	if !ok {
		res.Quality = QualityNoCycles
		res.Reason = fmt.Sprintf("too few valid strides: %d of %d", res.ValidStrideCount(), len(strides))
		return res
	}
	res.SelectedStrides = []int{first, second}

	res.Features = ComputeFeatures(sig, strides, first, second)
	res.Quality = QualityOK

	if a.Scorer != nil {
		res.Scores = a.Scorer.Score(res.Features)
	}
	return res
}

// CompareRuns picks the better of two extraction passes over the same video,
// typically the initial full-frame pass and the ROI-assisted retry. OK beats
// any degraded flag; among equals, more valid strides win, then the higher
// detection rate.
func CompareRuns(a, b *AnalysisResult) *AnalysisResult {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	aOK, bOK := a.Quality == QualityOK, b.Quality == QualityOK
	switch {
	case aOK && !bOK:
		return a
	case bOK && !aOK:
		return b
	}
	if av, bv := a.ValidStrideCount(), b.ValidStrideCount(); av != bv {
		if av > bv {
			return a
		}
		return b
	}
	if b.DetectionRate > a.DetectionRate {
		return b
	}
	return a
}
