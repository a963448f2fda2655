package gait

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestAnalyze_SyntheticWalkOK(t *testing.T) {
	seq := SyntheticWalkSequence("walk-ok", DefaultSynthWalkParams())
	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)

	if res.Quality != QualityOK {
		t.Fatalf("quality = %s (%s), want %s", res.Quality, res.Reason, QualityOK)
	}
	if res.RunID == "" {
		t.Error("run ID not assigned")
	}
	if res.VideoID != "walk-ok" {
		t.Errorf("video ID = %q", res.VideoID)
	}
	if res.StepMode == StepModeNone {
		t.Error("no step mode selected on an OK run")
	}
	if len(res.Steps) < 5 {
		t.Errorf("step events = %d, want at least 5", len(res.Steps))
	}
	if len(res.SelectedStrides) != 2 {
		t.Fatalf("selected strides = %v, want exactly 2 indices", res.SelectedStrides)
	}
	if res.Features.ValidStrideCount != 2 {
		t.Errorf("measured stride count = %d, want 2", res.Features.ValidStrideCount)
	}
	if math.Abs(res.Features.CadenceSPM-66.7) > 5 {
		t.Errorf("CadenceSPM = %v, want near 66.7 for a 0.9 s step period", res.Features.CadenceSPM)
	}
	if res.DetectionRate != 1 {
		t.Errorf("detection rate = %v, want 1 on full-confidence input", res.DetectionRate)
	}
	// No scorer attached: every score stays at the sentinel.
	if !math.IsNaN(res.Scores.Reconstruction) {
		t.Errorf("reconstruction score = %v, want NaN without a scorer", res.Scores.Reconstruction)
	}
}

func TestAnalyze_TooShortIsUnprocessable(t *testing.T) {
	p := DefaultSynthWalkParams()
	p.Frames = 10
	seq := SyntheticWalkSequence("short", p)

	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)
	if res.Quality != QualityUnprocessable {
		t.Fatalf("quality = %s, want %s", res.Quality, QualityUnprocessable)
	}
	if !strings.Contains(res.Reason, "too short") {
		t.Errorf("reason = %q, want a frame-count explanation", res.Reason)
	}
	if res.Features.ValidStrideCount != 0 {
		t.Error("unprocessable run must carry the empty feature set")
	}
}

func TestAnalyze_LowConfidenceIsLowDetection(t *testing.T) {
	p := DefaultSynthWalkParams()
	p.Confidence = 0.1 // below the landmark confidence gate on every frame
	seq := SyntheticWalkSequence("occluded", p)

	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)
	if res.Quality != QualityLowDetection {
		t.Fatalf("quality = %s (%s), want %s", res.Quality, res.Reason, QualityLowDetection)
	}
	if res.ValidFrames != 0 {
		t.Errorf("valid frames = %d, want 0", res.ValidFrames)
	}
}

func TestAnalyze_StillSubjectHasNoCycles(t *testing.T) {
	seq := SyntheticStillSequence("still", 150, 30)
	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)
	if res.Quality != QualityNoCycles {
		t.Fatalf("quality = %s (%s), want %s", res.Quality, res.Reason, QualityNoCycles)
	}
	if res.Features.ValidStrideCount != 0 {
		t.Error("no-cycle run must carry the empty feature set")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	seq := SyntheticWalkSequence("repeat", DefaultSynthWalkParams())
	an := NewAnalyzer(DefaultAnalysisParams())

	a := an.Analyze(seq)
	b := an.Analyze(seq)

	diff := cmp.Diff(a, b,
		cmpopts.IgnoreFields(AnalysisResult{}, "RunID"),
		cmpopts.EquateNaNs(),
	)
	if diff != "" {
		t.Errorf("repeated analysis differs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_RightToLeftIsMirrored(t *testing.T) {
	seq := SyntheticWalkSequence("rtl", DefaultSynthWalkParams())
	seq.Direction = DirectionRightToLeft

	res := NewAnalyzer(DefaultAnalysisParams()).Analyze(seq)
	if res.Quality != QualityOK {
		t.Fatalf("quality = %s (%s), want %s", res.Quality, res.Reason, QualityOK)
	}
	if res.Direction != DirectionLeftToRight {
		t.Errorf("direction = %s, want normalized %s", res.Direction, DirectionLeftToRight)
	}
	if !res.Flipped {
		t.Error("mirrored analysis must report Flipped")
	}
	// The caller's sequence is untouched.
	if seq.Direction != DirectionRightToLeft || seq.Flipped {
		t.Error("Analyze mutated the input sequence")
	}
}

func TestCompareRuns(t *testing.T) {
	ok := &AnalysisResult{Quality: QualityOK, DetectionRate: 0.7,
		Strides: []Stride{{Valid: true}, {Valid: true}}}
	degraded := &AnalysisResult{Quality: QualityNoCycles, DetectionRate: 0.99}

	if got := CompareRuns(degraded, ok); got != ok {
		t.Error("an OK run must beat a degraded run regardless of detection rate")
	}
	if got := CompareRuns(ok, nil); got != ok {
		t.Error("nil loses to any run")
	}

	moreStrides := &AnalysisResult{Quality: QualityOK, DetectionRate: 0.6,
		Strides: []Stride{{Valid: true}, {Valid: true}, {Valid: true}}}
	if got := CompareRuns(ok, moreStrides); got != moreStrides {
		t.Error("among OK runs, more valid strides win")
	}

	denser := &AnalysisResult{Quality: QualityOK, DetectionRate: 0.9,
		Strides: []Stride{{Valid: true}, {Valid: true}}}
	if got := CompareRuns(ok, denser); got != denser {
		t.Error("with equal stride counts, the higher detection rate wins")
	}
}
