package gait

import (
	"math"
	"testing"
)

// testROIParams uses small thresholds so every transition fires within a
// handful of frames.
func testROIParams() ROIParams {
	return ROIParams{
		CenterAlpha:          0.5,
		ExpandRate:           0.5,
		ShrinkRate:           0.1,
		MarginFactor:         1.2,
		ExpandMarginFactor:   1.6,
		AcquireStableFrames:  3,
		MaxConsecFailures:    2,
		MinTrackDwellFrames:  4,
		WindowSize:           8,
		FailureRateThreshold: 0.4,
		FarLegConfThreshold:  0.5,
		FarLegDegradedFrac:   0.5,
		ExpandBurstFrames:    4,
		ReacquireBurstFrames: 4,
		RecoveryWindow:       3,
		RecoveryMinGood:      3,
	}
}

func goodObs() ROIObservation {
	return ROIObservation{
		Detected:         true,
		BoxMin:           Point{X: 0.3, Y: 0.2},
		BoxMax:           Point{X: 0.7, Y: 0.9},
		FarLegConfidence: 0.9,
	}
}

func missObs() ROIObservation {
	return ROIObservation{Detected: false, FarLegConfidence: math.NaN()}
}

// trackingState drives a fresh controller into TRACK.
func trackingState(t *testing.T, p ROIParams) ROIState {
	t.Helper()
	s := NewROIState()
	for i := 0; i < p.AcquireStableFrames; i++ {
		s, _ = p.Step(s, goodObs())
	}
	if s.Phase != ROITrack {
		t.Fatalf("phase after %d stable detections = %s, want %s",
			p.AcquireStableFrames, s.Phase, ROITrack)
	}
	return s
}

func TestROI_AcquireToTrack(t *testing.T) {
	p := testROIParams()
	s := NewROIState()

	var act ROIAction
	for i := 0; i < p.AcquireStableFrames-1; i++ {
		s, act = p.Step(s, goodObs())
		if s.Phase != ROIAcquire {
			t.Fatalf("left acquire after %d detections", i+1)
		}
		if !act.UseFullFrame {
			t.Error("acquire phase must request full frames")
		}
	}

	s, act = p.Step(s, goodObs())
	if s.Phase != ROITrack {
		t.Fatalf("phase = %s, want %s after the stability threshold", s.Phase, ROITrack)
	}
	if act.UseFullFrame {
		t.Error("track phase should hand out a crop")
	}
	// The crop covers the detected box with margin and stays in bounds.
	c := act.Crop
	if c.X0 > 0.3 || c.X1 < 0.7 || c.Y0 > 0.2 || c.Y1 < 0.9 {
		t.Errorf("track crop %+v does not cover the subject box", c)
	}
	for _, v := range []float64{c.X0, c.Y0, c.X1, c.Y1} {
		if v < 0 || v > 1 {
			t.Errorf("crop coordinate %v out of the normalized frame", v)
		}
	}
}

func TestROI_AcquireResetsOnMiss(t *testing.T) {
	p := testROIParams()
	s := NewROIState()
	s, _ = p.Step(s, goodObs())
	s, _ = p.Step(s, goodObs())
	s, _ = p.Step(s, missObs())
	if s.StableRun != 0 {
		t.Errorf("stable run after a miss = %d, want 0", s.StableRun)
	}
	s, _ = p.Step(s, goodObs())
	s, _ = p.Step(s, goodObs())
	if s.Phase != ROIAcquire {
		t.Errorf("phase = %s, want %s until a fresh stable run completes", s.Phase, ROIAcquire)
	}
}

func TestROI_TrackToReacquireOnConsecutiveFailures(t *testing.T) {
	p := testROIParams()
	s := trackingState(t, p)

	var act ROIAction
	for i := 0; i < p.MaxConsecFailures; i++ {
		s, act = p.Step(s, missObs())
	}
	if s.Phase != ROIReacquire {
		t.Fatalf("phase = %s, want %s after %d consecutive misses",
			s.Phase, ROIReacquire, p.MaxConsecFailures)
	}
	if !act.UseFullFrame {
		t.Error("reacquire phase must request full frames")
	}
}

func TestROI_TrackToExpandOnFarLegDegradation(t *testing.T) {
	p := testROIParams()
	s := trackingState(t, p)

	weak := goodObs()
	weak.FarLegConfidence = 0.2

	var act ROIAction
	for i := 0; i < 6 && s.Phase == ROITrack; i++ {
		s, act = p.Step(s, weak)
	}
	if s.Phase != ROIExpand {
		t.Fatalf("phase = %s, want %s once the far leg degrades", s.Phase, ROIExpand)
	}
	if act.UseFullFrame {
		t.Error("expand phase should hand out an enlarged crop, not full frames")
	}

	// The expanded crop is at least as wide as the tracking crop.
	track := p.cropFor(s, p.MarginFactor)
	if (act.Crop.X1 - act.Crop.X0) < (track.X1 - track.X0) {
		t.Errorf("expand crop %+v narrower than track crop %+v", act.Crop, track)
	}
}

func TestROI_ExpandRecoversToTrack(t *testing.T) {
	p := testROIParams()
	s := trackingState(t, p)

	weak := goodObs()
	weak.FarLegConfidence = 0.2
	for i := 0; i < 6 && s.Phase == ROITrack; i++ {
		s, _ = p.Step(s, weak)
	}
	if s.Phase != ROIExpand {
		t.Fatalf("setup failed: phase = %s", s.Phase)
	}

	for i := 0; i < p.RecoveryWindow; i++ {
		s, _ = p.Step(s, goodObs())
	}
	if s.Phase != ROITrack {
		t.Errorf("phase = %s, want %s after %d clean frames",
			s.Phase, ROITrack, p.RecoveryWindow)
	}
}

func TestROI_ExpandBurstExhaustsToReacquire(t *testing.T) {
	p := testROIParams()
	s := trackingState(t, p)

	weak := goodObs()
	weak.FarLegConfidence = 0.2
	for i := 0; i < 6 && s.Phase == ROITrack; i++ {
		s, _ = p.Step(s, weak)
	}
	if s.Phase != ROIExpand {
		t.Fatalf("setup failed: phase = %s", s.Phase)
	}

	for i := 0; i < p.ExpandBurstFrames; i++ {
		s, _ = p.Step(s, missObs())
	}
	if s.Phase != ROIReacquire {
		t.Errorf("phase = %s, want %s after the expand burst", s.Phase, ROIReacquire)
	}
}

func TestROI_ReacquireReturnsToTrack(t *testing.T) {
	p := testROIParams()
	s := trackingState(t, p)
	for i := 0; i < p.MaxConsecFailures; i++ {
		s, _ = p.Step(s, missObs())
	}
	if s.Phase != ROIReacquire {
		t.Fatalf("setup failed: phase = %s", s.Phase)
	}

	var act ROIAction
	for i := 0; i < p.ReacquireBurstFrames; i++ {
		s, act = p.Step(s, goodObs())
		if i < p.ReacquireBurstFrames-1 && !act.UseFullFrame {
			t.Error("reacquire burst must keep requesting full frames")
		}
	}
	if s.Phase != ROITrack {
		t.Errorf("phase = %s, want %s after a clean reacquire burst", s.Phase, ROITrack)
	}
}

func TestROI_StepDoesNotMutateInput(t *testing.T) {
	p := testROIParams()
	s := NewROIState()
	before := s
	p.Step(s, goodObs())
	if s.Phase != before.Phase || s.StableRun != before.StableRun || s.FramesInPhase != before.FramesInPhase {
		t.Error("Step mutated its input state")
	}
}

func TestCrop_MapToFullFrame(t *testing.T) {
	c := Crop{X0: 0.2, Y0: 0.4, X1: 0.6, Y1: 0.8}
	cases := []struct {
		in, want Point
	}{
		{Point{X: 0, Y: 0}, Point{X: 0.2, Y: 0.4}},
		{Point{X: 1, Y: 1}, Point{X: 0.6, Y: 0.8}},
		{Point{X: 0.5, Y: 0.5}, Point{X: 0.4, Y: 0.6}},
	}
	for _, tc := range cases {
		got := c.MapToFullFrame(tc.in)
		if math.Abs(got.X-tc.want.X) > 1e-12 || math.Abs(got.Y-tc.want.Y) > 1e-12 {
			t.Errorf("MapToFullFrame(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestROI_CropClampsToFrame(t *testing.T) {
	p := testROIParams()
	s := NewROIState()
	edge := ROIObservation{
		Detected:         true,
		BoxMin:           Point{X: 0.0, Y: 0.0},
		BoxMax:           Point{X: 0.9, Y: 1.0},
		FarLegConfidence: 0.9,
	}
	var act ROIAction
	for i := 0; i < p.AcquireStableFrames; i++ {
		s, act = p.Step(s, edge)
	}
	if s.Phase != ROITrack {
		t.Fatalf("phase = %s, want %s", s.Phase, ROITrack)
	}
	c := act.Crop
	if c.X0 < 0 || c.Y0 < 0 || c.X1 > 1 || c.Y1 > 1 {
		t.Errorf("crop %+v escapes the normalized frame", c)
	}
}

func TestObservationFromFrame(t *testing.T) {
	f := &PoseFrame{Detected: true}
	for _, lm := range CoreLandmarks {
		f.Landmarks[lm] = Point{X: 0.5, Y: 0.5}
		f.Confidence[lm] = 0.9
	}
	f.Landmarks[LeftAnkle] = Point{X: 0.2, Y: 0.95}
	f.Landmarks[RightHip] = Point{X: 0.8, Y: 0.4}
	f.Confidence[RightKnee] = 0.3

	obs := ObservationFromFrame(f)
	if !obs.Detected {
		t.Fatal("expected a detected observation")
	}
	if obs.BoxMin.X != 0.2 || obs.BoxMax.X != 0.8 {
		t.Errorf("box x = [%v, %v], want [0.2, 0.8]", obs.BoxMin.X, obs.BoxMax.X)
	}
	if obs.BoxMin.Y != 0.4 || obs.BoxMax.Y != 0.95 {
		t.Errorf("box y = [%v, %v], want [0.4, 0.95]", obs.BoxMin.Y, obs.BoxMax.Y)
	}
	if obs.FarLegConfidence != 0.3 {
		t.Errorf("far-leg confidence = %v, want the weakest leg landmark 0.3", obs.FarLegConfidence)
	}

	undetected := ObservationFromFrame(&PoseFrame{Detected: false})
	if undetected.Detected || !math.IsNaN(undetected.FarLegConfidence) {
		t.Error("undetected frames must carry a NaN far-leg confidence")
	}
}
