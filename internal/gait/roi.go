package gait

import (
	"math"
)

// ROIPhase is the controller state of the adaptive region-of-interest
// tracker.
type ROIPhase string

const (
	ROIAcquire   ROIPhase = "acquire"   // full frames until detection stabilizes
	ROITrack     ROIPhase = "track"     // cropped to the smoothed region
	ROIExpand    ROIPhase = "expand"    // enlarged margin while confidence degrades
	ROIReacquire ROIPhase = "reacquire" // full frames after sustained failure
)

// ROIObservation is the per-frame input to the controller: whether the pose
// detector succeeded, the bounding box of the core landmarks in full-frame
// normalized coordinates, and the weakest far-leg landmark confidence.
type ROIObservation struct {
	Detected bool
	BoxMin   Point
	BoxMax   Point
	// FarLegConfidence is the lower of the two legs' minimum core-landmark
	// confidence; NaN when not detected.
	FarLegConfidence float64
}

// Crop is a normalized full-frame rectangle handed to the pose detector.
type Crop struct {
	X0, Y0, X1, Y1 float64
}

// MapToFullFrame converts a point expressed in crop-relative normalized
// coordinates back to full-frame normalized coordinates.
func (c Crop) MapToFullFrame(pt Point) Point {
	return Point{
		X: c.X0 + pt.X*(c.X1-c.X0),
		Y: c.Y0 + pt.Y*(c.Y1-c.Y0),
	}
}

// FullFrameCrop covers the entire frame.
func FullFrameCrop() Crop { return Crop{X0: 0, Y0: 0, X1: 1, Y1: 1} }

// ROIAction tells the caller how to run pose detection on the next frame.
type ROIAction struct {
	UseFullFrame bool
	Crop         Crop
}

type roiWindowSample struct {
	detected    bool
	farLegGood  bool
	farLegKnown bool
}

// ROIState is the explicit controller state. It is a value: Step returns an
// updated copy, so transitions are deterministic and unit-testable without
// live video.
type ROIState struct {
	Phase ROIPhase

	// Smoothed region (full-frame normalized coordinates).
	CenterX, CenterY float64
	HalfW, HalfH     float64
	RegionSet        bool

	StableRun     int // consecutive successful detections in ACQUIRE
	ConsecFails   int // consecutive failures in TRACK
	FramesInPhase int

	window []roiWindowSample
}

// NewROIState returns the initial controller state.
func NewROIState() ROIState {
	return ROIState{Phase: ROIAcquire}
}

// Step is the pure transition function of the controller: it consumes one
// observation and returns the next state plus the action for the following
// frame. The receiver state is never mutated.
func (p ROIParams) Step(s ROIState, obs ROIObservation) (ROIState, ROIAction) {
	next := s
	next.window = appendWindow(s.window, obs, p)
	next.FramesInPhase++

	if obs.Detected {
		next = p.updateRegion(next, obs)
	}

	switch s.Phase {
	case ROIAcquire:
		if obs.Detected {
			next.StableRun++
		} else {
			next.StableRun = 0
		}
		if next.StableRun >= p.AcquireStableFrames && next.RegionSet {
			next = enterPhase(next, ROITrack)
		}

	case ROITrack:
		if obs.Detected {
			next.ConsecFails = 0
		} else {
			next.ConsecFails++
		}
		switch {
		case next.ConsecFails >= p.MaxConsecFailures:
			next = enterPhase(next, ROIReacquire)
		case next.FramesInPhase >= p.MinTrackDwellFrames &&
			(failureRate(next.window) > p.FailureRateThreshold ||
				farLegDegraded(next.window, p)):
			next = enterPhase(next, ROIExpand)
		}

	case ROIExpand:
		if recovered(next.window, p) {
			next = enterPhase(next, ROITrack)
		} else if next.FramesInPhase >= p.ExpandBurstFrames {
			// Burst exhausted: reacquire regardless of cause.
			next = enterPhase(next, ROIReacquire)
		}

	case ROIReacquire:
		if next.FramesInPhase >= p.ReacquireBurstFrames {
			if recovered(next.window, p) {
				next = enterPhase(next, ROITrack)
			} else {
				next = enterPhase(next, ROIExpand)
			}
		}
	}

	return next, p.action(next)
}

func enterPhase(s ROIState, phase ROIPhase) ROIState {
	s.Phase = phase
	s.FramesInPhase = 0
	s.ConsecFails = 0
	if phase != ROIAcquire {
		s.StableRun = 0
	}
	return s
}

// updateRegion folds a successful detection into the smoothed crop region:
// EMA-smoothed center, fast expansion toward a larger box, slow shrink
// toward a smaller one.
func (p ROIParams) updateRegion(s ROIState, obs ROIObservation) ROIState {
	cx := (obs.BoxMin.X + obs.BoxMax.X) / 2
	cy := (obs.BoxMin.Y + obs.BoxMax.Y) / 2
	hw := (obs.BoxMax.X - obs.BoxMin.X) / 2
	hh := (obs.BoxMax.Y - obs.BoxMin.Y) / 2

	if !s.RegionSet {
		s.CenterX, s.CenterY = cx, cy
		s.HalfW, s.HalfH = hw, hh
		s.RegionSet = true
		return s
	}

	s.CenterX += p.CenterAlpha * (cx - s.CenterX)
	s.CenterY += p.CenterAlpha * (cy - s.CenterY)
	s.HalfW = approachAsym(s.HalfW, hw, p.ExpandRate, p.ShrinkRate)
	s.HalfH = approachAsym(s.HalfH, hh, p.ExpandRate, p.ShrinkRate)
	return s
}

// approachAsym moves cur toward target, fast when growing and slow when
// shrinking, so a suddenly larger subject never escapes the crop.
func approachAsym(cur, target, expandRate, shrinkRate float64) float64 {
	if target > cur {
		return cur + expandRate*(target-cur)
	}
	return cur + shrinkRate*(target-cur)
}

// action derives the detector instruction from the (already transitioned)
// state.
func (p ROIParams) action(s ROIState) ROIAction {
	switch s.Phase {
	case ROITrack:
		if s.RegionSet {
			return ROIAction{Crop: p.cropFor(s, p.MarginFactor)}
		}
	case ROIExpand:
		if s.RegionSet {
			return ROIAction{Crop: p.cropFor(s, p.ExpandMarginFactor)}
		}
	case ROIAcquire, ROIReacquire:
	}
	return ROIAction{UseFullFrame: true, Crop: FullFrameCrop()}
}

func (p ROIParams) cropFor(s ROIState, margin float64) Crop {
	hw := s.HalfW * margin
	hh := s.HalfH * margin
	c := Crop{
		X0: s.CenterX - hw,
		Y0: s.CenterY - hh,
		X1: s.CenterX + hw,
		Y1: s.CenterY + hh,
	}
	c.X0 = clamp01(c.X0)
	c.Y0 = clamp01(c.Y0)
	c.X1 = clamp01(c.X1)
	c.Y1 = clamp01(c.Y1)
	return c
}

func appendWindow(window []roiWindowSample, obs ROIObservation, p ROIParams) []roiWindowSample {
	sample := roiWindowSample{detected: obs.Detected}
	if obs.Detected && !math.IsNaN(obs.FarLegConfidence) {
		sample.farLegKnown = true
		sample.farLegGood = obs.FarLegConfidence >= p.FarLegConfThreshold
	}
	out := make([]roiWindowSample, 0, p.WindowSize)
	start := 0
	if excess := len(window) + 1 - p.WindowSize; excess > 0 {
		start = excess
	}
	out = append(out, window[start:]...)
	out = append(out, sample)
	return out
}

func failureRate(window []roiWindowSample) float64 {
	if len(window) == 0 {
		return 0
	}
	fails := 0
	for _, s := range window {
		if !s.detected {
			fails++
		}
	}
	return float64(fails) / float64(len(window))
}

// farLegDegraded reports whether the far leg's confidence fell below the
// threshold on more than the configured fraction of the window.
func farLegDegraded(window []roiWindowSample, p ROIParams) bool {
	if len(window) == 0 {
		return false
	}
	degraded := 0
	for _, s := range window {
		if s.farLegKnown && !s.farLegGood {
			degraded++
		}
	}
	return float64(degraded)/float64(len(window)) > p.FarLegDegradedFrac
}

// recovered reports whether most of the last few frames detected successfully
// with confidence back above the threshold.
func recovered(window []roiWindowSample, p ROIParams) bool {
	if len(window) < p.RecoveryWindow {
		return false
	}
	good := 0
	for _, s := range window[len(window)-p.RecoveryWindow:] {
		if s.detected && (!s.farLegKnown || s.farLegGood) {
			good++
		}
	}
	return good >= p.RecoveryMinGood
}

// ObservationFromFrame builds an ROI observation from a detected pose frame
// in full-frame coordinates.
func ObservationFromFrame(f *PoseFrame) ROIObservation {
	if !f.Detected {
		return ROIObservation{Detected: false, FarLegConfidence: math.NaN()}
	}
	obs := ROIObservation{Detected: true}
	obs.BoxMin = Point{X: math.Inf(1), Y: math.Inf(1)}
	obs.BoxMax = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, lm := range CoreLandmarks {
		pt := f.Landmarks[lm]
		obs.BoxMin.X = math.Min(obs.BoxMin.X, pt.X)
		obs.BoxMin.Y = math.Min(obs.BoxMin.Y, pt.Y)
		obs.BoxMax.X = math.Max(obs.BoxMax.X, pt.X)
		obs.BoxMax.Y = math.Max(obs.BoxMax.Y, pt.Y)
	}
	leftConf := math.Min(f.Confidence[LeftKnee], f.Confidence[LeftAnkle])
	rightConf := math.Min(f.Confidence[RightKnee], f.Confidence[RightAnkle])
	obs.FarLegConfidence = math.Min(leftConf, rightConf)
	return obs
}
