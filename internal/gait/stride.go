package gait

import (
	"math"
)

// Fixed grading breakpoints for the inter-ankle-distance signal-quality
// sub-scores. Values are in normalized image units.
const (
	sqAmplitudeLow   = 0.02
	sqAmplitudeHigh  = 0.10
	sqPeakHeightLow  = 0.05
	sqPeakHeightHigh = 0.15
	sqJerkLow        = 0.5 // normalized units/s^2; below this the segment reads perfectly smooth
	sqJerkHigh       = 5.0
)

// Signal-quality sub-score weights.
const (
	sqAmplitudeWeight  = 0.45
	sqPeakHeightWeight = 0.30
	sqSmoothnessWeight = 0.25
)

// Stride quality component weights.
const (
	qValidityWeight = 0.20
	qTimingWeight   = 0.20
	qROMWeight      = 0.20
	qSignalWeight   = 0.40
)

// SegmentStrides pairs step events into full gait cycles: stride i spans
// step[2i]..step[2i+2]. A trailing unpaired step closes its stride with a
// synthesized event one prior step-duration later, marked Extrapolated.
func SegmentStrides(steps []StepEvent, sig *Signals, p StrideParams) []Stride {
	var strides []Stride
	for i := 0; i+1 < len(steps); i += 2 {
		start := steps[i]
		mid := steps[i+1]
		var end StepEvent
		extrapolated := false
		if i+2 < len(steps) {
			end = steps[i+2]
		} else {
			// Trailing unpaired step: extend by the prior step duration.
			dur := mid.TimeSecs - start.TimeSecs
			end = StepEvent{
				Frame:    mid.Frame + (mid.Frame - start.Frame),
				TimeSecs: mid.TimeSecs + dur,
			}
			if end.Frame > sig.FrameCount-1 {
				end.Frame = sig.FrameCount - 1
				end.TimeSecs = float64(end.Frame) / sig.FPS
			}
			extrapolated = true
		}
		if end.Frame <= start.Frame {
			continue
		}
		st := Stride{
			StartFrame:   start.Frame,
			EndFrame:     end.Frame,
			StartTime:    start.TimeSecs,
			EndTime:      end.TimeSecs,
			StartStep:    start,
			EndStep:      end,
			Extrapolated: extrapolated,
		}
		st.StepDurations = [2]float64{
			mid.TimeSecs - start.TimeSecs,
			end.TimeSecs - mid.TimeSecs,
		}
		measureStride(&st, sig, p)
		strides = append(strides, st)
	}
	return strides
}

// measureStride fills the per-stride kinematic summaries used by validation
// and feature computation.
func measureStride(st *Stride, sig *Signals, p StrideParams) {
	lo, hi := st.StartFrame, st.EndFrame+1
	if hi > sig.FrameCount {
		hi = sig.FrameCount
	}
	valid := 0
	for i := lo; i < hi; i++ {
		if sig.Valid[i] {
			valid++
		}
	}
	if hi > lo {
		st.ValidFrac = float64(valid) / float64(hi-lo)
	}

	left := sig.KneeAngleLeft[lo:hi]
	right := sig.KneeAngleRight[lo:hi]
	st.ROMLeft = kneeROM(left, p.RobustROM)
	st.ROMRight = kneeROM(right, p.RobustROM)
	st.PeakFlexLeft = peakFlexion(left)
	st.PeakFlexRight = peakFlexion(right)
}

// kneeROM returns the knee range of motion over a span, either as the simple
// max-min or as the robust p5/p95 spread.
func kneeROM(angles []float64, robust bool) float64 {
	if countValid(angles) == 0 {
		return 0
	}
	if robust {
		lo := nanQuantile(angles, 0.05)
		hi := nanQuantile(angles, 0.95)
		return hi - lo
	}
	return nanMax(angles) - nanMin(angles)
}

// peakFlexion returns the maximum knee flexion in degrees (180 minus the
// minimum joint angle) over a span, or zero with no valid samples.
func peakFlexion(angles []float64) float64 {
	m := nanMin(angles)
	if math.IsNaN(m) {
		return 0
	}
	return 180 - m
}

// ValidateStrides applies the validation gates in order, the first failure
// marking the stride invalid with its reason and zero quality. Passing
// strides receive a continuous quality score in [0,1].
func ValidateStrides(strides []Stride, sig *Signals, p StrideParams) []Stride {
	if len(strides) == 0 {
		return strides
	}

	stepTimes := make([]float64, len(strides))
	for i := range strides {
		stepTimes[i] = strides[i].StepTime()
	}
	medianStep := nanMedian(stepTimes)

	out := make([]Stride, len(strides))
	copy(out, strides)
	for i := range out {
		validateStride(&out[i], sig, p, medianStep)
	}
	return out
}

func validateStride(st *Stride, sig *Signals, p StrideParams, medianStep float64) {
	st.Valid = false
	st.Quality = 0

	// Gate 1: frame completeness.
	if st.ValidFrac < p.MinValidFrac {
		st.Reason = ReasonLowValidity
		return
	}

	// Gate 2: step-time consistency against the cohort median.
	timingDev := 1.0
	if medianStep > 0 {
		timingDev = math.Abs(st.StepTime()-medianStep) / medianStep
	}
	if timingDev > p.StepTimeTolerance {
		st.Reason = ReasonTimingOutlier
		return
	}

	// Gate 3: enough knee-angle samples on both legs.
	lo, hi := st.StartFrame, st.EndFrame+1
	if hi > sig.FrameCount {
		hi = sig.FrameCount
	}
	if countValid(sig.KneeAngleLeft[lo:hi]) < p.MinKneeSamples ||
		countValid(sig.KneeAngleRight[lo:hi]) < p.MinKneeSamples {
		st.Reason = ReasonInsufficientKnee
		return
	}

	// Gate 4: range-of-motion plausibility on the dominant leg.
	rom := math.Max(st.ROMLeft, st.ROMRight)
	if rom < p.ROMMinDeg || rom > p.ROMMaxDeg {
		st.Reason = ReasonROMOutOfRange
		return
	}

	st.Valid = true
	st.Reason = ReasonNone

	timingScore := clamp01(1 - timingDev/p.StepTimeTolerance)
	romScore := clamp01(2 * math.Min(rom-p.ROMMinDeg, p.ROMMaxDeg-rom) / (p.ROMMaxDeg - p.ROMMinDeg))
	signalScore := signalQuality(sig.AnkleDist[lo:hi], sig.FPS)

	st.Quality = qValidityWeight*st.ValidFrac +
		qTimingWeight*timingScore +
		qROMWeight*romScore +
		qSignalWeight*signalScore
}

// signalQuality grades the inter-ankle-distance segment of a stride on
// amplitude, peak height, and smoothness against fixed breakpoints.
func signalQuality(segment []float64, fps float64) float64 {
	if countValid(segment) == 0 {
		return 0
	}
	amplitude := nanQuantile(segment, 0.95) - nanQuantile(segment, 0.05)
	peakHeight := nanMax(segment)
	jerk := secondDiffRMS(segment, fps)

	ampScore := gradeLinear(amplitude, sqAmplitudeLow, sqAmplitudeHigh)
	peakScore := gradeLinear(peakHeight, sqPeakHeightLow, sqPeakHeightHigh)
	smoothScore := 1 - gradeLinear(jerk, sqJerkLow, sqJerkHigh)

	return sqAmplitudeWeight*ampScore + sqPeakHeightWeight*peakScore + sqSmoothnessWeight*smoothScore
}
