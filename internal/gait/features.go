package gait

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ComputeFeatures derives the canonical 16-dimensional feature vector from
// the two selected strides and their surrounding signal context. All
// aggregations skip sentinel samples; a reduction with zero usable samples
// contributes zero rather than a sentinel.
func ComputeFeatures(sig *Signals, strides []Stride, first, second int) GaitFeatures {
	a, b := &strides[first], &strides[second]
	f := GaitFeatures{ValidStrideCount: 2}

	// Temporal structure. Cadence comes from the mean step duration across
	// both cycles.
	stepDurs := []float64{
		a.StepDurations[0], a.StepDurations[1],
		b.StepDurations[0], b.StepDurations[1],
	}
	meanStep := positiveMean(stepDurs)
	if meanStep > 0 {
		f.CadenceSPM = 60 / meanStep
	}

	strideTimes := []float64{a.Duration(), b.Duration()}
	f.StrideTimeS = stat.Mean(strideTimes, nil)
	if f.StrideTimeS > 0 {
		f.StrideTimeCV = stat.StdDev(strideTimes, nil) / f.StrideTimeS
	}

	f.StepTimeAsym = meanAsymmetry(
		[2]float64{a.StepDurations[0], a.StepDurations[1]},
		[2]float64{b.StepDurations[0], b.StepDurations[1]},
	)

	// Spatial structure, normalized by estimated body width so measurements
	// are comparable across camera distances.
	spans := strideSpans(sig, a, b)
	bodyWidth := nanMedian(sig.HipWidth)
	if !math.IsNaN(bodyWidth) && bodyWidth > 0 {
		strideLen := nanQuantile(spans.ankleDist, 0.95)
		strideAmp := strideLen - nanQuantile(spans.ankleDist, 0.05)
		if !math.IsNaN(strideLen) {
			f.StrideLenNorm = strideLen / bodyWidth
		}
		if !math.IsNaN(strideAmp) {
			f.StrideAmpNorm = strideAmp / bodyWidth
		}
	}

	f.StepLenAsym = meanAsymmetry(stepPeaks(sig, a), stepPeaks(sig, b))

	// Joint kinematics from the validation results.
	f.ROMKneeLeftDeg = (a.ROMLeft + b.ROMLeft) / 2
	f.ROMKneeRightDeg = (a.ROMRight + b.ROMRight) / 2
	f.PeakFlexLeftDeg = (a.PeakFlexLeft + b.PeakFlexLeft) / 2
	f.PeakFlexRightDeg = (a.PeakFlexRight + b.PeakFlexRight) / 2

	// Smoothness: RMS of the discrete second time derivative over the stride
	// spans.
	f.JerkRMSKneeLeft = secondDiffRMS(spans.kneeLeft, sig.FPS)
	f.JerkRMSKneeRight = secondDiffRMS(spans.kneeRight, sig.FPS)
	f.JerkRMSTrunk = secondDiffRMS(spans.trunk, sig.FPS)

	f.TrunkLeanSDDeg = nanStdDevZero(absSlice(spans.trunk))
	f.AnkleDistCV = nanCV(spans.ankleDist)

	return f
}

// strideSignalSpans collects signal segments across both selected stride
// spans, preserving a NaN seam between non-contiguous spans so difference
// stencils never straddle the junction.
type strideSignalSpans struct {
	ankleDist []float64
	kneeLeft  []float64
	kneeRight []float64
	trunk     []float64
}

func strideSpans(sig *Signals, a, b *Stride) strideSignalSpans {
	var s strideSignalSpans
	appendSpan := func(lo, hi int) {
		if lo < 0 {
			lo = 0
		}
		if hi > sig.FrameCount {
			hi = sig.FrameCount
		}
		if lo >= hi {
			return
		}
		s.ankleDist = append(s.ankleDist, sig.AnkleDist[lo:hi]...)
		s.kneeLeft = append(s.kneeLeft, sig.KneeAngleLeft[lo:hi]...)
		s.kneeRight = append(s.kneeRight, sig.KneeAngleRight[lo:hi]...)
		s.trunk = append(s.trunk, sig.TrunkLean[lo:hi]...)
	}
	appendSeam := func() {
		s.ankleDist = append(s.ankleDist, math.NaN())
		s.kneeLeft = append(s.kneeLeft, math.NaN())
		s.kneeRight = append(s.kneeRight, math.NaN())
		s.trunk = append(s.trunk, math.NaN())
	}
	appendSpan(a.StartFrame, a.EndFrame+1)
	loB := b.StartFrame
	if loB <= a.EndFrame {
		loB = a.EndFrame + 1
	} else if loB > a.EndFrame+1 {
		appendSeam()
	}
	appendSpan(loB, b.EndFrame+1)
	return s
}

// stepPeaks returns the peak inter-ankle distance within each of a stride's
// two step intervals, the basis of the step-length asymmetry index.
func stepPeaks(sig *Signals, st *Stride) [2]float64 {
	mid := st.StartFrame + (st.EndFrame-st.StartFrame)/2
	firstHi := mid + 1
	if firstHi > sig.FrameCount {
		firstHi = sig.FrameCount
	}
	secondHi := st.EndFrame + 1
	if secondHi > sig.FrameCount {
		secondHi = sig.FrameCount
	}
	var out [2]float64
	out[0] = zeroIfNaN(nanMax(sig.AnkleDist[st.StartFrame:firstHi]))
	if mid < secondHi {
		out[1] = zeroIfNaN(nanMax(sig.AnkleDist[mid:secondHi]))
	}
	return out
}

// meanAsymmetry averages the |(a-b)/(a+b)| index over the per-stride value
// pairs, skipping pairs that sum to zero.
func meanAsymmetry(pairs ...[2]float64) float64 {
	sum, n := 0.0, 0
	for _, p := range pairs {
		total := p[0] + p[1]
		if total == 0 || math.IsNaN(total) {
			continue
		}
		sum += math.Abs((p[0] - p[1]) / total)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// positiveMean averages the strictly positive, valid entries of x.
func positiveMean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if isValidSample(v) && v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// nanStdDevZero is nanStdDev with the zero-sample contract of feature
// aggregation: no samples means zero.
func nanStdDevZero(x []float64) float64 {
	if countValid(x) == 0 {
		return 0
	}
	return nanStdDev(x)
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
