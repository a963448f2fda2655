package gait

import (
	"math"
)

// BuildSignals converts a pose sequence into dense per-frame biomechanical
// signals: confidence-gated geometry on valid frames, gap interpolation up to
// the bridge limit, gap-aware smoothing, and centered-difference velocities.
// Every output array has length seq.FrameCount.
func BuildSignals(seq *PoseSequence, p SignalParams) *Signals {
	n := seq.FrameCount
	sig := &Signals{
		FrameCount:     n,
		FPS:            seq.FPS,
		Valid:          make([]bool, n),
		AnkleDist:      nanSlice(n),
		KneeAngleLeft:  nanSlice(n),
		KneeAngleRight: nanSlice(n),
		TrunkLean:      nanSlice(n),
		HipWidth:       nanSlice(n),
		AnkleYLeft:     nanSlice(n),
		AnkleYRight:    nanSlice(n),
		HipY:           nanSlice(n),
	}

	for i := 0; i < n && i < len(seq.Frames); i++ {
		f := &seq.Frames[i]
		if !f.Detected || !coreLandmarksConfident(f, p.MinLandmarkConfidence) {
			continue
		}
		sig.Valid[i] = true

		la, ra := f.Landmarks[LeftAnkle], f.Landmarks[RightAnkle]
		lh, rh := f.Landmarks[LeftHip], f.Landmarks[RightHip]

		sig.AnkleDist[i] = math.Abs(la.X - ra.X)
		sig.HipWidth[i] = math.Abs(lh.X - rh.X)
		sig.KneeAngleLeft[i] = kneeAngle(lh, f.Landmarks[LeftKnee], la)
		sig.KneeAngleRight[i] = kneeAngle(rh, f.Landmarks[RightKnee], ra)
		sig.TrunkLean[i] = trunkLean(f)
		sig.AnkleYLeft[i] = la.Y
		sig.AnkleYRight[i] = ra.Y
		sig.HipY[i] = (lh.Y + rh.Y) / 2
	}

	// Bridge short gaps, then smooth. The EMA resets across any gap the
	// interpolator left unfilled.
	sig.AnkleDist = emaSmooth(interpolateGaps(sig.AnkleDist, p.MaxGapBridge), p.EMAAlpha)
	sig.KneeAngleLeft = emaSmooth(interpolateGaps(sig.KneeAngleLeft, p.MaxGapBridge), p.EMAAlpha)
	sig.KneeAngleRight = emaSmooth(interpolateGaps(sig.KneeAngleRight, p.MaxGapBridge), p.EMAAlpha)
	sig.TrunkLean = emaSmooth(interpolateGaps(sig.TrunkLean, p.MaxGapBridge), p.EMAAlpha)
	sig.HipWidth = interpolateGaps(sig.HipWidth, p.MaxGapBridge)

	// Velocities differentiate the interpolated positions directly so sharp
	// vertical transients survive for event detection.
	sig.AnkleYLeft = interpolateGaps(sig.AnkleYLeft, p.MaxGapBridge)
	sig.AnkleYRight = interpolateGaps(sig.AnkleYRight, p.MaxGapBridge)
	sig.HipY = interpolateGaps(sig.HipY, p.MaxGapBridge)
	sig.AnkleVelLeft = centeredVelocity(sig.AnkleYLeft, seq.FPS)
	sig.AnkleVelRight = centeredVelocity(sig.AnkleYRight, seq.FPS)
	sig.HipVel = centeredVelocity(sig.HipY, seq.FPS)

	return sig
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func coreLandmarksConfident(f *PoseFrame, minConf float64) bool {
	for _, lm := range CoreLandmarks {
		if f.Confidence[lm] < minConf {
			return false
		}
	}
	return true
}

// kneeAngle returns the joint angle at the knee vertex in degrees via the law
// of cosines over the hip-knee-ankle triangle. Degenerate geometry (a zero
// side) yields NaN.
func kneeAngle(hip, knee, ankle Point) float64 {
	a := dist(hip, knee)
	b := dist(knee, ankle)
	c := dist(hip, ankle)
	if a == 0 || b == 0 {
		return math.NaN()
	}
	cos := (a*a + b*b - c*c) / (2 * a * b)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// trunkLean returns the signed angle in degrees between the vertical axis and
// the mid-hip to mid-shoulder vector. Image y grows downward, so an upright
// trunk points along -y and leans read as the deviation from it.
func trunkLean(f *PoseFrame) float64 {
	midHip := Point{
		X: (f.Landmarks[LeftHip].X + f.Landmarks[RightHip].X) / 2,
		Y: (f.Landmarks[LeftHip].Y + f.Landmarks[RightHip].Y) / 2,
	}
	midShoulder := Point{
		X: (f.Landmarks[LeftShoulder].X + f.Landmarks[RightShoulder].X) / 2,
		Y: (f.Landmarks[LeftShoulder].Y + f.Landmarks[RightShoulder].Y) / 2,
	}
	dx := midShoulder.X - midHip.X
	dy := midHip.Y - midShoulder.Y // positive when the shoulders sit above the hips
	if dx == 0 && dy == 0 {
		return math.NaN()
	}
	return math.Atan2(dx, dy) * 180 / math.Pi
}

func dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
