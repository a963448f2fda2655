package gait

import (
	"math"
)

// StepMode identifies which candidate event signal produced the step events.
type StepMode string

const (
	StepModeNone      StepMode = "none"
	StepModeAnkleDist StepMode = "ankle_distance"
	StepModeAnkleVel  StepMode = "ankle_velocity"
	StepModeKneeFlex  StepMode = "knee_flexion"
)

// stepModeOrder fixes the candidate evaluation order; reliability ties
// resolve in this order so selection stays deterministic.
var stepModeOrder = [3]StepMode{StepModeAnkleDist, StepModeAnkleVel, StepModeKneeFlex}

// CandidateTrace records one candidate signal's detection outcome, kept for
// selection, debugging and plotting.
type CandidateTrace struct {
	Mode         StepMode  `json:"mode"`
	Signal       []float64 `json:"signal"`
	PeakFrames   []int     `json:"peak_frames"`
	PeriodFrames float64   `json:"period_frames"`
	Periodicity  float64   `json:"periodicity"`
	Coverage     float64   `json:"coverage"`
	Score        float64   `json:"score"`
}

// StepDetection is the full output of gait-event detection.
type StepDetection struct {
	Mode       StepMode         `json:"mode"`
	Events     []StepEvent      `json:"events"`
	Candidates []CandidateTrace `json:"candidates"`
}

// DetectSteps derives three leg-swap-robust candidate event signals, scores
// each for reliability, and extracts step events from the best one.
func DetectSteps(sig *Signals, p StepParams) StepDetection {
	det := StepDetection{Mode: StepModeNone}

	for _, mode := range stepModeOrder {
		signal := candidateSignal(sig, mode, p)
		trace := analyzeCandidate(mode, signal, sig.FPS, p)
		det.Candidates = append(det.Candidates, trace)
	}

	// Prefer the highest-scoring candidate that cleared both the peak-count
	// and reliability floors; otherwise fall back to whichever produced the
	// most raw peaks.
	best := -1
	for i, c := range det.Candidates {
		if len(c.PeakFrames) < p.MinPeaks || c.Score < p.MinSelectScore {
			continue
		}
		if best < 0 || c.Score > det.Candidates[best].Score {
			best = i
		}
	}
	if best < 0 {
		for i, c := range det.Candidates {
			if best < 0 || len(c.PeakFrames) > len(det.Candidates[best].PeakFrames) {
				best = i
			}
		}
	}
	if best < 0 || len(det.Candidates[best].PeakFrames) == 0 {
		return det
	}

	chosen := det.Candidates[best]
	det.Mode = chosen.Mode
	det.Events = make([]StepEvent, len(chosen.PeakFrames))
	for i, frame := range chosen.PeakFrames {
		det.Events[i] = StepEvent{Frame: frame, TimeSecs: float64(frame) / sig.FPS}
	}
	return det
}

// candidateSignal builds the per-mode event signal. Each is constructed so a
// left/right leg swap in the pose stream cannot invert the peaks.
func candidateSignal(sig *Signals, mode StepMode, p StepParams) []float64 {
	n := sig.FrameCount
	out := nanSlice(n)
	switch mode {
	case StepModeAnkleDist:
		copy(out, sig.AnkleDist)
	case StepModeAnkleVel:
		left := emaSmooth(absSlice(sig.AnkleVelLeft), p.VelocityEMAAlpha)
		right := emaSmooth(absSlice(sig.AnkleVelRight), p.VelocityEMAAlpha)
		for i := 0; i < n; i++ {
			out[i] = nanMax([]float64{left[i], right[i]})
		}
	case StepModeKneeFlex:
		for i := 0; i < n; i++ {
			m := nanMin([]float64{sig.KneeAngleLeft[i], sig.KneeAngleRight[i]})
			if isValidSample(m) {
				out[i] = 180 - m // flexion peaks read as signal peaks
			}
		}
	case StepModeNone:
	}
	return out
}

func absSlice(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}

func analyzeCandidate(mode StepMode, signal []float64, fps float64, p StepParams) CandidateTrace {
	trace := CandidateTrace{Mode: mode, Signal: signal}
	n := len(signal)
	if n == 0 {
		return trace
	}

	trace.Coverage = float64(countValid(signal)) / float64(n)
	trace.PeriodFrames, trace.Periodicity = estimateStepPeriod(signal, fps, p)

	minSep := p.MinPeakSeparation
	if sep := int(math.Round(trace.PeriodFrames * p.DistanceFactor)); sep > minSep {
		minSep = sep
	}
	minProm := p.ProminenceFallback
	if sd := nanStdDev(signal); sd > 0 {
		minProm = sd * p.ProminenceFactor
	}
	trace.PeakFrames = findPeaks(signal, minSep, minProm)

	trace.Score = reliabilityScore(len(trace.PeakFrames), trace.Periodicity, trace.Coverage, p.MinPeaks)
	return trace
}

// reliabilityScore combines peak yield, periodicity strength and confidence
// coverage. Candidates with too few peaks are effectively rejected by the
// final attenuation.
func reliabilityScore(peakCount int, periodicity, coverage float64, minPeaks int) float64 {
	peakTerm := math.Min(float64(peakCount)/6, 1)
	score := 0.3*peakTerm + 0.4*periodicity + 0.3*coverage
	if peakCount < minPeaks {
		score *= 0.1
	}
	return score
}

// estimateStepPeriod searches the normalized autocorrelation for the highest
// peak within the plausible step-duration lag window. When no local peak
// exists, the best raw correlation in the window is used with its strength
// penalized by half.
func estimateStepPeriod(signal []float64, fps float64, p StepParams) (period, periodicity float64) {
	vals := make([]float64, len(signal))
	mean := nanMean(signal)
	if math.IsNaN(mean) {
		return 0, 0
	}
	// Gaps contribute the mean so they neither create nor destroy lag
	// structure.
	for i, v := range signal {
		if isValidSample(v) {
			vals[i] = v - mean
		}
	}

	var energy float64
	for _, v := range vals {
		energy += v * v
	}
	if energy == 0 {
		return 0, 0
	}

	minLag := int(math.Round(p.MinStepLagSecs * fps))
	maxLag := int(math.Round(p.MaxStepLagSecs * fps))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag > len(vals)/2 {
		maxLag = len(vals) / 2
	}
	if maxLag <= minLag {
		return 0, 0
	}

	acf := make([]float64, maxLag+1)
	for lag := minLag - 1; lag <= maxLag; lag++ {
		if lag < 0 || lag >= len(vals) {
			continue
		}
		var sum float64
		for i := 0; i+lag < len(vals); i++ {
			sum += vals[i] * vals[i+lag]
		}
		acf[lag] = sum / energy
	}

	bestLag, bestVal := 0, math.Inf(-1)
	peakFound := false
	for lag := minLag; lag <= maxLag; lag++ {
		prev := acf[lag-1]
		next := 0.0
		if lag+1 <= maxLag {
			next = acf[lag+1]
		}
		isPeak := acf[lag] > prev && acf[lag] >= next
		if isPeak && (!peakFound || acf[lag] > bestVal) {
			bestLag, bestVal = lag, acf[lag]
			peakFound = true
		}
		if !peakFound && acf[lag] > bestVal {
			bestLag, bestVal = lag, acf[lag]
		}
	}
	if bestLag == 0 {
		return 0, 0
	}
	strength := bestVal
	if !peakFound {
		strength /= 2
	}
	return float64(bestLag), clamp01(strength)
}

// findPeaks picks local maxima with a minimum separation and a minimum
// prominence. Prominence is the peak height above the higher of the local
// minima on either side within the separation window. A peak inside the
// separation distance of the previously accepted peak is discarded.
func findPeaks(signal []float64, minSep int, minProm float64) []int {
	var peaks []int
	lastAccepted := -1 << 30
	for i := 1; i < len(signal)-1; i++ {
		v := signal[i]
		if !isValidSample(v) || !isValidSample(signal[i-1]) || !isValidSample(signal[i+1]) {
			continue
		}
		if !(v > signal[i-1] && v >= signal[i+1]) {
			continue
		}
		if peakProminence(signal, i, minSep) < minProm {
			continue
		}
		if i-lastAccepted < minSep {
			continue
		}
		peaks = append(peaks, i)
		lastAccepted = i
	}
	return peaks
}

func peakProminence(signal []float64, i, window int) float64 {
	leftMin, rightMin := signal[i], signal[i]
	for k := i - 1; k >= 0 && k >= i-window; k-- {
		if isValidSample(signal[k]) && signal[k] < leftMin {
			leftMin = signal[k]
		}
	}
	for k := i + 1; k < len(signal) && k <= i+window; k++ {
		if isValidSample(signal[k]) && signal[k] < rightMin {
			rightMin = signal[k]
		}
	}
	base := math.Max(leftMin, rightMin)
	return signal[i] - base
}
