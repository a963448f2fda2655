package gait

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Sentinel-aware reductions over dense per-frame arrays. Missing samples are
// NaN; every helper here skips them rather than propagating.

func isValidSample(v float64) bool { return !math.IsNaN(v) }

// compactValid returns the non-NaN samples of x.
func compactValid(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if isValidSample(v) {
			out = append(out, v)
		}
	}
	return out
}

// nanMean returns the mean of the valid samples, or NaN when none exist.
func nanMean(x []float64) float64 {
	vals := compactValid(x)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// nanStdDev returns the sample standard deviation of the valid samples.
// Fewer than two valid samples yield zero.
func nanStdDev(x []float64) float64 {
	vals := compactValid(x)
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

// nanMedian returns the median of the valid samples, or NaN when none exist.
func nanMedian(x []float64) float64 {
	return nanQuantile(x, 0.5)
}

// nanQuantile returns the q-quantile of the valid samples, or NaN when none
// exist.
func nanQuantile(x []float64, q float64) float64 {
	vals := compactValid(x)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return stat.Quantile(q, stat.Empirical, vals, nil)
}

// nanMin returns the minimum valid sample, or NaN when none exist.
func nanMin(x []float64) float64 {
	m := math.NaN()
	for _, v := range x {
		if isValidSample(v) && (math.IsNaN(m) || v < m) {
			m = v
		}
	}
	return m
}

// nanMax returns the maximum valid sample, or NaN when none exist.
func nanMax(x []float64) float64 {
	m := math.NaN()
	for _, v := range x {
		if isValidSample(v) && (math.IsNaN(m) || v > m) {
			m = v
		}
	}
	return m
}

// nanCV returns the coefficient of variation (stddev/mean) of the valid
// samples. A zero-sample or zero-mean input yields zero, not a sentinel.
func nanCV(x []float64) float64 {
	m := nanMean(x)
	if math.IsNaN(m) || m == 0 {
		return 0
	}
	return nanStdDev(x) / math.Abs(m)
}

// countValid returns the number of non-NaN samples.
func countValid(x []float64) int {
	n := 0
	for _, v := range x {
		if isValidSample(v) {
			n++
		}
	}
	return n
}

// interpolateGaps linearly bridges NaN runs of at most maxGap samples between
// two valid neighbors. Longer runs, and runs touching either sequence
// boundary, remain unfilled. The input is not mutated.
func interpolateGaps(x []float64, maxGap int) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if maxGap <= 0 {
		return out
	}
	i := 0
	for i < len(out) {
		if isValidSample(out[i]) {
			i++
			continue
		}
		start := i
		for i < len(out) && !isValidSample(out[i]) {
			i++
		}
		gap := i - start
		if start == 0 || i == len(out) || gap > maxGap {
			continue
		}
		lo, hi := out[start-1], out[i]
		for k := 0; k < gap; k++ {
			t := float64(k+1) / float64(gap+1)
			out[start+k] = lo + (hi-lo)*t
		}
	}
	return out
}

// emaSmooth applies an exponential moving average that resets after any
// unresolved gap: a NaN sample stays NaN and discards the running state, so
// the average never extrapolates across a gap the interpolator declined to
// bridge. The input is not mutated.
func emaSmooth(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	state := math.NaN()
	for i, v := range x {
		if !isValidSample(v) {
			out[i] = math.NaN()
			state = math.NaN()
			continue
		}
		if math.IsNaN(state) {
			state = v
		} else {
			state = alpha*v + (1-alpha)*state
		}
		out[i] = state
	}
	return out
}

// centeredVelocity differentiates a position signal with centered finite
// differences at the given frame rate. Boundaries and samples adjacent to
// unresolved gaps are NaN.
func centeredVelocity(x []float64, fps float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := 1; i < len(x)-1; i++ {
		if isValidSample(x[i-1]) && isValidSample(x[i+1]) {
			out[i] = (x[i+1] - x[i-1]) * fps / 2
		}
	}
	return out
}

// secondDiffRMS returns the root-mean-square of the discrete second time
// derivative of x at the given frame rate, skipping samples whose stencil
// touches a gap. Zero usable samples yield zero.
func secondDiffRMS(x []float64, fps float64) float64 {
	sum, n := 0.0, 0
	for i := 1; i < len(x)-1; i++ {
		if isValidSample(x[i-1]) && isValidSample(x[i]) && isValidSample(x[i+1]) {
			d2 := (x[i+1] - 2*x[i] + x[i-1]) * fps * fps
			sum += d2 * d2
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// gradeLinear maps v onto [0,1] with a linear ramp between lo and hi.
func gradeLinear(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return clamp01((v - lo) / (hi - lo))
}
