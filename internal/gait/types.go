package gait

import (
	"encoding/json"
	"math"
)

// Point is a 2D position in normalized image coordinates ([0,1] of frame extent).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WalkDirection identifies the subject's dominant direction of travel.
type WalkDirection string

const (
	DirectionLeftToRight WalkDirection = "left_to_right"
	DirectionRightToLeft WalkDirection = "right_to_left"
	DirectionUnknown     WalkDirection = "unknown"
)

// PoseFrame holds one frame of landmark detections. Immutable once produced.
type PoseFrame struct {
	Index      int                   `json:"index"`
	TimeSecs   float64               `json:"time_secs"`
	Detected   bool                  `json:"detected"`
	Landmarks  [NumLandmarks]Point   `json:"landmarks"`
	Confidence [NumLandmarks]float64 `json:"confidence"`
}

// PoseSequence is the full per-frame landmark record for one video. A
// sequence is owned by exactly one analysis pass; direction normalization
// produces a new sequence rather than mutating in place.
type PoseSequence struct {
	VideoID    string        `json:"video_id"`
	FPS        float64       `json:"fps"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	FrameCount int           `json:"frame_count"`
	Frames     []PoseFrame   `json:"frames"`
	Direction  WalkDirection `json:"direction"`
	Flipped    bool          `json:"flipped"`
}

/// Mirrored returns a horizontally flipped copy of the sequence: every x
// coordinate maps to 1-x and left/right landmark indices swap, so a
// right-to-left walk reads as the canonical left-to-right direction.
func (s *PoseSequence) Mirrored() *PoseSequence {
	out := &PoseSequence{
		VideoID:    s.VideoID,
		FPS:        s.FPS,
		Width:      s.Width,
		Height:     s.Height,
		FrameCount: s.FrameCount,
		Frames:     make([]PoseFrame, len(s.Frames)),
		Direction:  DirectionLeftToRight,
		Flipped:    !s.Flipped,
	}
	switch s.Direction {
	case DirectionLeftToRight:
		out.Direction = DirectionRightToLeft
	case DirectionRightToLeft:
		out.Direction = DirectionLeftToRight
	default:
		out.Direction = DirectionUnknown
	}
	for i, f := range s.Frames {
		m := PoseFrame{Index: f.Index, TimeSecs: f.TimeSecs, Detected: f.Detected}
		for lm := 0; lm < NumLandmarks; lm++ {
			src := mirrorIndex[lm]
			m.Landmarks[lm] = Point{X: 1 - f.Landmarks[src].X, Y: f.Landmarks[src].Y}
			m.Confidence[lm] = f.Confidence[src]
		}
		out.Frames[i] = m
	}
	return out
}

// Signals holds the dense per-frame biomechanical signals derived from a
// PoseSequence. Every array has length FrameCount; missing samples are NaN,
// never omitted.
type Signals struct {
	FrameCount int
	FPS        float64

	// Valid marks frames where all core landmarks met the confidence gate.
	Valid []bool

	AnkleDist      []float64 // horizontal inter-ankle distance
	KneeAngleLeft  []float64 // degrees at the knee vertex
	KneeAngleRight []float64
	TrunkLean      []float64 // degrees from the vertical axis, signed
	HipWidth       []float64 // horizontal inter-hip distance (body width estimate)

	AnkleYLeft  []float64
	AnkleYRight []float64
	HipY        []float64 // mid-hip vertical position

	AnkleVelLeft  []float64 // vertical velocity, normalized units per second
	AnkleVelRight []float64
	HipVel        []float64
}

// ValidFrames returns the number of frames that passed the confidence gate.
func (s *Signals) ValidFrames() int {
	n := 0
	for _, v := range s.Valid {
		if v {
			n++
		}
	}
	return n
}

// StepEvent marks a detected heel-strike-equivalent peak.
type StepEvent struct {
	Frame    int     `json:"frame"`
	TimeSecs float64 `json:"time_secs"`
}

// InvalidReason records which validation gate failed for a stride.
type InvalidReason string

const (
	ReasonNone             InvalidReason = ""
	ReasonLowValidity      InvalidReason = "low_frame_validity"
	ReasonTimingOutlier    InvalidReason = "step_time_outlier"
	ReasonInsufficientKnee InvalidReason = "insufficient_knee_samples"
	ReasonROMOutOfRange    InvalidReason = "knee_rom_out_of_range"
)

// Stride is one full gait cycle bounded by two step events (a span of two
// consecutive steps).
type Stride struct {
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`

	// Bounding step events and the two step intervals inside the cycle.
	StartStep     StepEvent  `json:"start_step"`
	EndStep       StepEvent  `json:"end_step"`
	StepDurations [2]float64 `json:"step_durations"`

	// Extrapolated marks a trailing stride whose closing step was synthesized
	// from the prior step duration rather than observed.
	Extrapolated bool `json:"extrapolated"`

	Valid  bool          `json:"valid"`
	Reason InvalidReason `json:"reason,omitempty"`

	ROMLeft       float64 `json:"rom_left_deg"`
	ROMRight      float64 `json:"rom_right_deg"`
	PeakFlexLeft  float64 `json:"peak_flex_left_deg"`
	PeakFlexRight float64 `json:"peak_flex_right_deg"`

	ValidFrac float64 `json:"valid_frac"`
	Quality   float64 `json:"quality"` // [0,1]; zero when invalid
}

// Duration returns the stride duration in seconds.
func (st *Stride) Duration() float64 { return st.EndTime - st.StartTime }

// StepTime returns the mean step duration within the cycle.
func (st *Stride) StepTime() float64 { return st.Duration() / 2 }

// FeatureCount is the dimensionality of the canonical gait feature vector.
const FeatureCount = 16

// FeatureNames lists the canonical features in fixed (export) order.
var FeatureNames = [FeatureCount]string{
	"cadence_spm",
	"stride_time_s",
	"stride_time_cv",
	"step_time_asym",
	"stride_len_norm",
	"stride_amp_norm",
	"step_len_asym",
	"rom_knee_left_deg",
	"rom_knee_right_deg",
	"peak_flex_left_deg",
	"peak_flex_right_deg",
	"jerk_rms_knee_left",
	"jerk_rms_knee_right",
	"jerk_rms_trunk",
	"trunk_lean_sd_deg",
	"ankle_dist_cv",
}

// GaitFeatures is the canonical 16-dimensional feature vector plus the count
// of strides actually measured. A ValidStrideCount of zero means the result
// is empty and every feature value is NaN.
type GaitFeatures struct {
	CadenceSPM       float64 `json:"cadence_spm"`
	StrideTimeS      float64 `json:"stride_time_s"`
	StrideTimeCV     float64 `json:"stride_time_cv"`
	StepTimeAsym     float64 `json:"step_time_asym"`
	StrideLenNorm    float64 `json:"stride_len_norm"`
	StrideAmpNorm    float64 `json:"stride_amp_norm"`
	StepLenAsym      float64 `json:"step_len_asym"`
	ROMKneeLeftDeg   float64 `json:"rom_knee_left_deg"`
	ROMKneeRightDeg  float64 `json:"rom_knee_right_deg"`
	PeakFlexLeftDeg  float64 `json:"peak_flex_left_deg"`
	PeakFlexRightDeg float64 `json:"peak_flex_right_deg"`
	JerkRMSKneeLeft  float64 `json:"jerk_rms_knee_left"`
	JerkRMSKneeRight float64 `json:"jerk_rms_knee_right"`
	JerkRMSTrunk     float64 `json:"jerk_rms_trunk"`
	TrunkLeanSDDeg   float64 `json:"trunk_lean_sd_deg"`
	AnkleDistCV      float64 `json:"ankle_dist_cv"`

	ValidStrideCount int `json:"valid_stride_count"`
}

// EmptyGaitFeatures returns the sentinel-filled feature set used for every
// non-OK analysis outcome.
func EmptyGaitFeatures() GaitFeatures {
	nan := math.NaN()
	return GaitFeatures{
		CadenceSPM: nan, StrideTimeS: nan, StrideTimeCV: nan, StepTimeAsym: nan,
		StrideLenNorm: nan, StrideAmpNorm: nan, StepLenAsym: nan,
		ROMKneeLeftDeg: nan, ROMKneeRightDeg: nan,
		PeakFlexLeftDeg: nan, PeakFlexRightDeg: nan,
		JerkRMSKneeLeft: nan, JerkRMSKneeRight: nan, JerkRMSTrunk: nan,
		TrunkLeanSDDeg: nan, AnkleDistCV: nan,
		ValidStrideCount: 0,
	}
}

// MarshalJSON emits the canonical encoding with sentinel values mapped to
// zero. ValidStrideCount and the run's quality flag record missing data.
func (f GaitFeatures) MarshalJSON() ([]byte, error) {
	type plain GaitFeatures
	c := f
	c.CadenceSPM = zeroIfNaN(c.CadenceSPM)
	c.StrideTimeS = zeroIfNaN(c.StrideTimeS)
	c.StrideTimeCV = zeroIfNaN(c.StrideTimeCV)
	c.StepTimeAsym = zeroIfNaN(c.StepTimeAsym)
	c.StrideLenNorm = zeroIfNaN(c.StrideLenNorm)
	c.StrideAmpNorm = zeroIfNaN(c.StrideAmpNorm)
	c.StepLenAsym = zeroIfNaN(c.StepLenAsym)
	c.ROMKneeLeftDeg = zeroIfNaN(c.ROMKneeLeftDeg)
	c.ROMKneeRightDeg = zeroIfNaN(c.ROMKneeRightDeg)
	c.PeakFlexLeftDeg = zeroIfNaN(c.PeakFlexLeftDeg)
	c.PeakFlexRightDeg = zeroIfNaN(c.PeakFlexRightDeg)
	c.JerkRMSKneeLeft = zeroIfNaN(c.JerkRMSKneeLeft)
	c.JerkRMSKneeRight = zeroIfNaN(c.JerkRMSKneeRight)
	c.JerkRMSTrunk = zeroIfNaN(c.JerkRMSTrunk)
	c.TrunkLeanSDDeg = zeroIfNaN(c.TrunkLeanSDDeg)
	c.AnkleDistCV = zeroIfNaN(c.AnkleDistCV)
	return json.Marshal(plain(c))
}

// Vector returns the features in canonical order, aligned with FeatureNames.
func (f *GaitFeatures) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.CadenceSPM, f.StrideTimeS, f.StrideTimeCV, f.StepTimeAsym,
		f.StrideLenNorm, f.StrideAmpNorm, f.StepLenAsym,
		f.ROMKneeLeftDeg, f.ROMKneeRightDeg,
		f.PeakFlexLeftDeg, f.PeakFlexRightDeg,
		f.JerkRMSKneeLeft, f.JerkRMSKneeRight, f.JerkRMSTrunk,
		f.TrunkLeanSDDeg, f.AnkleDistCV,
	}
}

// QualityFlag is the overall outcome of one analysis pass.
type QualityFlag string

const (
	QualityOK            QualityFlag = "OK"
	QualityLowDetection  QualityFlag = "LOW_DETECTION"
	QualityNoCycles      QualityFlag = "NO_CYCLES"
	QualityUnprocessable QualityFlag = "UNPROCESSABLE"
)

// ScoringResult holds the three independent 0-100 health scores. A model
// whose descriptor or inference path is unavailable reports NaN.
type ScoringResult struct {
	Reconstruction float64 `json:"score_recon"`
	Linear         float64 `json:"score_linear"`
	Projection     float64 `json:"score_projection"`
}

// EmptyScoringResult returns a result with every model unavailable.
func EmptyScoringResult() ScoringResult {
	nan := math.NaN()
	return ScoringResult{Reconstruction: nan, Linear: nan, Projection: nan}
}

// Canonical returns the result with sentinel scores mapped to zero, the
// form used in persisted and exported JSON documents.
func (r ScoringResult) Canonical() ScoringResult {
	return ScoringResult{
		Reconstruction: zeroIfNaN(r.Reconstruction),
		Linear:         zeroIfNaN(r.Linear),
		Projection:     zeroIfNaN(r.Projection),
	}
}

// MarshalJSON emits the canonical encoding. Standard JSON has no NaN; the
// quality flag and reason record that a score was unavailable.
func (r ScoringResult) MarshalJSON() ([]byte, error) {
	type plain ScoringResult
	return json.Marshal(plain(r.Canonical()))
}

// Mean returns the advisory mean of the available scores, or NaN when no
// model produced one.
func (r ScoringResult) Mean() float64 {
	sum, n := 0.0, 0
	for _, v := range []float64{r.Reconstruction, r.Linear, r.Projection} {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// AnalysisResult is the complete outcome of one extraction pass over a
// PoseSequence.
type AnalysisResult struct {
	RunID   string `json:"run_id"`
	VideoID string `json:"video_id"`

	Quality QualityFlag `json:"quality"`
	Reason  string      `json:"reason,omitempty"`

	Direction WalkDirection `json:"direction"`
	Flipped   bool          `json:"flipped"`

	FPS           float64 `json:"fps"`
	DurationSecs  float64 `json:"duration_secs"`
	TotalFrames   int     `json:"total_frames"`
	ValidFrames   int     `json:"valid_frames"`
	DetectionRate float64 `json:"detection_rate"`

	StepMode StepMode    `json:"step_mode"`
	Steps    []StepEvent `json:"steps"`
	Strides  []Stride    `json:"strides"`

	// SelectedStrides holds the indices into Strides of the measured pair,
	// or is empty when no cycle pair was selected.
	SelectedStrides []int `json:"selected_strides,omitempty"`

	Features GaitFeatures  `json:"features"`
	Scores   ScoringResult `json:"scores"`

	// Detection carries the per-candidate traces for debugging/plotting.
	// It is not persisted.
	Detection *StepDetection `json:"-"`
}

// ValidStrideCount returns the number of strides that passed validation.
func (r *AnalysisResult) ValidStrideCount() int {
	n := 0
	for _, s := range r.Strides {
		if s.Valid {
			n++
		}
	}
	return n
}
