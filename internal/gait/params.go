package gait

// SignalParams configures signal conditioning.
type SignalParams struct {
	MinLandmarkConfidence float64 // minimum per-landmark confidence for a valid frame
	MaxGapBridge          int     // longest gap (frames) bridged by interpolation
	EMAAlpha              float64 // smoothing factor for derived signals
}

// StepParams configures gait-event detection.
type StepParams struct {
	MinStepLagSecs     float64 // lower bound of the plausible step period
	MaxStepLagSecs     float64 // upper bound of the plausible step period
	DistanceFactor     float64 // min peak separation = period * DistanceFactor
	MinPeakSeparation  int     // floor on peak separation (frames)
	ProminenceFactor   float64 // min prominence = signal stddev * ProminenceFactor
	ProminenceFallback float64 // fixed prominence when the signal has no variance
	MinPeaks           int     // candidates under this peak count are rejected
	MinSelectScore     float64 // reliability threshold for candidate selection
	VelocityEMAAlpha   float64 // light smoothing applied to the ankle-velocity candidate
}

// StrideParams configures stride validation and quality scoring.
type StrideParams struct {
	MinValidFrac      float64 // gate 1: minimum fraction of valid frames
	StepTimeTolerance float64 // gate 2: max fractional deviation from the median step time
	MinKneeSamples    int     // gate 3: minimum valid knee-angle samples per leg
	ROMMinDeg         float64 // gate 4: plausible knee range-of-motion window
	ROMMaxDeg         float64
	RobustROM         bool // use the p5/p95 spread instead of max-min
}

// ROIParams configures the adaptive region-of-interest controller.
type ROIParams struct {
	CenterAlpha        float64 // EMA factor for the crop center
	ExpandRate         float64 // fast size growth toward a larger target
	ShrinkRate         float64 // slow size decay toward a smaller target
	MarginFactor       float64 // crop margin in TRACK
	ExpandMarginFactor float64 // crop margin in EXPAND

	AcquireStableFrames  int     // consecutive detections required to leave ACQUIRE
	MaxConsecFailures    int     // consecutive failures forcing TRACK -> REACQUIRE
	MinTrackDwellFrames  int     // frames before rolling-window triggers apply in TRACK
	WindowSize           int     // rolling window length (frames)
	FailureRateThreshold float64 // rolling failure rate forcing TRACK -> EXPAND
	FarLegConfThreshold  float64 // per-frame far-leg confidence floor
	FarLegDegradedFrac   float64 // window fraction below the floor forcing EXPAND
	ExpandBurstFrames    int     // bounded burst length in EXPAND
	ReacquireBurstFrames int     // bounded burst length in REACQUIRE
	RecoveryWindow       int     // trailing frames examined for recovery
	RecoveryMinGood      int     // detections required within RecoveryWindow
}

// AnalysisParams bundles every tuning knob of one extraction pass.
type AnalysisParams struct {
	MinFrames        int     // sequences shorter than this are UNPROCESSABLE
	MinStepEvents    int     // fewer detected steps than this is NO_CYCLES
	MinDetectionRate float64 // overall valid-frame rate below this is LOW_DETECTION

	Signal SignalParams
	Step   StepParams
	Stride StrideParams
	ROI    ROIParams
}

// DefaultAnalysisParams returns the compiled-in defaults. Values may be
// overridden through config.TuningConfig (see AnalysisParamsFromTuning).
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		MinFrames:        30,
		MinStepEvents:    4,
		MinDetectionRate: 0.5,
		Signal: SignalParams{
			MinLandmarkConfidence: 0.5,
			MaxGapBridge:          5,
			EMAAlpha:              0.35,
		},
		Step: StepParams{
			MinStepLagSecs:     0.25,
			MaxStepLagSecs:     1.2,
			DistanceFactor:     0.7,
			MinPeakSeparation:  5,
			ProminenceFactor:   0.5,
			ProminenceFallback: 0.01,
			MinPeaks:           4,
			MinSelectScore:     0.2,
			VelocityEMAAlpha:   0.5,
		},
		Stride: StrideParams{
			MinValidFrac:      0.6,
			StepTimeTolerance: 0.3,
			MinKneeSamples:    5,
			ROMMinDeg:         10,
			ROMMaxDeg:         90,
			RobustROM:         true,
		},
		ROI: ROIParams{
			CenterAlpha:          0.4,
			ExpandRate:           0.5,
			ShrinkRate:           0.1,
			MarginFactor:         1.4,
			ExpandMarginFactor:   1.9,
			AcquireStableFrames:  10,
			MaxConsecFailures:    5,
			MinTrackDwellFrames:  30,
			WindowSize:           30,
			FailureRateThreshold: 0.3,
			FarLegConfThreshold:  0.5,
			FarLegDegradedFrac:   0.5,
			ExpandBurstFrames:    15,
			ReacquireBurstFrames: 15,
			RecoveryWindow:       5,
			RecoveryMinGood:      4,
		},
	}
}
