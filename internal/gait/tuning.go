package gait

import (
	"github.com/gaitlab/stride.report/internal/config"
)

// AnalysisParamsFromTuning materializes engine parameters from a loaded
// tuning document, starting from the compiled defaults and overriding only
// the fields the document sets.
func AnalysisParamsFromTuning(cfg *config.TuningConfig) AnalysisParams {
	p := DefaultAnalysisParams()
	if cfg == nil {
		return p
	}

	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setInt(&p.MinFrames, cfg.MinFrames)
	setInt(&p.MinStepEvents, cfg.MinStepEvents)
	setFloat(&p.MinDetectionRate, cfg.MinDetectionRate)

	setFloat(&p.Signal.MinLandmarkConfidence, cfg.MinLandmarkConfidence)
	setInt(&p.Signal.MaxGapBridge, cfg.MaxGapBridge)
	setFloat(&p.Signal.EMAAlpha, cfg.EMAAlpha)

	setFloat(&p.Step.MinStepLagSecs, cfg.MinStepLagSecs)
	setFloat(&p.Step.MaxStepLagSecs, cfg.MaxStepLagSecs)
	setFloat(&p.Step.DistanceFactor, cfg.DistanceFactor)
	setFloat(&p.Step.ProminenceFactor, cfg.ProminenceFactor)
	setFloat(&p.Step.MinSelectScore, cfg.MinSelectScore)

	setFloat(&p.Stride.MinValidFrac, cfg.MinValidFrac)
	setFloat(&p.Stride.StepTimeTolerance, cfg.StepTimeTolerance)
	setInt(&p.Stride.MinKneeSamples, cfg.MinKneeSamples)
	setFloat(&p.Stride.ROMMinDeg, cfg.ROMMinDeg)
	setFloat(&p.Stride.ROMMaxDeg, cfg.ROMMaxDeg)
	if cfg.RobustROM != nil {
		p.Stride.RobustROM = *cfg.RobustROM
	}

	setInt(&p.ROI.AcquireStableFrames, cfg.ROIAcquireStableFrames)
	setInt(&p.ROI.MaxConsecFailures, cfg.ROIMaxConsecFailures)
	setInt(&p.ROI.WindowSize, cfg.ROIWindowSize)
	setFloat(&p.ROI.FailureRateThreshold, cfg.ROIFailureRateThreshold)
	setFloat(&p.ROI.MarginFactor, cfg.ROIMarginFactor)
	setFloat(&p.ROI.ExpandMarginFactor, cfg.ROIExpandMarginFactor)

	return p
}
