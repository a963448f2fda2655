package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration document for the gait engine. All
// fields are optional pointers so a partial JSON file overrides only what it
// names; Get* accessors supply compiled defaults for the rest.
type TuningConfig struct {
	// Sequence gates
	MinFrames        *int     `json:"min_frames,omitempty"`
	MinStepEvents    *int     `json:"min_step_events,omitempty"`
	MinDetectionRate *float64 `json:"min_detection_rate,omitempty"`

	// Signal conditioning
	MinLandmarkConfidence *float64 `json:"min_landmark_confidence,omitempty"`
	MaxGapBridge          *int     `json:"max_gap_bridge,omitempty"`
	EMAAlpha              *float64 `json:"ema_alpha,omitempty"`

	// Step detection
	MinStepLagSecs   *float64 `json:"min_step_lag_secs,omitempty"`
	MaxStepLagSecs   *float64 `json:"max_step_lag_secs,omitempty"`
	DistanceFactor   *float64 `json:"distance_factor,omitempty"`
	ProminenceFactor *float64 `json:"prominence_factor,omitempty"`
	MinSelectScore   *float64 `json:"min_select_score,omitempty"`

	// Stride validation
	MinValidFrac      *float64 `json:"min_valid_frac,omitempty"`
	StepTimeTolerance *float64 `json:"step_time_tolerance,omitempty"`
	MinKneeSamples    *int     `json:"min_knee_samples,omitempty"`
	ROMMinDeg         *float64 `json:"rom_min_deg,omitempty"`
	ROMMaxDeg         *float64 `json:"rom_max_deg,omitempty"`
	RobustROM         *bool    `json:"robust_rom,omitempty"`

	// ROI controller
	ROIAcquireStableFrames  *int     `json:"roi_acquire_stable_frames,omitempty"`
	ROIMaxConsecFailures    *int     `json:"roi_max_consec_failures,omitempty"`
	ROIWindowSize           *int     `json:"roi_window_size,omitempty"`
	ROIFailureRateThreshold *float64 `json:"roi_failure_rate_threshold,omitempty"`
	ROIMarginFactor         *float64 `json:"roi_margin_factor,omitempty"`
	ROIExpandMarginFactor   *float64 `json:"roi_expand_margin_factor,omitempty"`

	// Scoring
	ModelDir *string `json:"model_dir,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset. Use
// LoadTuningConfig to populate one from disk.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values fall within sane ranges.
func (c *TuningConfig) Validate() error {
	checkUnit := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
		return nil
	}
	if err := checkUnit("min_detection_rate", c.MinDetectionRate); err != nil {
		return err
	}
	if err := checkUnit("min_landmark_confidence", c.MinLandmarkConfidence); err != nil {
		return err
	}
	if err := checkUnit("ema_alpha", c.EMAAlpha); err != nil {
		return err
	}
	if err := checkUnit("min_valid_frac", c.MinValidFrac); err != nil {
		return err
	}
	if err := checkUnit("roi_failure_rate_threshold", c.ROIFailureRateThreshold); err != nil {
		return err
	}
	if c.MinFrames != nil && *c.MinFrames < 1 {
		return fmt.Errorf("min_frames must be positive, got %d", *c.MinFrames)
	}
	if c.MaxGapBridge != nil && *c.MaxGapBridge < 0 {
		return fmt.Errorf("max_gap_bridge must be non-negative, got %d", *c.MaxGapBridge)
	}
	if c.MinStepLagSecs != nil && c.MaxStepLagSecs != nil && *c.MaxStepLagSecs <= *c.MinStepLagSecs {
		return fmt.Errorf("max_step_lag_secs (%f) must exceed min_step_lag_secs (%f)",
			*c.MaxStepLagSecs, *c.MinStepLagSecs)
	}
	if c.ROMMinDeg != nil && c.ROMMaxDeg != nil && *c.ROMMaxDeg <= *c.ROMMinDeg {
		return fmt.Errorf("rom_max_deg (%f) must exceed rom_min_deg (%f)", *c.ROMMaxDeg, *c.ROMMinDeg)
	}
	return nil
}

// GetModelDir returns the scoring-model directory or the default.
func (c *TuningConfig) GetModelDir() string {
	if c.ModelDir == nil || *c.ModelDir == "" {
		return "models"
	}
	return *c.ModelDir
}
