package gait

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/gaitlab/stride.report/internal/monitoring"
)

// ModelKind identifies one of the three independent scoring models.
type ModelKind string

const (
	ModelReconstruction ModelKind = "reconstruction"
	ModelLinear         ModelKind = "linear"
	ModelProjection     ModelKind = "projection"
)

// Descriptor file names looked up inside the model directory.
const (
	reconDescriptorFile      = "recon.json"
	linearDescriptorFile     = "linear.json"
	projectionDescriptorFile = "projection.json"
)

// maxDescriptorBytes bounds descriptor documents the same way tuning config
// files are bounded.
const maxDescriptorBytes = 4 * 1024 * 1024

// ClinicalMapping converts a model's raw score into a 0-100 health score by
// piecewise-linear interpolation between clinician-derived breakpoints.
type ClinicalMapping struct {
	// LowerIsBetter indicates that smaller raw values are healthier; the
	// anchor sequence must fall monotonically when set and rise otherwise.
	LowerIsBetter bool      `json:"lower_is_better"`
	Breakpoints   []float64 `json:"breakpoints"`
	Anchors       []float64 `json:"anchors"` // one more entry than Breakpoints
}

// Validate checks the structural invariants of the mapping.
func (m *ClinicalMapping) Validate() error {
	if len(m.Breakpoints) == 0 {
		return fmt.Errorf("clinical mapping requires at least one breakpoint")
	}
	if len(m.Anchors) != len(m.Breakpoints)+1 {
		return fmt.Errorf("clinical mapping requires %d anchors for %d breakpoints, got %d",
			len(m.Breakpoints)+1, len(m.Breakpoints), len(m.Anchors))
	}
	for i := 1; i < len(m.Breakpoints); i++ {
		if m.Breakpoints[i] <= m.Breakpoints[i-1] {
			return fmt.Errorf("clinical mapping breakpoints must be strictly ascending")
		}
	}
	for i, h := range m.Anchors {
		if h < 0 || h > 100 {
			return fmt.Errorf("clinical mapping anchor %d out of range [0,100]: %v", i, h)
		}
	}
	for i := 1; i < len(m.Anchors); i++ {
		if m.LowerIsBetter && m.Anchors[i] > m.Anchors[i-1] {
			return fmt.Errorf("anchors must not rise for a lower-is-better mapping")
		}
		if !m.LowerIsBetter && m.Anchors[i] < m.Anchors[i-1] {
			return fmt.Errorf("anchors must not fall for a higher-is-better mapping")
		}
	}
	return nil
}

// Map converts a raw model score to a 0-100 health score. The anchor curve
// pins Anchors[0] at raw 0 and Anchors[i] at Breakpoints[i-1]; values beyond
// the last breakpoint extrapolate along the terminal segment but are bounded
// so the result never crosses past the terminal anchor.
func (m *ClinicalMapping) Map(raw float64) float64 {
	if math.IsNaN(raw) {
		return math.NaN()
	}
	xs := make([]float64, 0, len(m.Breakpoints)+1)
	xs = append(xs, 0)
	xs = append(xs, m.Breakpoints...)
	hs := m.Anchors

	last := len(xs) - 1
	switch {
	case raw <= xs[0]:
		return clampScore(hs[0])
	case raw >= xs[last]:
		slope := (hs[last] - hs[last-1]) / (xs[last] - xs[last-1])
		v := hs[last] + slope*(raw-xs[last])
		// Bounded extrapolation: the terminal anchor is a hard stop.
		if (slope < 0 && v < hs[last]) || (slope > 0 && v > hs[last]) {
			v = hs[last]
		}
		return clampScore(v)
	}
	for i := 1; i <= last; i++ {
		if raw <= xs[i] {
			t := (raw - xs[i-1]) / (xs[i] - xs[i-1])
			return clampScore(hs[i-1] + t*(hs[i]-hs[i-1]))
		}
	}
	return clampScore(hs[last])
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Standardization holds the per-dimension feature scaling of one model.
type Standardization struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// ModelDescriptor is the self-contained document defining one scoring model:
// standardization, model-specific parameters, and the clinical calibration
// curve. A descriptor with no clinical mapping may carry a reference
// distribution for the deprecated percentile normalization instead.
type ModelDescriptor struct {
	Name            string          `json:"name"`
	Kind            ModelKind       `json:"kind"`
	Standardization Standardization `json:"standardization"`

	// Reconstruction model parameters.
	Encoder     [][]float64 `json:"encoder,omitempty"`
	EncoderBias []float64   `json:"encoder_bias,omitempty"`
	Decoder     [][]float64 `json:"decoder,omitempty"`
	DecoderBias []float64   `json:"decoder_bias,omitempty"`

	// Linear model parameters.
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`

	// Projection model parameters: basis directions as rows.
	Basis [][]float64 `json:"basis,omitempty"`

	Clinical            *ClinicalMapping `json:"clinical_mapping,omitempty"`
	PercentileReference []float64        `json:"percentile_reference,omitempty"`
}

// Validate checks the descriptor against its declared kind.
func (d *ModelDescriptor) Validate() error {
	if len(d.Standardization.Mean) != FeatureCount || len(d.Standardization.Scale) != FeatureCount {
		return fmt.Errorf("model %q: standardization must carry %d means and scales", d.Name, FeatureCount)
	}
	switch d.Kind {
	case ModelReconstruction:
		if len(d.Encoder) == 0 || len(d.Decoder) == 0 {
			return fmt.Errorf("model %q: reconstruction model requires encoder and decoder weights", d.Name)
		}
	case ModelLinear:
		if len(d.Coefficients) != FeatureCount {
			return fmt.Errorf("model %q: linear model requires %d coefficients", d.Name, FeatureCount)
		}
	case ModelProjection:
		if len(d.Basis) == 0 {
			return fmt.Errorf("model %q: projection model requires at least one basis direction", d.Name)
		}
		for i, row := range d.Basis {
			if len(row) != FeatureCount {
				return fmt.Errorf("model %q: basis row %d has %d entries, want %d", d.Name, i, len(row), FeatureCount)
			}
		}
	default:
		return fmt.Errorf("model %q: unknown kind %q", d.Name, d.Kind)
	}
	if d.Clinical != nil {
		if err := d.Clinical.Validate(); err != nil {
			return fmt.Errorf("model %q: %w", d.Name, err)
		}
	} else if len(d.PercentileReference) == 0 {
		return fmt.Errorf("model %q: descriptor carries neither a clinical mapping nor a percentile reference", d.Name)
	}
	return nil
}

// LoadModelDescriptor reads and validates a descriptor document.
func LoadModelDescriptor(path string) (*ModelDescriptor, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("model descriptor must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model descriptor: %w", err)
	}
	if info.Size() > maxDescriptorBytes {
		return nil, fmt.Errorf("model descriptor too large: %d bytes (max %d)", info.Size(), maxDescriptorBytes)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model descriptor: %w", err)
	}
	var desc ModelDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse model descriptor JSON: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model descriptor: %w", err)
	}
	return &desc, nil
}

// scoreModel binds a descriptor to its inference path.
type scoreModel struct {
	desc *ModelDescriptor
	rec  Reconstructor // reconstruction kind only
}

// Scorer standardizes a feature vector and applies the three independent
// scoring models. A model whose descriptor or inference path is unavailable
// contributes a sentinel score without affecting the other two.
type Scorer struct {
	recon      *scoreModel
	linear     *scoreModel
	projection *scoreModel
}

// NewScorer loads the three model descriptors from modelDir. Missing or
// malformed descriptors degrade that one model to unavailable.
func NewScorer(modelDir string) *Scorer {
	s := &Scorer{}
	load := func(file string, want ModelKind) *scoreModel {
		desc, err := LoadModelDescriptor(filepath.Join(modelDir, file))
		if err != nil {
			monitoring.Logf("gait: scoring model %s unavailable: %v", file, err)
			return nil
		}
		if desc.Kind != want {
			monitoring.Logf("gait: scoring model %s has kind %q, want %q; skipping", file, desc.Kind, want)
			return nil
		}
		return &scoreModel{desc: desc}
	}
	s.recon = load(reconDescriptorFile, ModelReconstruction)
	s.linear = load(linearDescriptorFile, ModelLinear)
	s.projection = load(projectionDescriptorFile, ModelProjection)
	if s.recon != nil {
		rec, err := NewTanhAutoencoder(s.recon.desc)
		if err != nil {
			monitoring.Logf("gait: reconstruction inference unavailable: %v", err)
			s.recon = nil
		} else {
			s.recon.rec = rec
		}
	}
	return s
}

// NewScorerFromDescriptors wires a scorer from in-memory descriptors; any
// nil descriptor leaves that model unavailable. The reconstruction model's
// inference collaborator may be supplied directly, otherwise the descriptor's
// own weights are used.
func NewScorerFromDescriptors(recon, linear, projection *ModelDescriptor, rec Reconstructor) (*Scorer, error) {
	s := &Scorer{}
	if recon != nil {
		if err := recon.Validate(); err != nil {
			return nil, err
		}
		if rec == nil {
			var err error
			rec, err = NewTanhAutoencoder(recon)
			if err != nil {
				return nil, err
			}
		}
		s.recon = &scoreModel{desc: recon, rec: rec}
	}
	if linear != nil {
		if err := linear.Validate(); err != nil {
			return nil, err
		}
		s.linear = &scoreModel{desc: linear}
	}
	if projection != nil {
		if err := projection.Validate(); err != nil {
			return nil, err
		}
		s.projection = &scoreModel{desc: projection}
	}
	return s, nil
}

// Score standardizes the feature vector and runs every available model.
func (s *Scorer) Score(f GaitFeatures) ScoringResult {
	out := EmptyScoringResult()
	vec := f.Vector()
	if s.recon != nil {
		out.Reconstruction = s.recon.health(vec)
	}
	if s.linear != nil {
		out.Linear = s.linear.health(vec)
	}
	if s.projection != nil {
		out.Projection = s.projection.health(vec)
	}
	return out
}

// health computes the model's raw score and maps it to 0-100.
func (m *scoreModel) health(vec [FeatureCount]float64) float64 {
	z := standardize(vec, m.desc.Standardization)
	raw, err := m.raw(z)
	if err != nil {
		monitoring.Logf("gait: scoring model %q inference failed: %v", m.desc.Name, err)
		return math.NaN()
	}
	if m.desc.Clinical != nil {
		return m.desc.Clinical.Map(raw)
	}
	if len(m.desc.PercentileReference) > 0 {
		return percentileScore(raw, m.desc.PercentileReference, m.desc.LowerIsBetterFallback())
	}
	return math.NaN()
}

func (m *scoreModel) raw(z []float64) (float64, error) {
	switch m.desc.Kind {
	case ModelReconstruction:
		recon, err := m.rec.Reconstruct(z)
		if err != nil {
			return 0, err
		}
		if len(recon) != len(z) {
			return 0, fmt.Errorf("reconstruction returned %d values, want %d", len(recon), len(z))
		}
		return meanSquaredError(z, recon), nil
	case ModelLinear:
		sum := m.desc.Intercept
		for i, c := range m.desc.Coefficients {
			sum += c * z[i]
		}
		return sum, nil
	case ModelProjection:
		recon := projectReconstruct(z, m.desc.Basis)
		return meanSquaredError(z, recon), nil
	}
	return 0, fmt.Errorf("unknown model kind %q", m.desc.Kind)
}

// LowerIsBetterFallback reports the monotonicity direction used by the
// deprecated percentile normalization. Error-style raw scores (both
// reconstruction variants) are lower-is-better; a linear raw score follows
// its clinical convention and defaults to lower-is-better as well.
func (d *ModelDescriptor) LowerIsBetterFallback() bool {
	if d.Clinical != nil {
		return d.Clinical.LowerIsBetter
	}
	return true
}

// standardize applies (x-mean)/scale per dimension, substituting zero for
// sentinel inputs before scaling.
func standardize(vec [FeatureCount]float64, st Standardization) []float64 {
	z := make([]float64, FeatureCount)
	for i := 0; i < FeatureCount; i++ {
		v := vec[i]
		if math.IsNaN(v) {
			v = 0
		}
		scale := st.Scale[i]
		if scale == 0 {
			scale = 1
		}
		z[i] = (v - st.Mean[i]) / scale
	}
	return z
}

func meanSquaredError(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}

// percentileScore is the deprecated fallback normalization: the raw score's
// percentile rank within the descriptor's reference distribution.
func percentileScore(raw float64, ref []float64, lowerIsBetter bool) float64 {
	sorted := make([]float64, len(ref))
	copy(sorted, ref)
	sort.Float64s(sorted)
	below := sort.SearchFloat64s(sorted, raw)
	pct := 100 * float64(below) / float64(len(sorted))
	if lowerIsBetter {
		return clampScore(100 - pct)
	}
	return clampScore(pct)
}
