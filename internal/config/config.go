// Package config provides the pipeline configuration for Helioscope.
// One PipelineConfig is passed explicitly to every estimation run; nothing here is global state.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// PipelineConfig holds every tunable of an estimation run.
type PipelineConfig struct {
	// MinRegionArea is the smallest usable roof area in m²
	MinRegionArea float64 `yaml:"minRegionArea" json:"min_region_area"`
	// MinRegionPixels discards connected components smaller than this
	MinRegionPixels int `yaml:"minRegionPixels" json:"min_region_pixels"`
	// SegmentationThreshold is the rooftop probability cut-off in (0,1]
	SegmentationThreshold float64 `yaml:"segmentationThreshold" json:"segmentation_threshold"`
	// PanelEfficiency is the module conversion efficiency in (0,1]
	PanelEfficiency float64 `yaml:"panelEfficiency" json:"panel_efficiency"`
	// PerformanceRatio derates for inverter, soiling and wiring losses
	PerformanceRatio float64 `yaml:"performanceRatio" json:"performance_ratio"`
	// EmissionsFactor in kg CO2e/kWh (0 = location default)
	EmissionsFactor float64 `yaml:"emissionsFactor" json:"emissions_factor"`
	// InstalledCostPerWatt in $/W (0 = location default)
	InstalledCostPerWatt float64 `yaml:"installedCostPerWatt" json:"installed_cost_per_watt"`
	// WattageDensityPerM2 is the installed capacity per m² of roof
	WattageDensityPerM2 float64 `yaml:"wattageDensityPerM2" json:"wattage_density_per_m2"`
	// ElectricityPrice in $/kWh (0 = location default)
	ElectricityPrice float64 `yaml:"electricityPrice" json:"electricity_price"`
	// IncentiveFraction is the share of the gross cost covered by incentives
	IncentiveFraction float64 `yaml:"incentiveFraction" json:"incentive_fraction"`
	// MaxShadedFraction flags a region as shaded at or above this share of shadow pixels
	MaxShadedFraction float64 `yaml:"maxShadedFraction" json:"max_shaded_fraction"`
	// ShadowLuminanceRatio marks a pixel as shadow below this ratio of the image median luminance
	ShadowLuminanceRatio float64 `yaml:"shadowLuminanceRatio" json:"shadow_luminance_ratio"`
	// InferenceTimeout bounds one model call, including the wait for a slot
	InferenceTimeout time.Duration `yaml:"inferenceTimeout" json:"inference_timeout"`
	// InferenceConcurrency is the number of model calls allowed at once
	InferenceConcurrency int `yaml:"inferenceConcurrency" json:"inference_concurrency"`
	// BatchConcurrency is the number of images estimated in parallel
	BatchConcurrency int `yaml:"batchConcurrency" json:"batch_concurrency"`
}

// DefaultPipelineConfig returns a PipelineConfig with sensible defaults
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		MinRegionArea:         10,
		MinRegionPixels:       16,
		SegmentationThreshold: 0.5,
		PanelEfficiency:       0.20,
		PerformanceRatio:      0.80,
		WattageDensityPerM2:   200,
		MaxShadedFraction:     0.5,
		ShadowLuminanceRatio:  0.5,
		InferenceTimeout:      60 * time.Second,
		InferenceConcurrency:  2,
		BatchConcurrency:      4,
	}
}

func invalid(field string, v any, rule string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidConfig, field, v, rule)
}

func bad(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// fraction reports whether v is in (0,1].
func fraction(v float64) bool { return v > 0 && v <= 1 }

// Validate checks that the configuration is valid
func (c *PipelineConfig) Validate() error {
	switch {
	case bad(c.MinRegionArea) || c.MinRegionArea < 0:
		return invalid("minRegionArea", c.MinRegionArea, "must be >= 0")
	case c.MinRegionPixels < 1:
		return invalid("minRegionPixels", c.MinRegionPixels, "must be >= 1")
	case !fraction(c.SegmentationThreshold):
		return invalid("segmentationThreshold", c.SegmentationThreshold, "must be in (0,1]")
	case !fraction(c.PanelEfficiency):
		return invalid("panelEfficiency", c.PanelEfficiency, "must be in (0,1]")
	case !fraction(c.PerformanceRatio):
		return invalid("performanceRatio", c.PerformanceRatio, "must be in (0,1]")
	case bad(c.EmissionsFactor) || c.EmissionsFactor < 0:
		return invalid("emissionsFactor", c.EmissionsFactor, "must be >= 0")
	case bad(c.InstalledCostPerWatt) || c.InstalledCostPerWatt < 0:
		return invalid("installedCostPerWatt", c.InstalledCostPerWatt, "must be >= 0")
	case bad(c.WattageDensityPerM2) || c.WattageDensityPerM2 <= 0:
		return invalid("wattageDensityPerM2", c.WattageDensityPerM2, "must be > 0")
	case bad(c.ElectricityPrice) || c.ElectricityPrice < 0:
		return invalid("electricityPrice", c.ElectricityPrice, "must be >= 0")
	case !(c.IncentiveFraction >= 0 && c.IncentiveFraction <= 1):
		return invalid("incentiveFraction", c.IncentiveFraction, "must be in [0,1]")
	case !fraction(c.MaxShadedFraction):
		return invalid("maxShadedFraction", c.MaxShadedFraction, "must be in (0,1]")
	case !fraction(c.ShadowLuminanceRatio):
		return invalid("shadowLuminanceRatio", c.ShadowLuminanceRatio, "must be in (0,1]")
	case c.InferenceTimeout < 0:
		return invalid("inferenceTimeout", c.InferenceTimeout, "must be >= 0")
	case c.InferenceConcurrency < 1:
		return invalid("inferenceConcurrency", c.InferenceConcurrency, "must be >= 1")
	case c.BatchConcurrency < 1:
		return invalid("batchConcurrency", c.BatchConcurrency, "must be >= 1")
	}
	return nil
}

// Clone returns a copy that can be modified without affecting c.
func (c *PipelineConfig) Clone() *PipelineConfig {
	out := *c
	return &out
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *PipelineConfig) Merge(other *PipelineConfig) {
	if other == nil {
		return
	}
	mergeFloat(&c.MinRegionArea, other.MinRegionArea)
	mergeInt(&c.MinRegionPixels, other.MinRegionPixels)
	mergeFloat(&c.SegmentationThreshold, other.SegmentationThreshold)
	mergeFloat(&c.PanelEfficiency, other.PanelEfficiency)
	mergeFloat(&c.PerformanceRatio, other.PerformanceRatio)
	mergeFloat(&c.EmissionsFactor, other.EmissionsFactor)
	mergeFloat(&c.InstalledCostPerWatt, other.InstalledCostPerWatt)
	mergeFloat(&c.WattageDensityPerM2, other.WattageDensityPerM2)
	mergeFloat(&c.ElectricityPrice, other.ElectricityPrice)
	mergeFloat(&c.IncentiveFraction, other.IncentiveFraction)
	mergeFloat(&c.MaxShadedFraction, other.MaxShadedFraction)
	mergeFloat(&c.ShadowLuminanceRatio, other.ShadowLuminanceRatio)
	if other.InferenceTimeout != 0 {
		c.InferenceTimeout = other.InferenceTimeout
	}
	mergeInt(&c.InferenceConcurrency, other.InferenceConcurrency)
	mergeInt(&c.BatchConcurrency, other.BatchConcurrency)
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultPipelineConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a YAML file
func (c *PipelineConfig) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
