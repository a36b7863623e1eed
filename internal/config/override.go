package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// EnvPrefix is prepended to the upper snake case of a key, e.g. HELIOSCOPE_PANEL_EFFICIENCY.
const EnvPrefix = "HELIOSCOPE_"

// Keys lists every settable key in the order they are documented.
var Keys = []string{
	"minRegionArea", "minRegionPixels", "segmentationThreshold",
	"panelEfficiency", "performanceRatio", "emissionsFactor",
	"installedCostPerWatt", "wattageDensityPerM2", "electricityPrice",
	"incentiveFraction", "maxShadedFraction", "shadowLuminanceRatio",
	"inferenceTimeout", "inferenceConcurrency", "batchConcurrency",
}

// Set assigns one field by its YAML key. Unlike Merge, an explicit zero is applied.
func (c *PipelineConfig) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "minRegionArea":
		return setFloat(key, value, &c.MinRegionArea)
	case "minRegionPixels":
		return setInt(key, value, &c.MinRegionPixels)
	case "segmentationThreshold":
		return setFloat(key, value, &c.SegmentationThreshold)
	case "panelEfficiency":
		return setFloat(key, value, &c.PanelEfficiency)
	case "performanceRatio":
		return setFloat(key, value, &c.PerformanceRatio)
	case "emissionsFactor":
		return setFloat(key, value, &c.EmissionsFactor)
	case "installedCostPerWatt":
		return setFloat(key, value, &c.InstalledCostPerWatt)
	case "wattageDensityPerM2":
		return setFloat(key, value, &c.WattageDensityPerM2)
	case "electricityPrice":
		return setFloat(key, value, &c.ElectricityPrice)
	case "incentiveFraction":
		return setFloat(key, value, &c.IncentiveFraction)
	case "maxShadedFraction":
		return setFloat(key, value, &c.MaxShadedFraction)
	case "shadowLuminanceRatio":
		return setFloat(key, value, &c.ShadowLuminanceRatio)
	case "inferenceTimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, value, err)
		}
		c.InferenceTimeout = d
		return nil
	case "inferenceConcurrency":
		return setInt(key, value, &c.InferenceConcurrency)
	case "batchConcurrency":
		return setInt(key, value, &c.BatchConcurrency)
	}
	return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
}

func setFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, value)
	}
	*dst = v
	return nil
}

func setInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	*dst = v
	return nil
}

// EnvName returns the environment variable for a key.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ApplyEnv overrides fields from HELIOSCOPE_* environment variables that are set.
func (c *PipelineConfig) ApplyEnv() error {
	return c.applyLookup(os.LookupEnv)
}

func (c *PipelineConfig) applyLookup(lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		if v, ok := lookup(EnvName(key)); ok && v != "" {
			if err := c.Set(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load returns the defaults, overlaid by the YAML file at path (if non-empty) and the environment, then validated.
func Load(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
