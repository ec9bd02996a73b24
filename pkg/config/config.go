// Package config provides configuration loading and management for
// ngireduce. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ngireduce/pkg/roi"
)

// ROIConfig is the YAML representation of a region of interest with
// inclusive bounds.
type ROIConfig struct {
	X0 int `yaml:"x0"`
	Y0 int `yaml:"y0"`
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
}

// ToROI converts the YAML rectangle to the validated value object.
func (r *ROIConfig) ToROI() (roi.ROI, error) {
	return roi.New(r.X0, r.Y0, r.X1, r.Y1)
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Data locates the input stacks, one folder per acquisition role
	Data struct {
		// SampleDir holds the stepped sample exposures
		SampleDir string `yaml:"sampleDir"`

		// OpenBeamDir holds the stepped open-beam exposures
		OpenBeamDir string `yaml:"openBeamDir"`

		// DarkFieldDir holds the detector background frames (optional)
		DarkFieldDir string `yaml:"darkFieldDir"`
	} `yaml:"data"`

	// Processing parameters
	Processing struct {
		// NormalizationROI restricts the per-frame flat-field mean;
		// nil means the whole frame
		NormalizationROI *ROIConfig `yaml:"normalizationRoi,omitempty"`

		// CropROI, when set, crops sample and open-beam frames
		CropROI *ROIConfig `yaml:"cropRoi,omitempty"`

		// OscillationROI restricts the oscillation mean; nil means the
		// whole frame
		OscillationROI *ROIConfig `yaml:"oscillationRoi,omitempty"`

		// BinSize rebins frames by block mean; 1 disables binning
		BinSize int `yaml:"binSize"`

		// NumberPeriods is the number (or fraction) of grating periods
		// stepped over the acquisition
		NumberPeriods float64 `yaml:"numberPeriods"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is where the derived maps are written
		Dir string `yaml:"dir"`

		// SaveOscillation also writes the oscillation curves as CSV
		SaveOscillation bool `yaml:"saveOscillation"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.BinSize = 1
	cfg.Processing.NumberPeriods = 1

	cfg.Output.Dir = "interferometry_maps"
	cfg.Output.SaveOscillation = true
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
