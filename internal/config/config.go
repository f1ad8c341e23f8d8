package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level stripe-csv.yaml configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Log      LogConfig      `yaml:"log"`
}

// AnalysisConfig controls folding and output ordering.
type AnalysisConfig struct {
	Currency   string `yaml:"currency"`    // expected Currency column value
	SortOutput bool   `yaml:"sort_output"` // order output by account ID
}

// LogConfig controls the run log. An empty Dir disables it.
type LogConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Load reads a stripe-csv.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Analysis.Currency == "" {
		cfg.Analysis.Currency = "eur"
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Currency:   "eur",
			SortOutput: false,
		},
	}
}
