// Package config loads the externally adjustable surface of the engine:
// per-method resolution confidences, concordance tiers and thresholds, the
// keyword-boost dictionary, and matching options. All values are defaults
// calibrated against one reference dataset; callers recalibrating for a
// different source/target pair override them here, not in code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taxonaut/concord/pkg/concord/internalerr"
	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/similarity"
)

// Matching holds options for concordance runs.
type Matching struct {
	TopN             int    `yaml:"top_n"`
	Workers          int    `yaml:"workers"`
	AlgorithmVersion string `yaml:"algorithm_version"`
}

// File is the engine configuration artifact.
type File struct {
	Confidence      resolve.Confidences `yaml:"confidence"`
	AcceptThreshold float64             `yaml:"accept_threshold"`
	Tiers           match.Tiers         `yaml:"tiers"`
	Matching        Matching            `yaml:"matching"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Confidence:      resolve.DefaultConfidences(),
		AcceptThreshold: resolve.DefaultAcceptThreshold,
		Tiers:           match.DefaultTiers(),
		Matching: Matching{
			TopN:             5,
			Workers:          4,
			AlgorithmVersion: match.DefaultAlgorithmVersion,
		},
	}
}

// Validate checks structural sanity of a configuration.
func (f File) Validate() error {
	if f.AcceptThreshold < 0 || f.AcceptThreshold > 1 {
		return fmt.Errorf("%w: accept_threshold %.2f outside [0,1]", internalerr.ErrInvalidConfig, f.AcceptThreshold)
	}
	t := f.Tiers
	if t.Exact.Threshold < t.High.Threshold || t.High.Threshold < t.Medium.Threshold || t.Medium.Threshold < t.Low.Threshold {
		return fmt.Errorf("%w: tier thresholds must be non-increasing from exact to low", internalerr.ErrInvalidConfig)
	}
	if f.Matching.TopN < 0 || f.Matching.Workers < 0 {
		return fmt.Errorf("%w: matching top_n and workers must not be negative", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Load reads an engine configuration from a YAML file. Absent sections keep
// their defaults.
func Load(path string) (File, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// boostFile is the on-disk shape of the keyword-boost dictionary.
//
// Format:
//
//	cap: 1.0
//	keywords:
//	  software:
//	    IT: 0.6
//	  programmer:
//	    IT: 0.6
type boostFile struct {
	Cap      float64                       `yaml:"cap"`
	Keywords map[string]map[string]float64 `yaml:"keywords"`
}

// LoadBoost reads a keyword-boost dictionary from a YAML file.
func LoadBoost(path string) (similarity.BoostTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return similarity.BoostTable{}, err
	}
	var bf boostFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return similarity.BoostTable{}, fmt.Errorf("parse boost table: %w", err)
	}
	return similarity.BoostTable{Cap: bf.Cap, Keywords: bf.Keywords}, nil
}
