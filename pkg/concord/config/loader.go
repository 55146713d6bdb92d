package config

import (
	"fmt"

	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/similarity"
)

// Loader loads all configuration artifacts and constructs ready components.
type Loader struct {
	ConfigPath string // engine configuration; empty means built-in defaults
	BoostPath  string // keyword-boost dictionary; empty disables boosting
}

// Components holds the loaded configuration and the matcher built from it.
type Components struct {
	File    File
	Boost   similarity.BoostTable
	Matcher *match.Matcher
}

// Load reads the configuration files and returns initialized components.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{File: Default()}

	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.File = cfg
	}

	if l.BoostPath != "" {
		boost, err := LoadBoost(l.BoostPath)
		if err != nil {
			return nil, fmt.Errorf("load boost table: %w", err)
		}
		comp.Boost = boost
	}

	comp.Matcher = match.New(match.Options{
		Tiers:            comp.File.Tiers,
		Boost:            comp.Boost,
		AlgorithmVersion: comp.File.Matching.AlgorithmVersion,
	})
	return comp, nil
}

// ResolverOptions derives resolver options from the loaded configuration.
func (c *Components) ResolverOptions() resolve.Options {
	return resolve.Options{
		Confidences:     c.File.Confidence,
		AcceptThreshold: c.File.AcceptThreshold,
	}
}
