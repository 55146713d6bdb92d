package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/taxonaut/concord/pkg/concord/internalerr"
	"github.com/taxonaut/concord/pkg/concord/match"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Confidence.DirectMatch != 1.00 {
		t.Errorf("direct match confidence = %f, want 1.00", cfg.Confidence.DirectMatch)
	}
	if cfg.AcceptThreshold != 0.70 {
		t.Errorf("accept threshold = %f, want 0.70", cfg.AcceptThreshold)
	}
	if cfg.Tiers.Exact.Threshold != 0.95 {
		t.Errorf("exact threshold = %f, want 0.95", cfg.Tiers.Exact.Threshold)
	}
	if cfg.Matching.TopN != 5 {
		t.Errorf("top n = %d, want 5", cfg.Matching.TopN)
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
confidence:
  label_imputation: 0.65
accept_threshold: 0.75
tiers:
  exact:
    threshold: 0.99
    confidence: 1.0
matching:
  top_n: 10
  algorithm_version: custom/2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confidence.LabelImputation != 0.65 {
		t.Errorf("label imputation = %f, want overridden 0.65", cfg.Confidence.LabelImputation)
	}
	// Untouched keys keep their defaults.
	if cfg.Confidence.DirectMatch != 1.00 {
		t.Errorf("direct match = %f, want default 1.00", cfg.Confidence.DirectMatch)
	}
	if cfg.AcceptThreshold != 0.75 {
		t.Errorf("accept threshold = %f, want 0.75", cfg.AcceptThreshold)
	}
	if cfg.Tiers.Exact.Threshold != 0.99 {
		t.Errorf("exact threshold = %f, want 0.99", cfg.Tiers.Exact.Threshold)
	}
	if cfg.Tiers.High.Threshold != 0.90 {
		t.Errorf("high threshold = %f, want default 0.90", cfg.Tiers.High.Threshold)
	}
	if cfg.Matching.TopN != 10 || cfg.Matching.AlgorithmVersion != "custom/2" {
		t.Errorf("matching = %+v, want overrides", cfg.Matching)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"threshold above one", "accept_threshold: 1.5\n"},
		{"negative top n", "matching:\n  top_n: -1\n"},
		{"inverted tiers", "tiers:\n  exact:\n    threshold: 0.5\n    confidence: 1.0\n"},
	}
	for _, c := range cases {
		path := writeFile(t, "config.yaml", c.content)
		_, err := Load(path)
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", c.name, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBoost(t *testing.T) {
	path := writeFile(t, "boost.yaml", `
cap: 1.0
keywords:
  software:
    IT: 0.6
  programmer:
    IT: 0.6
  ship:
    SR: 0.5
`)
	table, err := LoadBoost(path)
	if err != nil {
		t.Fatalf("LoadBoost: %v", err)
	}
	if got := table.Boost("software developers and programmers", "IT"); got != 1.2 {
		t.Errorf("boost = %f, want 1.2", got)
	}
	if got := table.Boost("ship repair", "SR"); got != 0.5 {
		t.Errorf("boost = %f, want 0.5", got)
	}
}

func TestLoader_Defaults(t *testing.T) {
	loader := Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Matcher == nil {
		t.Fatal("expected a matcher built from defaults")
	}
	if comp.File.Matching.AlgorithmVersion != match.DefaultAlgorithmVersion {
		t.Errorf("algorithm version = %q, want default", comp.File.Matching.AlgorithmVersion)
	}
	opts := comp.ResolverOptions()
	if opts.AcceptThreshold != 0.70 {
		t.Errorf("resolver accept threshold = %f, want 0.70", opts.AcceptThreshold)
	}
}

func TestLoader_WithFiles(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "matching:\n  top_n: 3\n")
	boostPath := writeFile(t, "boost.yaml", "keywords:\n  baker:\n    FOOD: 0.4\n")

	loader := Loader{ConfigPath: cfgPath, BoostPath: boostPath}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.File.Matching.TopN != 3 {
		t.Errorf("top n = %d, want 3", comp.File.Matching.TopN)
	}
	if got := comp.Boost.Boost("master baker", "FOOD"); got != 0.4 {
		t.Errorf("boost = %f, want 0.4", got)
	}
}

func TestLoader_BadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "matching: [unclosed")
	if _, err := (&Loader{ConfigPath: path}).Load(); err == nil {
		t.Error("expected error for malformed config")
	}
}
