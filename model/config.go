package model

import "fmt"

// ScoreWeights are the fuzzy-tier term weights. They must sum to 1.0.
type ScoreWeights struct {
	Name       float64 `json:"name"`
	Version    float64 `json:"version"`
	Ecosystem  float64 `json:"ecosystem"`
	Supplier   float64 `json:"supplier"`
	Identifier float64 `json:"identifier"`
}

// DefaultScoreWeights weight name similarity heaviest, with version,
// ecosystem, supplier, and identifier overlap filling out the rest.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Name:       0.50,
		Version:    0.20,
		Ecosystem:  0.10,
		Supplier:   0.10,
		Identifier: 0.10,
	}
}

// DiffConfig tunes the matcher, graph differ, and cache.
type DiffConfig struct {
	FuzzyThreshold             float64      `json:"fuzzy_threshold"`
	FuzzyMargin                float64      `json:"fuzzy_margin"`
	ScoreWeights               ScoreWeights `json:"score_weights"`
	LSHThreshold               int          `json:"lsh_threshold"`
	LSHBands                   int          `json:"lsh_bands"`
	LSHRows                    int          `json:"lsh_rows"`
	MaxCandidates              int          `json:"max_candidates"`
	CacheCapacity              int          `json:"cache_capacity"`
	DetectGraphChanges         bool         `json:"detect_graph_changes"`
	DetectVulnerabilityChanges bool         `json:"detect_vulnerability_changes"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() DiffConfig {
	return DiffConfig{
		FuzzyThreshold:             0.75,
		FuzzyMargin:                0.05,
		ScoreWeights:               DefaultScoreWeights(),
		LSHThreshold:               10_000,
		LSHBands:                   32,
		LSHRows:                    4,
		MaxCandidates:              100,
		CacheCapacity:              128,
		DetectGraphChanges:         true,
		DetectVulnerabilityChanges: true,
	}
}

// Validate checks that cfg is internally consistent, returning a
// descriptive error if not. It does not mutate cfg; callers that want
// defaults filled in should start from DefaultConfig and override fields.
func (cfg DiffConfig) Validate() error {
	switch {
	case cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1:
		return fmt.Errorf("config: fuzzy_threshold %v out of range [0,1]", cfg.FuzzyThreshold)
	case cfg.FuzzyMargin < 0 || cfg.FuzzyMargin > 1:
		return fmt.Errorf("config: fuzzy_margin %v out of range [0,1]", cfg.FuzzyMargin)
	case cfg.LSHThreshold < 0:
		return fmt.Errorf("config: lsh_threshold must be >= 0")
	case cfg.LSHBands <= 0:
		return fmt.Errorf("config: lsh_bands must be > 0")
	case cfg.LSHRows <= 0:
		return fmt.Errorf("config: lsh_rows must be > 0")
	case cfg.MaxCandidates <= 0:
		return fmt.Errorf("config: max_candidates must be > 0")
	case cfg.CacheCapacity < 0:
		return fmt.Errorf("config: cache_capacity must be >= 0")
	}
	w := cfg.ScoreWeights
	sum := w.Name + w.Version + w.Ecosystem + w.Supplier + w.Identifier
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: score_weights must sum to 1.0, got %v", sum)
	}
	return nil
}
