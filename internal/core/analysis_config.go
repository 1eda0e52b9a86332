package core

import (
	"fmt"
)

// RiskThresholds are the ascending score boundaries between risk tiers
type RiskThresholds struct {
	Low    int
	Medium int
	High   int
}

// AnalysisConfig is an immutable snapshot of the scoring parameters for one
// analysis run. It is passed by value so concurrent batches can run with
// different settings without shared mutable state.
type AnalysisConfig struct {
	// BlendWeight is the fraction of the final score taken from the model
	// probability when the verdict is confident enough
	BlendWeight float64

	// MinModelConfidence is the confidence below which the model verdict
	// contributes zero weight
	MinModelConfidence float64

	Thresholds RiskThresholds

	// MaxThreats caps the length of the reported threat list
	MaxThreats int
}

// DefaultAnalysisConfig returns the stock scoring parameters
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		BlendWeight:        0.6,
		MinModelConfidence: 0.5,
		Thresholds:         RiskThresholds{Low: 30, Medium: 60, High: 85},
		MaxThreats:         20,
	}
}

// Validate checks the snapshot for out-of-range values. Wraps
// ErrConfiguration so callers can treat any violation as fatal at startup.
func (c AnalysisConfig) Validate() error {
	if c.BlendWeight < 0 || c.BlendWeight > 1 {
		return fmt.Errorf("%w: model blend weight %.2f out of range [0,1]", ErrConfiguration, c.BlendWeight)
	}
	if c.MinModelConfidence < 0 || c.MinModelConfidence > 1 {
		return fmt.Errorf("%w: minimum model confidence %.2f out of range [0,1]", ErrConfiguration, c.MinModelConfidence)
	}
	t := c.Thresholds
	if t.Low < 0 || t.High > 100 {
		return fmt.Errorf("%w: risk thresholds must lie in [0,100]", ErrConfiguration)
	}
	if !(t.Low < t.Medium && t.Medium < t.High) {
		return fmt.Errorf("%w: risk thresholds must be ascending (got %d/%d/%d)", ErrConfiguration, t.Low, t.Medium, t.High)
	}
	if c.MaxThreats <= 0 {
		return fmt.Errorf("%w: max threats must be positive", ErrConfiguration)
	}
	return nil
}
