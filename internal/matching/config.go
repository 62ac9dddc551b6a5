package matching

import (
	"fmt"
	"math"
)

const (
	DefaultDateWindowDays      = 3
	DefaultMaxGroupSize        = 3
	DefaultAcceptanceThreshold = 0.60

	// weightSumEpsilon absorbs float drift when checking that the four
	// score weights sum to 1.0.
	weightSumEpsilon = 1e-9
)

// Weights holds the relative contribution of each sub-score to the final
// confidence. The four weights must sum to 1.0.
type Weights struct {
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Reference float64 `json:"reference"`
	Prior     float64 `json:"prior"`
}

// DefaultWeights returns the standard weighting: amount dominates, then
// date, then reference text, with a small entry-kind prior.
func DefaultWeights() Weights {
	return Weights{Amount: 0.50, Date: 0.25, Reference: 0.20, Prior: 0.05}
}

// Config tunes the matching engine for one session.
type Config struct {
	// AmountToleranceMinor is the maximum absolute amount difference, in
	// currency minor units, for a candidate. 0 means exact.
	AmountToleranceMinor int64 `json:"amount_tolerance_minor"`
	// DateWindowDays is the maximum calendar-day gap for a candidate.
	DateWindowDays int `json:"date_window_days"`
	// MaxGroupSize bounds split candidates to groups of at most this many
	// entries. 1 disables group matching.
	MaxGroupSize int `json:"max_group_size"`
	// Weights combine the sub-scores into the final confidence.
	Weights Weights `json:"weights"`
	// AcceptanceThreshold is the minimum confidence for a committed
	// candidate to be labelled a match rather than flagged for review.
	AcceptanceThreshold float64 `json:"acceptance_threshold"`
}

// DefaultConfig returns the engine defaults: exact amounts, a 3-day date
// window, splits of up to 3 entries and a 0.60 acceptance threshold.
func DefaultConfig() Config {
	return Config{
		AmountToleranceMinor: 0,
		DateWindowDays:       DefaultDateWindowDays,
		MaxGroupSize:         DefaultMaxGroupSize,
		Weights:              DefaultWeights(),
		AcceptanceThreshold:  DefaultAcceptanceThreshold,
	}
}

// Validate fails fast on configuration errors before a session starts.
func (c Config) Validate() error {
	if c.AmountToleranceMinor < 0 {
		return fmt.Errorf("amount tolerance must not be negative, got %d", c.AmountToleranceMinor)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window must not be negative, got %d", c.DateWindowDays)
	}
	if c.MaxGroupSize < 1 {
		return fmt.Errorf("max group size must be at least 1, got %d", c.MaxGroupSize)
	}
	if c.AcceptanceThreshold < 0 || c.AcceptanceThreshold > 1 {
		return fmt.Errorf("acceptance threshold must be within [0,1], got %v", c.AcceptanceThreshold)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"amount", c.Weights.Amount},
		{"date", c.Weights.Date},
		{"reference", c.Weights.Reference},
		{"prior", c.Weights.Prior},
	} {
		if w.value < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", w.name, w.value)
		}
	}
	sum := c.Weights.Amount + c.Weights.Date + c.Weights.Reference + c.Weights.Prior
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("score weights must sum to 1.0, got %v", sum)
	}
	return nil
}
