package domain

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance when checking that a confidence distribution
// sums to 1.
const Epsilon = 0.01

// Distribution maps every label in the closed set to a probability.
type Distribution map[Label]float64

// Validate checks that the distribution has exactly the four canonical
// labels as keys, no negative values, and sums to 1 within Epsilon.
func (d Distribution) Validate() error {
	if len(d) != len(CanonicalLabels) {
		return fmt.Errorf("distribution has %d labels, want %d", len(d), len(CanonicalLabels))
	}
	sum := 0.0
	for _, label := range CanonicalLabels {
		v, ok := d[label]
		if !ok {
			return fmt.Errorf("distribution missing label %q", label)
		}
		if v < 0 {
			return fmt.Errorf("distribution has negative confidence %f for %q", v, label)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > Epsilon {
		return fmt.Errorf("distribution sums to %f, want 1 ± %g", sum, Epsilon)
	}
	return nil
}

// NormalizeDistribution builds a full four-label distribution from raw model
// confidences. Missing labels count as 0. A non-positive or negative total
// is an error: the model output carries no usable signal and must not leak
// into soft voting.
func NormalizeDistribution(raw map[Label]float64) (Distribution, error) {
	d := make(Distribution, len(CanonicalLabels))
	total := 0.0
	for _, label := range CanonicalLabels {
		v := raw[label]
		if v < 0 {
			return nil, fmt.Errorf("negative confidence %f for %q", v, label)
		}
		d[label] = v
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("confidence values sum to %f, cannot normalize", total)
	}
	for _, label := range CanonicalLabels {
		d[label] /= total
	}
	return d, nil
}

// Top returns the highest-confidence label and its value. Exact ties go to
// the label appearing first in CanonicalLabels.
func (d Distribution) Top() (Label, float64) {
	best := CanonicalLabels[0]
	bestVal := d[best]
	for _, label := range CanonicalLabels[1:] {
		if d[label] > bestVal {
			best = label
			bestVal = d[label]
		}
	}
	return best, bestVal
}
