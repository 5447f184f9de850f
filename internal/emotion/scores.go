package emotion

import (
	"fmt"
	"math"
)

// Scores maps each label to a non-negative, probability-like score. Scores from
// one classification are comparable with each other; they need not sum to 1.
type Scores map[Emotion]float64

// FromVector builds Scores from a positional vector in label order, which is
// how model outputs are laid out.
func FromVector(v []float64) (Scores, error) {
	if len(v) != NumLabels {
		return nil, fmt.Errorf("score vector has %d values, want %d", len(v), NumLabels)
	}
	s := make(Scores, NumLabels)
	for i, e := range labels {
		s[e] = v[i]
	}
	return s, s.Validate()
}

// Validate checks that s covers exactly the vocabulary with finite,
// non-negative values.
func (s Scores) Validate() error {
	if len(s) != NumLabels {
		return fmt.Errorf("scores cover %d labels, want %d", len(s), NumLabels)
	}
	for _, e := range labels {
		v, ok := s[e]
		if !ok {
			return fmt.Errorf("missing score for %s", e)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid score %v for %s", v, e)
		}
	}
	return nil
}

// Dominant returns the label with the highest score. Equal maxima resolve to
// the label that comes first in the label order. Empty scores yield Neutral.
func (s Scores) Dominant() Emotion {
	best := Neutral
	bestScore := math.Inf(-1)
	for _, e := range labels {
		v, ok := s[e]
		if !ok || math.IsNaN(v) {
			continue
		}
		if v > bestScore {
			best, bestScore = e, v
		}
	}
	return best
}
