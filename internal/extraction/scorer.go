package extraction

import (
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Default confidence weights. A fully populated, pattern-matched, fast
// extraction scores 1.0; four fields with a pattern score 0.84.
const (
	DefaultFieldWeight    = 0.8
	DefaultPatternBonus   = 0.2
	DefaultLatencyPenalty = 0.1
	DefaultLatencyBudget  = 50 * time.Millisecond
)

// Scorer rates an extraction's completeness and specificity in [0, 1].
type Scorer struct {
	FieldWeight    float64       // Weight of the fraction of canonical fields found
	PatternBonus   float64       // Added when an institution pattern was used
	LatencyPenalty float64       // Subtracted when extraction exceeded LatencyBudget
	LatencyBudget  time.Duration // Zero disables the penalty
}

// DefaultScorer returns a Scorer with the default weights.
func DefaultScorer() Scorer {
	return Scorer{
		FieldWeight:    DefaultFieldWeight,
		PatternBonus:   DefaultPatternBonus,
		LatencyPenalty: DefaultLatencyPenalty,
		LatencyBudget:  DefaultLatencyBudget,
	}
}

// Score computes the confidence for details.
func (s Scorer) Score(details model.ExtractionDetails) float64 {
	found := 0
	for _, field := range model.CanonicalFields {
		if details.HasField(field) {
			found++
		}
	}

	score := s.FieldWeight * float64(found) / float64(len(model.CanonicalFields))
	if details.UsedPattern {
		score += s.PatternBonus
	}
	if s.LatencyBudget > 0 && details.Duration > s.LatencyBudget {
		score -= s.LatencyPenalty
	}

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
