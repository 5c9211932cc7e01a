package scoring

import (
	"fmt"
	"math"
)

// Weights configure the contribution of each factor to the composite score.
// They must sum to 1.0 (within 1e-6) so composites stay in [0, 1].
type Weights struct {
	GPA      float64 `json:"gpa_weight"`
	Interest float64 `json:"interest_weight"`
	Time     float64 `json:"time_weight"`
	Year     float64 `json:"year_weight"`
	Prereq   float64 `json:"prereq_weight"`
}

const weightTolerance = 1e-6

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		GPA:      0.35,
		Interest: 0.30,
		Time:     0.20,
		Year:     0.10,
		Prereq:   0.05,
	}
}

// CompetitiveWeights favors academic standing over everything else.
func CompetitiveWeights() Weights {
	return Weights{GPA: 0.45, Interest: 0.25, Time: 0.15, Year: 0.10, Prereq: 0.05}
}

// InterestFocusedWeights favors topic fit over academic standing.
func InterestFocusedWeights() Weights {
	return Weights{GPA: 0.25, Interest: 0.45, Time: 0.15, Year: 0.10, Prereq: 0.05}
}

// FCFSLeaningWeights gives the application time the dominant share.
func FCFSLeaningWeights() Weights {
	return Weights{GPA: 0.25, Interest: 0.20, Time: 0.40, Year: 0.10, Prereq: 0.05}
}

// PresetWeights resolves a named preset. The empty name maps to the default.
func PresetWeights(name string) (Weights, error) {
	switch name {
	case "", "default":
		return DefaultWeights(), nil
	case "competitive":
		return CompetitiveWeights(), nil
	case "interest-focused":
		return InterestFocusedWeights(), nil
	case "fcfs-leaning":
		return FCFSLeaningWeights(), nil
	default:
		return Weights{}, fmt.Errorf("unknown scoring preset: %q", name)
	}
}

// Validate rejects weight sets that do not sum to 1.0.
func (w Weights) Validate() error {
	sum := w.GPA + w.Interest + w.Time + w.Year + w.Prereq
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	for _, v := range []float64{w.GPA, w.Interest, w.Time, w.Year, w.Prereq} {
		if v < 0 {
			return fmt.Errorf("scoring weights must be non-negative, got %v", v)
		}
	}
	return nil
}
