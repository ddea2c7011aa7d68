// Package scorer ranks neighborhoods by a weighted blend of price, landmark
// proximity and review demand.
package scorer

import (
	"math"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Weights are the component weights of the investment score.
type Weights struct {
	Price    float64 `json:"price" yaml:"price" mapstructure:"price"`
	Location float64 `json:"location" yaml:"location" mapstructure:"location"`
	Demand   float64 `json:"demand" yaml:"demand" mapstructure:"demand"`
}

// DefaultWeights returns 0.4 price, 0.3 location, 0.3 demand.
func DefaultWeights() Weights {
	return Weights{Price: 0.4, Location: 0.3, Demand: 0.3}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Price + w.Location + w.Demand
}

const weightSumTolerance = 0.01

// ValidateWeights requires non-negative weights summing to 1 (within 0.01).
func ValidateWeights(w Weights) error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"weights.price", w.Price},
		{"weights.location", w.Location},
		{"weights.demand", w.Demand},
	} {
		if c.v < 0 || math.IsNaN(c.v) {
			return model.NewValidationError(c.name, c.v, "must be >= 0")
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return model.NewValidationError("weights", w.Sum(), "must sum to 1")
	}
	return nil
}

// Normalize scales x to 0-100 against peak and rounds to one decimal. A
// non-positive peak yields 0.
func Normalize(x, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return round1(x / peak * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
