package cost

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/ottomail/proposal-cli/internal/model"
)

// Rates holds the pricing configuration for proposal estimates.
type Rates struct {
	// HourlyRate is the base billing rate in USD per hour.
	HourlyRate float64 `yaml:"hourly_rate" mapstructure:"hourly_rate"`
	// Multipliers maps a complexity tier to its rate multiplier.
	Multipliers map[string]float64 `yaml:"multipliers" mapstructure:"multipliers"`
	// DefaultMultiplier applies when the tier is not in Multipliers.
	DefaultMultiplier float64 `yaml:"default_multiplier" mapstructure:"default_multiplier"`
}

// DefaultRates returns the standard pricing rates.
func DefaultRates() Rates {
	return Rates{
		HourlyRate: 50,
		Multipliers: map[string]float64{
			string(model.ComplexitySimple):  1.0,
			string(model.ComplexityMedium):  1.5,
			string(model.ComplexityComplex): 2.0,
		},
		DefaultMultiplier: 1.5,
	}
}

// Calculator computes price ranges from estimated hours and complexity.
// It is the one pipeline stage with no AI dependency: given valid input it
// cannot fail, and invalid input is an upstream contract violation.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate computes the cost range for a project. The range spans ±10%
// around hours * rate * multiplier, so max/min is a fixed ratio regardless
// of complexity. Non-positive hours means the planning stage broke its
// contract; that error is fatal to the run, not a fallback case.
func (c *Calculator) Estimate(hours int, complexity string) (*model.CostEstimate, error) {
	if hours <= 0 {
		return nil, eris.Errorf("cost: invalid estimated hours %d", hours)
	}

	multiplier, ok := c.rates.Multipliers[complexity]
	if !ok {
		multiplier = c.rates.DefaultMultiplier
	}

	base := float64(hours) * c.rates.HourlyRate * multiplier

	return &model.CostEstimate{
		Min:        int(math.Round(base * 0.9)),
		Max:        int(math.Round(base * 1.1)),
		Hours:      hours,
		Complexity: complexity,
	}, nil
}
