package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_KnownTiers(t *testing.T) {
	c := NewCalculator(DefaultRates())

	tests := []struct {
		name       string
		hours      int
		complexity string
		wantMin    int
		wantMax    int
	}{
		{"simple", 40, "simple", 1800, 2200},
		{"medium", 80, "medium", 5400, 6600},
		{"complex", 160, "complex", 14400, 17600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Estimate(tt.hours, tt.complexity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, got.Min)
			assert.Equal(t, tt.wantMax, got.Max)
			assert.Equal(t, tt.hours, got.Hours)
			assert.Equal(t, tt.complexity, got.Complexity)
		})
	}
}

func TestEstimate_UnknownTierUsesDefaultMultiplier(t *testing.T) {
	c := NewCalculator(DefaultRates())

	got, err := c.Estimate(80, "unheard-of")
	require.NoError(t, err)

	// Default multiplier matches the medium tier.
	medium, err := c.Estimate(80, "medium")
	require.NoError(t, err)
	assert.Equal(t, medium.Min, got.Min)
	assert.Equal(t, medium.Max, got.Max)
}

func TestEstimate_RangeRatioIndependentOfTier(t *testing.T) {
	c := NewCalculator(DefaultRates())

	for _, complexity := range []string{"simple", "medium", "complex", "other"} {
		got, err := c.Estimate(100, complexity)
		require.NoError(t, err)
		assert.Less(t, got.Min, got.Max, complexity)
		// max/min is always 1.1/0.9.
		assert.InDelta(t, 11.0/9.0, float64(got.Max)/float64(got.Min), 0.001, complexity)
	}
}

func TestEstimate_InvalidHours(t *testing.T) {
	c := NewCalculator(DefaultRates())

	_, err := c.Estimate(0, "medium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid estimated hours")

	_, err = c.Estimate(-10, "medium")
	require.Error(t, err)
}

func TestEstimate_CustomRates(t *testing.T) {
	c := NewCalculator(Rates{
		HourlyRate:        100,
		Multipliers:       map[string]float64{"rush": 3.0},
		DefaultMultiplier: 1.0,
	})

	got, err := c.Estimate(10, "rush")
	require.NoError(t, err)
	// 10 * 100 * 3.0 = 3000 +/- 10%
	assert.Equal(t, 2700, got.Min)
	assert.Equal(t, 3300, got.Max)
}

func TestEstimate_RoundsHalfUp(t *testing.T) {
	c := NewCalculator(Rates{
		HourlyRate:        1,
		Multipliers:       map[string]float64{},
		DefaultMultiplier: 1.0,
	})

	// base 5: 0.9*5=4.5 rounds to 5 (away from zero), 1.1*5=5.5 rounds to 6.
	got, err := c.Estimate(5, "any")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Min)
	assert.Equal(t, 6, got.Max)
}
