package cfr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-solver/internal/randutil"
)

func TestRegretMatchingNormalises(t *testing.T) {
	strat := regretMatching([]float64{3, 1, 0, -2})

	sum := 0.0
	for _, p := range strat {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.75, strat[0], 1e-9)
	assert.InDelta(t, 0.25, strat[1], 1e-9)
}

func TestRegretMatchingClipsNegatives(t *testing.T) {
	strat := regretMatching([]float64{5, -1, -100})
	assert.Equal(t, 0.0, strat[1])
	assert.Equal(t, 0.0, strat[2])
	assert.InDelta(t, 1.0, strat[0], 1e-9)
}

func TestRegretMatchingUniformFallback(t *testing.T) {
	for _, regrets := range [][]float64{
		{0, 0, 0},
		{-1, -2, -3},
	} {
		strat := regretMatching(regrets)
		for _, p := range strat {
			assert.InDelta(t, 1.0/3, p, 1e-9)
		}
	}
}

// Random regret vectors always produce a distribution that puts zero mass on
// strictly-negative actions whenever any positive regret exists.
func TestRegretMatchingProperty(t *testing.T) {
	rng := randutil.New(5)

	for trial := 0; trial < 500; trial++ {
		n := 2 + rng.IntN(4)
		regrets := make([]float64, n)
		anyPositive := false
		for i := range regrets {
			regrets[i] = (rng.Float64() - 0.5) * 20
			if regrets[i] > 0 {
				anyPositive = true
			}
		}

		strat := regretMatching(regrets)
		require.Len(t, strat, n)

		sum := 0.0
		for i, p := range strat {
			require.False(t, math.IsNaN(p))
			require.GreaterOrEqual(t, p, 0.0)
			sum += p
			if anyPositive && regrets[i] < 0 {
				assert.Equal(t, 0.0, p)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestSampleIndexCoversDistribution(t *testing.T) {
	dist := []float64{0.5, 0.3, 0.2}
	assert.Equal(t, 0, sampleIndex(dist, 0.25))
	assert.Equal(t, 1, sampleIndex(dist, 0.6))
	assert.Equal(t, 2, sampleIndex(dist, 0.99))
	assert.Equal(t, 2, sampleIndex(dist, 1.0))
}
